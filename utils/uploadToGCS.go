package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// getGoogleClient initializes a Google Cloud Storage client
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	// Prefer ADC. Set GCS_CREDENTIALS_JSON to pass explicit credentials locally.
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

// ReportObjectName is the bucket key a run's workbook is stored under.
func ReportObjectName(runId, localPath string) string {
	return path.Join("reports", runId, filepath.Base(localPath))
}

// UploadReportToGCS copies the workbook at localPath to bucket/objectName and
// returns its gs:// URL.
func UploadReportToGCS(ctx context.Context, bucketName, objectName, localPath string) (string, error) {
	if bucketName == "" {
		return "", errors.New("gcs bucket is required")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	client, err := getGoogleClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	wc := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentTypeFor(objectName)
	if _, err := io.Copy(wc, f); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to upload %s to Google Cloud Storage: %v", objectName, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}
	return fmt.Sprintf("gs://%s/%s", bucketName, objectName), nil
}

func contentTypeFor(objectName string) string {
	if strings.HasSuffix(strings.ToLower(objectName), ".xlsx") {
		return xlsxContentType
	}
	return "application/octet-stream"
}
