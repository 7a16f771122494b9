package config

import (
	"os"
	"strings"
	"time"
)

const (
	DefaultReportDays    = 90
	DefaultReportOut     = "excel/Report.xlsx"
	DefaultDataDir       = "data"
	DefaultLoadBatchSize = 50000
)

// ReportDays is the trailing window of the enriched order view.
//
// Set via env:
// - REPORT_DAYS=90
func ReportDays() int {
	return intFromEnv("REPORT_DAYS", DefaultReportDays)
}

// ReportOut is where the workbook is written (REPORT_OUT).
func ReportOut() string {
	return stringFromEnv("REPORT_OUT", DefaultReportOut)
}

// ReportDSN selects the order store (REPORT_DB): ":memory:", a SQLite path or a mysql:// URL.
func ReportDSN() string {
	return stringFromEnv("REPORT_DB", MemoryDSN)
}

// DataDir holds sellers.csv, orders.csv and order_items.csv (REPORT_DATA_DIR).
func DataDir() string {
	return stringFromEnv("REPORT_DATA_DIR", DefaultDataDir)
}

// LoadBatchSize bounds rows per INSERT during CSV loading (LOAD_BATCH_SIZE).
func LoadBatchSize() int {
	return intFromEnv("LOAD_BATCH_SIZE", DefaultLoadBatchSize)
}

// ReportBucket enables uploading the workbook to GCS when set (REPORT_GCS_BUCKET).
func ReportBucket() string {
	return strings.TrimSpace(os.Getenv("REPORT_GCS_BUCKET"))
}

// ReportSignedURLTTL is how long the signed download link published with the
// report event stays valid (REPORT_SIGNED_URL_HOURS). Zero disables signing.
func ReportSignedURLTTL() time.Duration {
	return time.Duration(max(intFromEnv("REPORT_SIGNED_URL_HOURS", 0), 0)) * time.Hour
}

// ReportTopic enables the run-completed Pub/Sub event when set (REPORT_PUBSUB_TOPIC).
func ReportTopic() string {
	return strings.TrimSpace(os.Getenv("REPORT_PUBSUB_TOPIC"))
}

// RedisAddress enables the cross-process build lock when set (REDIS_ADDRESS).
func RedisAddress() string {
	return strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
}

func stringFromEnv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
