package main

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/order_report/config"
	"bitbucket.org/mmdatafocus/order_report/models"
	"bitbucket.org/mmdatafocus/order_report/models/reports"
	"bitbucket.org/mmdatafocus/order_report/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const buildLockTTL = 15 * time.Minute

type buildOptions struct {
	Days      int    `validate:"min=1"`
	Out       string `validate:"required,xlsxpath"`
	DSN       string
	DataDir   string `validate:"required"`
	BatchSize int    `validate:"min=1"`
	// Now pins the report clock; zero means time.Now.
	Now time.Time `validate:"-"`
}

func defaultBuildOptions() buildOptions {
	return buildOptions{
		Days:      config.ReportDays(),
		Out:       config.ReportOut(),
		DSN:       config.ReportDSN(),
		DataDir:   config.DataDir(),
		BatchSize: config.LoadBatchSize(),
	}
}

func addBuildFlags(cmd *cobra.Command, opts *buildOptions) {
	cmd.Flags().IntVar(&opts.Days, "days", opts.Days, "trailing window in days for the enriched order view (REPORT_DAYS)")
	cmd.Flags().StringVar(&opts.Out, "out", opts.Out, "workbook path (REPORT_OUT)")
	cmd.Flags().StringVar(&opts.DSN, "db", opts.DSN, `order store: ":memory:", a SQLite file or mysql://... (REPORT_DB)`)
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", opts.DataDir, "directory holding sellers.csv, orders.csv, order_items.csv (REPORT_DATA_DIR)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", opts.BatchSize, "rows per load batch (LOAD_BATCH_SIZE)")
}

func newBuildCmd() *cobra.Command {
	opts := defaultBuildOptions()
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Load the CSVs and write the report workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runBuild(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return reportOutcome(report)
		},
	}
	addBuildFlags(cmd, &opts)
	return cmd
}

// reportOutcome turns a finished report into the command result.
func reportOutcome(report *reports.OrderReport) error {
	if report.Passed() {
		return nil
	}
	return fmt.Errorf("%w: %d", errIssuesFound, report.TotalIssues())
}

// runBuild resets the store, loads the CSVs and builds the report. Upload and
// publish run only when their env settings are present.
func runBuild(ctx context.Context, opts buildOptions) (*reports.OrderReport, error) {
	if err := utils.ValidateStruct(opts); err != nil {
		return nil, err
	}
	ctx, runId := utils.NewRunContext(ctx)
	ctx = utils.SetUserNameInContext(ctx, "order-report")
	log := config.RunLogger(ctx)
	logger := config.GetLogger()

	if addr := config.RedisAddress(); addr != "" {
		if err := config.ConnectRedisWithRetry(ctx, addr); err != nil {
			config.LogError(logger, "order-report", "runBuild", "ConnectRedisWithRetry", addr, err)
			return nil, err
		}
		defer config.CloseRedis()
	}
	lock, err := config.ObtainBuildLock(ctx, buildLockTTL)
	if err != nil {
		config.LogError(logger, "order-report", "runBuild", "ObtainBuildLock", config.BuildLockKey, err)
		return nil, err
	}
	defer config.ReleaseBuildLock(ctx, lock)

	db, err := config.ConnectDatabase(opts.DSN)
	if err != nil {
		config.LogError(logger, "order-report", "runBuild", "ConnectDatabase", nil, err)
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := models.MigrateTable(db); err != nil {
		config.LogError(logger, "order-report", "runBuild", "MigrateTable", nil, err)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := models.ResetTables(ctx, db); err != nil {
		config.LogError(logger, "order-report", "runBuild", "ResetTables", nil, err)
		return nil, fmt.Errorf("reset tables: %w", err)
	}

	counts, err := models.LoadDataDir(ctx, db, opts.DataDir, opts.BatchSize)
	if err != nil {
		config.LogError(logger, "order-report", "runBuild", "LoadDataDir", opts.DataDir, err)
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"sellers":     counts.Sellers,
		"orders":      counts.Orders,
		"order_items": counts.OrderItems,
	}).Info("csv load finished")

	report, err := reports.BuildOrderReport(ctx, db, reports.OrderReportOptions{
		Days: opts.Days,
		Out:  opts.Out,
		Now:  opts.Now,
	})
	if err != nil {
		return nil, err
	}

	uploaded, err := uploadReport(ctx, runId, opts.Out)
	if err != nil {
		return nil, err
	}
	if err := publishReport(ctx, report, opts.Out, uploaded); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"passed": report.Passed(), "total_issues": report.TotalIssues()}).Info("report finished")
	return report, nil
}

// uploadedReport locates the workbook copy in GCS.
type uploadedReport struct {
	ObjectURL   string
	DownloadURL string
}

func uploadReport(ctx context.Context, runId, out string) (uploadedReport, error) {
	var up uploadedReport
	bucket := config.ReportBucket()
	if bucket == "" {
		return up, nil
	}
	objectName := utils.ReportObjectName(runId, out)
	objectURL, err := utils.UploadReportToGCS(ctx, bucket, objectName, out)
	if err != nil {
		config.LogError(config.GetLogger(), "order-report", "uploadReport", "UploadReportToGCS", bucket, err)
		return up, err
	}
	up.ObjectURL = objectURL
	config.RunLogger(ctx).WithField("object", objectURL).Info("workbook uploaded")

	if ttl := config.ReportSignedURLTTL(); ttl > 0 {
		signed, err := utils.SignReportDownloadURL(ctx, bucket, objectName, ttl)
		if err != nil {
			// the upload itself succeeded; the event just goes out without a link
			config.LogError(config.GetLogger(), "order-report", "uploadReport", "SignReportDownloadURL", objectName, err)
		} else {
			up.DownloadURL = signed
		}
	}
	return up, nil
}

func publishReport(ctx context.Context, report *reports.OrderReport, out string, uploaded uploadedReport) error {
	topic := config.ReportTopic()
	if topic == "" {
		return nil
	}
	defer config.ClosePubSub()

	counts := make(map[string]int, len(reports.CheckOrder))
	for name, n := range report.Checks.Counts() {
		counts[string(name)] = n
	}
	msgId, err := config.PublishReportEvent(ctx, topic, config.ReportEvent{
		RunId:       report.RunId,
		Out:         out,
		ObjectURL:   uploaded.ObjectURL,
		DownloadURL: uploaded.DownloadURL,
		TotalIssues: report.TotalIssues(),
		Passed:      report.Passed(),
		IssueCounts: counts,
		GeneratedAt: report.GeneratedAt,
	})
	if err != nil {
		config.LogError(config.GetLogger(), "order-report", "publishReport", "PublishReportEvent", topic, err)
		return err
	}
	config.RunLogger(ctx).WithField("message_id", msgId).Info("report event published")
	return nil
}
