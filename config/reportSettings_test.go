package config

import (
	"context"
	"strings"
	"testing"
)

func TestReportSettings_Defaults(t *testing.T) {
	for _, key := range []string{"REPORT_DAYS", "REPORT_OUT", "REPORT_DB", "REPORT_DATA_DIR", "LOAD_BATCH_SIZE", "REPORT_GCS_BUCKET", "REPORT_PUBSUB_TOPIC", "REDIS_ADDRESS"} {
		t.Setenv(key, "")
	}
	if ReportDays() != DefaultReportDays {
		t.Fatalf("expected %d days, got %d", DefaultReportDays, ReportDays())
	}
	if ReportOut() != DefaultReportOut {
		t.Fatalf("expected %s, got %s", DefaultReportOut, ReportOut())
	}
	if ReportDSN() != MemoryDSN {
		t.Fatalf("expected %s, got %s", MemoryDSN, ReportDSN())
	}
	if DataDir() != DefaultDataDir {
		t.Fatalf("expected %s, got %s", DefaultDataDir, DataDir())
	}
	if LoadBatchSize() != DefaultLoadBatchSize {
		t.Fatalf("expected %d, got %d", DefaultLoadBatchSize, LoadBatchSize())
	}
	if ReportBucket() != "" || ReportTopic() != "" || RedisAddress() != "" {
		t.Fatalf("optional integrations must be off by default")
	}
}

func TestReportSettings_FromEnv(t *testing.T) {
	t.Setenv("REPORT_DAYS", "30")
	t.Setenv("REPORT_OUT", " out/r.xlsx ")
	t.Setenv("REPORT_DB", "mysql://u:p@tcp(db:3306)/orders")
	t.Setenv("LOAD_BATCH_SIZE", "not-a-number")

	if ReportDays() != 30 {
		t.Fatalf("expected 30 days, got %d", ReportDays())
	}
	if ReportOut() != "out/r.xlsx" {
		t.Fatalf("expected trimmed out path, got %q", ReportOut())
	}
	if !IsMySQLDSN(ReportDSN()) {
		t.Fatalf("expected mysql dsn, got %q", ReportDSN())
	}
	if LoadBatchSize() != DefaultLoadBatchSize {
		t.Fatalf("invalid batch size should fall back to default, got %d", LoadBatchSize())
	}
}

func TestObtainBuildLock_WithoutRedis(t *testing.T) {
	CloseRedis()
	lock, err := ObtainBuildLock(context.Background(), 0)
	if err != nil || lock != nil {
		t.Fatalf("expected no-op lock without redis, got %v, %v", lock, err)
	}
	ReleaseBuildLock(context.Background(), lock)
}

func TestMySQLDSN(t *testing.T) {
	got, err := mysqlDSN("report:secret@tcp(db:3306)/orders")
	if err != nil {
		t.Fatalf("mysqlDSN error: %v", err)
	}
	if !strings.Contains(got, "parseTime=true") || !strings.Contains(got, "tcp(db:3306)/orders") {
		t.Fatalf("unexpected dsn %q", got)
	}
	if _, err := mysqlDSN("not a dsn"); err == nil {
		t.Fatalf("expected parse error")
	}
}
