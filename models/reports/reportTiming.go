package reports

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/order_report/config"
	"bitbucket.org/mmdatafocus/order_report/utils"
	"github.com/sirupsen/logrus"
)

func reportSlowMs() int64 {
	// Env: REPORT_SLOW_MS (default 500ms)
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

// logSlowPhase warns when one step of a report run took at least REPORT_SLOW_MS.
// It reports whether the phase was slow.
func logSlowPhase(ctx context.Context, name string, started time.Time, extra logrus.Fields) bool {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() {
		return false
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.RunLogger(ctx).WithFields(extra).WithFields(logrus.Fields{
		"phase":          name,
		"ms":             d.Milliseconds(),
		"correlation_id": cid,
	}).Warn("slow report phase")
	return true
}
