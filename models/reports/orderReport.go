package reports

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/order_report/config"
	"bitbucket.org/mmdatafocus/order_report/models"
	"bitbucket.org/mmdatafocus/order_report/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("bitbucket.org/mmdatafocus/order_report/models/reports")

type OrderReportOptions struct {
	Days int       `validate:"min=1"`
	Out  string    `validate:"required,xlsxpath"`
	Now  time.Time `validate:"-"`
}

// OrderReport is everything one generation pass derives from a store snapshot.
type OrderReport struct {
	RunId           string                  `json:"run_id"`
	GeneratedAt     time.Time               `json:"generated_at"`
	WindowStart     time.Time               `json:"window_start"`
	Orders          []*models.EnrichedOrder `json:"-"`
	Funnel          Funnel                  `json:"funnel"`
	Checks          CheckResults            `json:"checks"`
	Summary         []ChannelSellerSummary  `json:"summary"`
	MarginByChannel []ChannelMargin         `json:"margin_by_channel"`
}

func (r *OrderReport) TotalIssues() int {
	return r.Checks.TotalIssues()
}

func (r *OrderReport) Passed() bool {
	return r.Checks.Passed()
}

// AssembleOrderReport derives funnel, checks and summaries from already loaded
// inputs. It performs no I/O.
func AssembleOrderReport(orders []models.OrderStatusRow, rows []*models.EnrichedOrder) *OrderReport {
	return &OrderReport{
		Orders:          rows,
		Funnel:          ComputeFunnel(orders),
		Checks:          RunChecks(rows),
		Summary:         SummarizeByChannelSeller(rows),
		MarginByChannel: MarginByChannel(rows),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// BuildOrderReport reads the store, derives the report and writes the workbook to opts.Out.
// Data-quality findings are part of the returned report, never an error.
func BuildOrderReport(ctx context.Context, db *gorm.DB, opts OrderReportOptions) (report *OrderReport, err error) {
	ctx, span := tracer.Start(ctx, "BuildOrderReport")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(opts); err != nil {
		return nil, fmt.Errorf("invalid report options: %w", err)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	since := models.TrailingWindowStart(now, opts.Days)
	log := config.RunLogger(ctx)

	started := time.Now()
	rows, err := models.GetEnrichedOrders(ctx, db, since)
	if err != nil {
		config.LogError(config.GetLogger(), "reports", "BuildOrderReport", "GetEnrichedOrders", map[string]any{"since": since}, err)
		return nil, fmt.Errorf("query enriched orders: %w", err)
	}
	logSlowPhase(ctx, "GetEnrichedOrders", started, logrus.Fields{"rows": len(rows)})
	log.WithFields(logrus.Fields{"rows": len(rows), "since": since.Format(time.RFC3339)}).Info("enriched order export ready")

	started = time.Now()
	orders, err := models.GetFunnelOrders(ctx, db)
	if err != nil {
		config.LogError(config.GetLogger(), "reports", "BuildOrderReport", "GetFunnelOrders", nil, err)
		return nil, fmt.Errorf("query funnel orders: %w", err)
	}
	logSlowPhase(ctx, "GetFunnelOrders", started, logrus.Fields{"orders": len(orders)})

	_, assembleSpan := tracer.Start(ctx, "AssembleOrderReport")
	report = AssembleOrderReport(orders, rows)
	assembleSpan.SetAttributes(
		attribute.Int("orders", len(orders)),
		attribute.Int("rows", len(rows)),
		attribute.Int("total_issues", report.TotalIssues()),
	)
	assembleSpan.End()

	report.RunId, _ = utils.GetRunIdFromContext(ctx)
	report.GeneratedAt = now
	report.WindowStart = since

	fields := logrus.Fields{"total_issues": report.TotalIssues()}
	for name, n := range report.Checks.Counts() {
		fields[string(name)] = n
	}
	log.WithFields(fields).Info("data checks finished")

	_, writeSpan := tracer.Start(ctx, "WriteWorkbook")
	started = time.Now()
	err = WriteWorkbook(opts.Out, report)
	endSpan(writeSpan, err)
	logSlowPhase(ctx, "WriteWorkbook", started, logrus.Fields{"out": opts.Out})
	if err != nil {
		config.LogError(config.GetLogger(), "reports", "BuildOrderReport", "WriteWorkbook", map[string]any{"out": opts.Out}, err)
		return nil, err
	}
	log.WithField("out", opts.Out).Info("workbook written")
	return report, nil
}
