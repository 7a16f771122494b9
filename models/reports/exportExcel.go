package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"bitbucket.org/mmdatafocus/order_report/models"
	"github.com/xuri/excelize/v2"
)

const (
	SheetOrders    = "Orders"
	SheetSummary   = "Summary"
	SheetFunnel    = "Funnel"
	SheetDashboard = "Dashboard"
	SheetChecks    = "Checks"

	maxColumnWidth = 40
	// blank rows between two stacked check tables
	checkTableGap = 2
	// blank rows between the conversion table and the margin table on the dashboard
	dashboardGap = 4
	ratioNumFmt  = "0.0000"
)

var (
	OrderColumns          = []string{"order_id", "external_id", "date", "channel", "status", "updated_at", "delivered_at", "seller", "sku", "qty", "revenue", "cost", "margin"}
	SummaryColumns        = []string{"channel", "seller", "revenue_sum", "cost_sum", "margin_sum", "items_count", "orders_count"}
	FunnelColumns         = []string{"stage", "count"}
	ConversionColumns     = []string{"stage", "rate"}
	MarginByChannelColumn = []string{"channel", "margin"}
)

// sheetWriter writes rows to one sheet and remembers the widest value per column.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	bold   int
	widths map[int]int
}

func newSheetWriter(f *excelize.File, sheet string, boldStyle int) *sheetWriter {
	return &sheetWriter{f: f, sheet: sheet, bold: boldStyle, widths: map[int]int{}}
}

func (w *sheetWriter) writeRow(row int, values []interface{}) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		return err
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		if n := utf8.RuneCountInString(fmt.Sprint(v)); n > w.widths[i+1] {
			w.widths[i+1] = n
		}
	}
	return nil
}

func (w *sheetWriter) writeHeader(row int, columns []string) error {
	values := make([]interface{}, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	if err := w.writeRow(row, values); err != nil {
		return err
	}
	from, _ := excelize.CoordinatesToCellName(1, row)
	to, _ := excelize.CoordinatesToCellName(len(columns), row)
	return w.f.SetCellStyle(w.sheet, from, to, w.bold)
}

// writeTable writes a header at startRow followed by rows and returns the next free row.
func (w *sheetWriter) writeTable(startRow int, columns []string, rows [][]interface{}) (int, error) {
	if err := w.writeHeader(startRow, columns); err != nil {
		return 0, err
	}
	next := startRow + 1
	for _, r := range rows {
		if err := w.writeRow(next, r); err != nil {
			return 0, err
		}
		next++
	}
	return next, nil
}

// autoFit sets each used column to min(longest value + 2, maxColumnWidth).
func (w *sheetWriter) autoFit() error {
	for col, n := range w.widths {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(w.sheet, name, name, float64(min(n+2, maxColumnWidth))); err != nil {
			return err
		}
	}
	return nil
}

// rangeRef is an absolute single-column reference such as 'Dashboard'!$B$2:$B$6.
func rangeRef(sheet string, col, fromRow, toRow int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return fmt.Sprintf("'%s'!$%s$%d:$%s$%d", sheet, name, fromRow, name, toRow)
}

// barChart plots column B against the categories in column A; the series name
// is the header cell directly above firstRow.
func barChart(title, sheet string, firstRow, lastRow int, numFmt string) *excelize.Chart {
	return &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$B$%d", sheet, firstRow-1),
			Categories: rangeRef(sheet, 1, firstRow, lastRow),
			Values:     rangeRef(sheet, 2, firstRow, lastRow),
		}},
		Title:  []excelize.RichTextRun{{Text: title}},
		Legend: excelize.ChartLegend{Position: "none"},
		PlotArea: excelize.ChartPlotArea{
			ShowVal: true,
			NumFmt:  excelize.ChartNumFmt{CustomNumFmt: numFmt},
		},
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(models.CSVTimeLayout)
}

func orderRows(rows []*models.EnrichedOrder) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		var deliveredAt interface{}
		if r.DeliveredAt != nil {
			deliveredAt = formatTime(*r.DeliveredAt)
		}
		out = append(out, []interface{}{
			r.OrderId, r.ExternalId, formatTime(r.Date), nullableCell(r.Channel), string(r.Status),
			formatTime(r.UpdatedAt), deliveredAt, nullableCell(r.Seller), r.Sku, r.Qty,
			r.Revenue.InexactFloat64(), r.Cost.InexactFloat64(), r.Margin.InexactFloat64(),
		})
	}
	return out
}

func summaryRows(rows []ChannelSellerSummary) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, []interface{}{
			r.Channel, r.Seller,
			r.RevenueSum.InexactFloat64(), r.CostSum.InexactFloat64(), r.MarginSum.InexactFloat64(),
			r.ItemsCount, r.OrdersCount,
		})
	}
	return out
}

// WriteWorkbook renders the report to path, creating parent directories as needed.
//
// Sheets: Orders, Summary, Funnel, Dashboard (conversion + margin by channel,
// each with a bar chart) and Checks (the four check tables stacked in CheckOrder).
func WriteWorkbook(path string, r *OrderReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOrders); err != nil {
		return err
	}
	for _, name := range []string{SheetSummary, SheetFunnel, SheetDashboard, SheetChecks} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	writers := make([]*sheetWriter, 0, 5)
	for _, step := range []func() (*sheetWriter, error){
		func() (*sheetWriter, error) { return writeOrdersSheet(f, bold, r) },
		func() (*sheetWriter, error) { return writeSummarySheet(f, bold, r) },
		func() (*sheetWriter, error) { return writeFunnelSheet(f, bold, r) },
		func() (*sheetWriter, error) { return writeDashboardSheet(f, bold, r) },
		func() (*sheetWriter, error) { return writeChecksSheet(f, bold, r) },
	} {
		w, err := step()
		if err != nil {
			return err
		}
		writers = append(writers, w)
	}
	for _, w := range writers {
		if err := w.autoFit(); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeOrdersSheet(f *excelize.File, bold int, r *OrderReport) (*sheetWriter, error) {
	w := newSheetWriter(f, SheetOrders, bold)
	if _, err := w.writeTable(1, OrderColumns, orderRows(r.Orders)); err != nil {
		return nil, fmt.Errorf("%s sheet: %w", SheetOrders, err)
	}
	return w, nil
}

func writeSummarySheet(f *excelize.File, bold int, r *OrderReport) (*sheetWriter, error) {
	w := newSheetWriter(f, SheetSummary, bold)
	if _, err := w.writeTable(1, SummaryColumns, summaryRows(r.Summary)); err != nil {
		return nil, fmt.Errorf("%s sheet: %w", SheetSummary, err)
	}
	return w, nil
}

func writeFunnelSheet(f *excelize.File, bold int, r *OrderReport) (*sheetWriter, error) {
	w := newSheetWriter(f, SheetFunnel, bold)
	rows := make([][]interface{}, 0, len(r.Funnel.Counts))
	for _, c := range r.Funnel.Counts {
		rows = append(rows, []interface{}{string(c.Stage), c.Count})
	}
	next, err := w.writeTable(1, FunnelColumns, rows)
	if err != nil {
		return nil, fmt.Errorf("%s sheet: %w", SheetFunnel, err)
	}
	if err := f.AddChart(SheetFunnel, "D2", barChart("Funnel Counts", SheetFunnel, 2, next-1, "0")); err != nil {
		return nil, fmt.Errorf("%s chart: %w", SheetFunnel, err)
	}
	return w, nil
}

func writeDashboardSheet(f *excelize.File, bold int, r *OrderReport) (*sheetWriter, error) {
	w := newSheetWriter(f, SheetDashboard, bold)

	conv := make([][]interface{}, 0, len(r.Funnel.Conversions))
	for _, c := range r.Funnel.Conversions {
		conv = append(conv, []interface{}{c.Label, c.Rate})
	}
	next, err := w.writeTable(1, ConversionColumns, conv)
	if err != nil {
		return nil, fmt.Errorf("%s sheet: %w", SheetDashboard, err)
	}
	fmtCode := ratioNumFmt
	ratioStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &fmtCode})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetDashboard, "B2", fmt.Sprintf("B%d", next-1), ratioStyle); err != nil {
		return nil, err
	}
	if err := f.AddChart(SheetDashboard, "E2", barChart("Conversion Funnel", SheetDashboard, 2, next-1, ratioNumFmt)); err != nil {
		return nil, fmt.Errorf("%s conversion chart: %w", SheetDashboard, err)
	}

	marginStart := next + dashboardGap
	margins := make([][]interface{}, 0, len(r.MarginByChannel))
	for _, m := range r.MarginByChannel {
		margins = append(margins, []interface{}{m.Channel, m.Margin.InexactFloat64()})
	}
	end, err := w.writeTable(marginStart, MarginByChannelColumn, margins)
	if err != nil {
		return nil, fmt.Errorf("%s sheet: %w", SheetDashboard, err)
	}
	if len(margins) > 0 {
		if err := f.AddChart(SheetDashboard, "E20", barChart("Margin by Channel", SheetDashboard, marginStart+1, end-1, "#,##0.00")); err != nil {
			return nil, fmt.Errorf("%s margin chart: %w", SheetDashboard, err)
		}
	}
	return w, nil
}

// writeChecksSheet stacks the check tables top to bottom. Each table is
// titled with its check name and starts after the previous one ends.
func writeChecksSheet(f *excelize.File, bold int, r *OrderReport) (*sheetWriter, error) {
	w := newSheetWriter(f, SheetChecks, bold)
	row := 1
	for _, t := range r.Checks.Tables() {
		if err := w.writeRow(row, []interface{}{string(t.Name)}); err != nil {
			return nil, err
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellStyle(SheetChecks, cell, cell, bold); err != nil {
			return nil, err
		}
		next, err := w.writeTable(row+1, t.Columns, t.Rows)
		if err != nil {
			return nil, fmt.Errorf("%s sheet, %s: %w", SheetChecks, t.Name, err)
		}
		row = next + checkTableGap
	}
	return w, nil
}
