package reports

import (
	"sort"

	"bitbucket.org/mmdatafocus/order_report/models"
	"github.com/shopspring/decimal"
)

type CheckName string

const (
	CheckQtyLE0               CheckName = "qty_le_0"
	CheckMarginLT0            CheckName = "margin_lt_0"
	CheckMissingRefs          CheckName = "missing_refs"
	CheckDuplicateExternalIds CheckName = "duplicate_external_ids"
)

// CheckOrder is the order checks are reported and rendered in.
var CheckOrder = []CheckName{
	CheckQtyLE0,
	CheckMarginLT0,
	CheckMissingRefs,
	CheckDuplicateExternalIds,
}

// Column projections per check.
var (
	BadQtyColumns              = []string{"order_id", "external_id", "sku", "qty", "status"}
	NegativeMarginColumns      = []string{"order_id", "external_id", "sku", "revenue", "cost", "margin", "status"}
	MissingRefColumns          = []string{"order_id", "external_id", "seller", "channel", "status"}
	DuplicateExternalIdColumns = []string{"external_id", "cnt"}
)

type BadQtyRow struct {
	OrderId    int                `json:"order_id"`
	ExternalId string             `json:"external_id"`
	Sku        string             `json:"sku"`
	Qty        int                `json:"qty"`
	Status     models.OrderStatus `json:"status"`
}

type NegativeMarginRow struct {
	OrderId    int                `json:"order_id"`
	ExternalId string             `json:"external_id"`
	Sku        string             `json:"sku"`
	Revenue    decimal.Decimal    `json:"revenue"`
	Cost       decimal.Decimal    `json:"cost"`
	Margin     decimal.Decimal    `json:"margin"`
	Status     models.OrderStatus `json:"status"`
}

type MissingRefRow struct {
	OrderId    int                `json:"order_id"`
	ExternalId string             `json:"external_id"`
	Seller     *string            `json:"seller"`
	Channel    *string            `json:"channel"`
	Status     models.OrderStatus `json:"status"`
}

type DuplicateExternalIdRow struct {
	ExternalId string `json:"external_id"`
	Count      int    `json:"cnt"`
}

// CheckResults holds one table per data-quality check. A row of the enriched
// view may show up in several tables.
type CheckResults struct {
	BadQty               []BadQtyRow              `json:"qty_le_0"`
	NegativeMargin       []NegativeMarginRow      `json:"margin_lt_0"`
	MissingRefs          []MissingRefRow          `json:"missing_refs"`
	DuplicateExternalIds []DuplicateExternalIdRow `json:"duplicate_external_ids"`
}

// CheckTable is a rendered projection of one check.
type CheckTable struct {
	Name    CheckName
	Columns []string
	Rows    [][]interface{}
}

func RunChecks(rows []*models.EnrichedOrder) CheckResults {
	return CheckResults{
		BadQty:               FindBadQty(rows),
		NegativeMargin:       FindNegativeMargins(rows),
		MissingRefs:          FindMissingRefs(rows),
		DuplicateExternalIds: FindDuplicateExternalIds(rows),
	}
}

func FindBadQty(rows []*models.EnrichedOrder) []BadQtyRow {
	out := []BadQtyRow{}
	for _, r := range rows {
		if r.Qty > 0 {
			continue
		}
		out = append(out, BadQtyRow{
			OrderId:    r.OrderId,
			ExternalId: r.ExternalId,
			Sku:        r.Sku,
			Qty:        r.Qty,
			Status:     r.Status,
		})
	}
	return out
}

func FindNegativeMargins(rows []*models.EnrichedOrder) []NegativeMarginRow {
	out := []NegativeMarginRow{}
	for _, r := range rows {
		if !r.Margin.IsNegative() {
			continue
		}
		out = append(out, NegativeMarginRow{
			OrderId:    r.OrderId,
			ExternalId: r.ExternalId,
			Sku:        r.Sku,
			Revenue:    r.Revenue,
			Cost:       r.Cost,
			Margin:     r.Margin,
			Status:     r.Status,
		})
	}
	return out
}

// FindMissingRefs flags rows whose seller is unknown or whose channel is absent or empty.
func FindMissingRefs(rows []*models.EnrichedOrder) []MissingRefRow {
	out := []MissingRefRow{}
	for _, r := range rows {
		if r.Seller != nil && hasChannel(r) {
			continue
		}
		out = append(out, MissingRefRow{
			OrderId:    r.OrderId,
			ExternalId: r.ExternalId,
			Seller:     r.Seller,
			Channel:    r.Channel,
			Status:     r.Status,
		})
	}
	return out
}

// FindDuplicateExternalIds counts enriched rows (line items, not orders) per
// external id and keeps ids seen more than once, sorted by external id.
func FindDuplicateExternalIds(rows []*models.EnrichedOrder) []DuplicateExternalIdRow {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.ExternalId]++
	}
	out := []DuplicateExternalIdRow{}
	for id, n := range counts {
		if n > 1 {
			out = append(out, DuplicateExternalIdRow{ExternalId: id, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalId < out[j].ExternalId })
	return out
}

func (c CheckResults) Counts() map[CheckName]int {
	return map[CheckName]int{
		CheckQtyLE0:               len(c.BadQty),
		CheckMarginLT0:            len(c.NegativeMargin),
		CheckMissingRefs:          len(c.MissingRefs),
		CheckDuplicateExternalIds: len(c.DuplicateExternalIds),
	}
}

// TotalIssues sums the table lengths; a row present in two tables counts twice.
func (c CheckResults) TotalIssues() int {
	return len(c.BadQty) + len(c.NegativeMargin) + len(c.MissingRefs) + len(c.DuplicateExternalIds)
}

func (c CheckResults) Passed() bool {
	return c.TotalIssues() == 0
}

// Tables projects every check in CheckOrder.
func (c CheckResults) Tables() []CheckTable {
	badQty := make([][]interface{}, 0, len(c.BadQty))
	for _, r := range c.BadQty {
		badQty = append(badQty, []interface{}{r.OrderId, r.ExternalId, r.Sku, r.Qty, string(r.Status)})
	}
	negMargin := make([][]interface{}, 0, len(c.NegativeMargin))
	for _, r := range c.NegativeMargin {
		negMargin = append(negMargin, []interface{}{
			r.OrderId, r.ExternalId, r.Sku,
			r.Revenue.InexactFloat64(), r.Cost.InexactFloat64(), r.Margin.InexactFloat64(),
			string(r.Status),
		})
	}
	missing := make([][]interface{}, 0, len(c.MissingRefs))
	for _, r := range c.MissingRefs {
		missing = append(missing, []interface{}{r.OrderId, r.ExternalId, nullableCell(r.Seller), nullableCell(r.Channel), string(r.Status)})
	}
	dups := make([][]interface{}, 0, len(c.DuplicateExternalIds))
	for _, r := range c.DuplicateExternalIds {
		dups = append(dups, []interface{}{r.ExternalId, r.Count})
	}
	return []CheckTable{
		{Name: CheckQtyLE0, Columns: BadQtyColumns, Rows: badQty},
		{Name: CheckMarginLT0, Columns: NegativeMarginColumns, Rows: negMargin},
		{Name: CheckMissingRefs, Columns: MissingRefColumns, Rows: missing},
		{Name: CheckDuplicateExternalIds, Columns: DuplicateExternalIdColumns, Rows: dups},
	}
}

// nullableCell leaves absent values as empty cells.
func nullableCell(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
