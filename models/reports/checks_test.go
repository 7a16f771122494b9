package reports

import (
	"testing"

	"bitbucket.org/mmdatafocus/order_report/models"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func enrichedRow(orderId int, externalId string, qty int, revenue, cost string) *models.EnrichedOrder {
	r := &models.EnrichedOrder{
		OrderId:    orderId,
		ExternalId: externalId,
		Channel:    strPtr("site"),
		Seller:     strPtr("Seller 001"),
		Status:     models.OrderStatusDelivered,
		Sku:        "TB-1000",
		Qty:        qty,
		Revenue:    decimal.RequireFromString(revenue),
		Cost:       decimal.RequireFromString(cost),
	}
	r.Margin = r.Revenue.Sub(r.Cost)
	return r
}

func TestRunChecks_Clean(t *testing.T) {
	rows := []*models.EnrichedOrder{
		enrichedRow(1, "ORD-1", 2, "30", "20"),
		enrichedRow(2, "ORD-2", 1, "15.50", "15.50"),
	}
	res := RunChecks(rows)
	if !res.Passed() || res.TotalIssues() != 0 {
		t.Fatalf("expected clean data to pass, got %+v", res.Counts())
	}
}

func TestRunChecks_BadQtyAndNegativeMarginCountTwice(t *testing.T) {
	rows := []*models.EnrichedOrder{
		enrichedRow(7, "ORD-7", 0, "10", "20"),
		enrichedRow(8, "ORD-8", 3, "40", "10"),
	}
	res := RunChecks(rows)

	wantQty := []BadQtyRow{{OrderId: 7, ExternalId: "ORD-7", Sku: "TB-1000", Qty: 0, Status: models.OrderStatusDelivered}}
	if diff := cmp.Diff(wantQty, res.BadQty); diff != "" {
		t.Fatalf("bad qty mismatch (-want +got):\n%s", diff)
	}
	if len(res.NegativeMargin) != 1 || res.NegativeMargin[0].OrderId != 7 {
		t.Fatalf("expected order 7 in negative margin table, got %+v", res.NegativeMargin)
	}
	if !res.NegativeMargin[0].Margin.Equal(decimal.NewFromInt(-10)) {
		t.Fatalf("expected margin -10, got %s", res.NegativeMargin[0].Margin)
	}
	if res.TotalIssues() != 2 {
		t.Fatalf("expected 2 issues, got %d", res.TotalIssues())
	}
	if res.Passed() {
		t.Fatalf("expected checks to fail")
	}
}

func TestFindBadQty_Negative(t *testing.T) {
	rows := []*models.EnrichedOrder{
		enrichedRow(1, "ORD-1", -1, "0", "0"),
		enrichedRow(2, "ORD-2", 1, "1", "0"),
	}
	got := FindBadQty(rows)
	if len(got) != 1 || got[0].Qty != -1 {
		t.Fatalf("expected one qty=-1 row, got %+v", got)
	}
}

func TestFindNegativeMargins_ZeroMarginIsFine(t *testing.T) {
	rows := []*models.EnrichedOrder{enrichedRow(1, "ORD-1", 1, "20", "20")}
	if got := FindNegativeMargins(rows); len(got) != 0 {
		t.Fatalf("zero margin must not be flagged, got %+v", got)
	}
}

func TestFindMissingRefs(t *testing.T) {
	noSeller := enrichedRow(1, "ORD-1", 1, "2", "1")
	noSeller.Seller = nil
	noChannel := enrichedRow(2, "ORD-2", 1, "2", "1")
	noChannel.Channel = nil
	emptyChannel := enrichedRow(3, "ORD-3", 1, "2", "1")
	emptyChannel.Channel = strPtr("")
	ok := enrichedRow(4, "ORD-4", 1, "2", "1")

	got := FindMissingRefs([]*models.EnrichedOrder{noSeller, noChannel, emptyChannel, ok})
	var ids []int
	for _, r := range got {
		ids = append(ids, r.OrderId)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, ids); diff != "" {
		t.Fatalf("missing refs mismatch (-want +got):\n%s", diff)
	}
	if got[0].Seller != nil || *got[0].Channel != "site" {
		t.Fatalf("unexpected projection: %+v", got[0])
	}
}

func TestFindDuplicateExternalIds_CountsLineItems(t *testing.T) {
	rows := []*models.EnrichedOrder{
		enrichedRow(1, "A", 1, "2", "1"),
		enrichedRow(2, "A", 1, "2", "1"),
		enrichedRow(3, "B", 1, "2", "1"),
		enrichedRow(3, "B", 2, "2", "1"),
		enrichedRow(4, "C", 1, "2", "1"),
	}
	want := []DuplicateExternalIdRow{{ExternalId: "A", Count: 2}, {ExternalId: "B", Count: 2}}
	if diff := cmp.Diff(want, FindDuplicateExternalIds(rows)); diff != "" {
		t.Fatalf("duplicates mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckResults_TablesFollowCheckOrder(t *testing.T) {
	res := RunChecks(nil)
	if res.TotalIssues() != 0 || !res.Passed() {
		t.Fatalf("empty input must pass")
	}
	tables := res.Tables()
	if len(tables) != len(CheckOrder) {
		t.Fatalf("expected %d tables, got %d", len(CheckOrder), len(tables))
	}
	for i, tbl := range tables {
		if tbl.Name != CheckOrder[i] {
			t.Fatalf("table %d: expected %s, got %s", i, CheckOrder[i], tbl.Name)
		}
		if len(tbl.Rows) != 0 {
			t.Fatalf("table %s: expected no rows", tbl.Name)
		}
	}
}

func TestCheckResults_TotalIsSumOfCounts(t *testing.T) {
	noSeller := enrichedRow(3, "D", -1, "1", "5")
	noSeller.Seller = nil
	rows := []*models.EnrichedOrder{
		enrichedRow(1, "D", 1, "10", "1"),
		enrichedRow(2, "E", 0, "10", "1"),
		noSeller,
	}
	res := RunChecks(rows)
	sum := 0
	for _, name := range CheckOrder {
		sum += res.Counts()[name]
	}
	if sum != res.TotalIssues() {
		t.Fatalf("expected total %d to equal sum of counts %d", res.TotalIssues(), sum)
	}
	// bad qty: 2,3; negative margin: 3; missing refs: 3; duplicates: D
	if res.TotalIssues() != 5 {
		t.Fatalf("expected 5 issues, got %d (%v)", res.TotalIssues(), res.Counts())
	}
}
