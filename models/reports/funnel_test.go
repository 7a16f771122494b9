package reports

import (
	"fmt"
	"testing"

	"bitbucket.org/mmdatafocus/order_report/models"
	"github.com/google/go-cmp/cmp"
)

func statusRows(ids []string, statuses []models.OrderStatus) []models.OrderStatusRow {
	rows := make([]models.OrderStatusRow, len(ids))
	for i := range ids {
		rows[i] = models.OrderStatusRow{ID: i + 1, ExternalId: ids[i], Status: statuses[i]}
	}
	return rows
}

func stageCounts(created, paid, prodStarted, shipped, delivered int) []StageCount {
	return []StageCount{
		{Stage: models.OrderStatusCreated, Count: created},
		{Stage: models.OrderStatusPaid, Count: paid},
		{Stage: models.OrderStatusProdStarted, Count: prodStarted},
		{Stage: models.OrderStatusShipped, Count: shipped},
		{Stage: models.OrderStatusDelivered, Count: delivered},
	}
}

func TestBuildStageMatrix_DuplicatesAndImpliedStages(t *testing.T) {
	orders := statusRows(
		[]string{"A", "A", "B", "C"},
		[]models.OrderStatus{models.OrderStatusCreated, models.OrderStatusDelivered, models.OrderStatusPaid, models.OrderStatusCancelled},
	)
	m := BuildStageMatrix(orders)

	want := map[string]StageFlags{
		"A": {true, true, true, true, true},
		"B": {true, true, false, false, false},
		"C": {true, false, false, false, false},
	}
	if diff := cmp.Diff(want, m.Reached); diff != "" {
		t.Fatalf("stage matrix mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, m.Keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if !m.Reached["B"].Reached(models.OrderStatusPaid) || m.Reached["B"].Reached(models.OrderStatusShipped) {
		t.Fatalf("unexpected flags for B: %v", m.Reached["B"])
	}
	if m.Reached["C"].Reached(models.OrderStatusCancelled) {
		t.Fatalf("cancelled is not a funnel stage")
	}
}

func TestComputeFunnel_Scenario(t *testing.T) {
	orders := statusRows(
		[]string{"A", "A", "B", "C"},
		[]models.OrderStatus{models.OrderStatusCreated, models.OrderStatusDelivered, models.OrderStatusPaid, models.OrderStatusCancelled},
	)
	f := ComputeFunnel(orders)

	want := stageCounts(3, 2, 1, 1, 1)
	if diff := cmp.Diff(want, f.RawCounts); diff != "" {
		t.Fatalf("raw counts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, f.Counts); diff != "" {
		t.Fatalf("corrected counts mismatch (-want +got):\n%s", diff)
	}

	wantConv := []Conversion{
		{Label: "paid/created", Rate: 0.6667},
		{Label: "prod_started/paid", Rate: 0.5},
		{Label: "shipped/prod_started", Rate: 1},
		{Label: "delivered/shipped", Rate: 1},
		{Label: "delivered/created", Rate: 0.3333},
	}
	if diff := cmp.Diff(wantConv, f.Conversions); diff != "" {
		t.Fatalf("conversions mismatch (-want +got):\n%s", diff)
	}
}

func TestCorrectFunnel(t *testing.T) {
	cases := []struct {
		name string
		in   []StageCount
		want []StageCount
	}{
		{"already monotonic", stageCounts(10, 8, 5, 5, 1), stageCounts(10, 8, 5, 5, 1)},
		{"paid above created", stageCounts(100, 150, 90, 80, 70), stageCounts(100, 100, 90, 80, 70)},
		{"cascade uses corrected predecessor", stageCounts(10, 20, 30, 5, 40), stageCounts(10, 10, 10, 5, 5)},
		{"all zero", stageCounts(0, 0, 0, 0, 0), stageCounts(0, 0, 0, 0, 0)},
	}
	for _, tc := range cases {
		in := append([]StageCount(nil), tc.in...)
		got := CorrectFunnel(tc.in)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s: mismatch (-want +got):\n%s", tc.name, diff)
		}
		if diff := cmp.Diff(in, tc.in); diff != "" {
			t.Fatalf("%s: input was modified:\n%s", tc.name, diff)
		}
	}
}

func TestConversionRates_ClampedPaid(t *testing.T) {
	conv := ConversionRates(CorrectFunnel(stageCounts(100, 150, 0, 0, 0)))
	if conv[0].Label != "paid/created" || conv[0].Rate != 1 {
		t.Fatalf("expected paid/created = 1, got %+v", conv[0])
	}
	for _, c := range conv {
		if c.Rate < 0 || c.Rate > 1 {
			t.Fatalf("rate %s out of range: %v", c.Label, c.Rate)
		}
	}
}

func TestComputeFunnel_Empty(t *testing.T) {
	f := ComputeFunnel(nil)
	if diff := cmp.Diff(stageCounts(0, 0, 0, 0, 0), f.Counts); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
	if len(f.Conversions) != len(ConversionPairs) {
		t.Fatalf("expected %d conversions, got %d", len(ConversionPairs), len(f.Conversions))
	}
	for _, c := range f.Conversions {
		if c.Rate != 0 {
			t.Fatalf("expected 0 for %s on empty input, got %v", c.Label, c.Rate)
		}
	}
	if len(f.Matrix.Keys) != 0 {
		t.Fatalf("expected empty matrix, got %d keys", len(f.Matrix.Keys))
	}
}

func TestComputeFunnel_CancelledOnlyCountsAsCreated(t *testing.T) {
	orders := statusRows(
		[]string{"X", "X"},
		[]models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusCancelled},
	)
	f := ComputeFunnel(orders)
	if diff := cmp.Diff(stageCounts(1, 0, 0, 0, 0), f.Counts); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeFunnel_MonotonicOnGeneratedMix(t *testing.T) {
	statuses := append([]models.OrderStatus{}, models.AllOrderStatuses...)
	var ids []string
	var sts []models.OrderStatus
	for i := 0; i < 300; i++ {
		ids = append(ids, fmt.Sprintf("ORD-%d", i%170))
		sts = append(sts, statuses[(i*7)%len(statuses)])
	}
	f := ComputeFunnel(statusRows(ids, sts))
	if f.Counts[0].Count != 170 {
		t.Fatalf("every key reaches created: expected 170, got %d", f.Counts[0].Count)
	}
	for i := 1; i < len(f.Counts); i++ {
		if f.Counts[i].Count > f.Counts[i-1].Count {
			t.Fatalf("counts not non-increasing at %s: %+v", f.Counts[i].Stage, f.Counts)
		}
	}
	for i, c := range f.Counts {
		if c.Stage != FunnelStages[i] {
			t.Fatalf("stage %d: expected %s, got %s", i, FunnelStages[i], c.Stage)
		}
	}
}
