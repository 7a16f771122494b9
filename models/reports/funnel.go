package reports

import (
	"fmt"
	"sort"

	"bitbucket.org/mmdatafocus/order_report/models"
)

const stageCount = 5

// FunnelStages is the fixed lifecycle order. Cancelled orders are outside it.
var FunnelStages = [stageCount]models.OrderStatus{
	models.OrderStatusCreated,
	models.OrderStatusPaid,
	models.OrderStatusProdStarted,
	models.OrderStatusShipped,
	models.OrderStatusDelivered,
}

type ConversionPair struct {
	Numerator   models.OrderStatus
	Denominator models.OrderStatus
}

func (p ConversionPair) Label() string {
	return fmt.Sprintf("%s/%s", p.Numerator, p.Denominator)
}

// ConversionPairs are the adjacent-stage ratios plus the end-to-end delivered/created ratio.
var ConversionPairs = []ConversionPair{
	{models.OrderStatusPaid, models.OrderStatusCreated},
	{models.OrderStatusProdStarted, models.OrderStatusPaid},
	{models.OrderStatusShipped, models.OrderStatusProdStarted},
	{models.OrderStatusDelivered, models.OrderStatusShipped},
	{models.OrderStatusDelivered, models.OrderStatusCreated},
}

// stageIndex maps a status to its funnel position; ok is false for non-funnel statuses.
func stageIndex(s models.OrderStatus) (int, bool) {
	for i, stage := range FunnelStages {
		if stage == s {
			return i, true
		}
	}
	return 0, false
}

// StageFlags marks, per funnel position, whether a stage was reached.
type StageFlags [stageCount]bool

func (f StageFlags) Reached(s models.OrderStatus) bool {
	i, ok := stageIndex(s)
	return ok && f[i]
}

// StageMatrix is the stage-reached matrix keyed by external id.
// Keys is sorted so iteration is deterministic.
type StageMatrix struct {
	Keys    []string
	Reached map[string]StageFlags
}

type StageCount struct {
	Stage models.OrderStatus `json:"stage"`
	Count int                `json:"count"`
}

type Conversion struct {
	Label string  `json:"stage"`
	Rate  float64 `json:"rate"`
}

type Funnel struct {
	Matrix      StageMatrix  `json:"-"`
	RawCounts   []StageCount `json:"raw_counts"`
	Counts      []StageCount `json:"counts"`
	Conversions []Conversion `json:"conversions"`
}

// BuildStageMatrix groups orders by external id. A stage is reached when any
// order with that key currently has exactly that status; delivered implies
// every earlier stage; every key has been created.
func BuildStageMatrix(orders []models.OrderStatusRow) StageMatrix {
	reached := make(map[string]StageFlags)
	for _, o := range orders {
		flags := reached[o.ExternalId]
		if i, ok := stageIndex(o.Status); ok {
			flags[i] = true
		}
		reached[o.ExternalId] = flags
	}

	deliveredAt, _ := stageIndex(models.OrderStatusDelivered)
	keys := make([]string, 0, len(reached))
	for key, flags := range reached {
		if flags[deliveredAt] {
			for i := 0; i < deliveredAt; i++ {
				flags[i] = true
			}
		}
		flags[0] = true
		reached[key] = flags
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return StageMatrix{Keys: keys, Reached: reached}
}

// Counts sums each stage column of the matrix, in stage order.
func (m StageMatrix) Counts() []StageCount {
	var totals [stageCount]int
	for _, flags := range m.Reached {
		for i, ok := range flags {
			if ok {
				totals[i]++
			}
		}
	}
	counts := make([]StageCount, stageCount)
	for i, stage := range FunnelStages {
		counts[i] = StageCount{Stage: stage, Count: totals[i]}
	}
	return counts
}

// CorrectFunnel returns a copy of counts where no stage exceeds its predecessor.
// It walks left to right and compares against the already corrected predecessor.
func CorrectFunnel(counts []StageCount) []StageCount {
	out := make([]StageCount, len(counts))
	copy(out, counts)
	for i := 1; i < len(out); i++ {
		if out[i].Count > out[i-1].Count {
			out[i].Count = out[i-1].Count
		}
	}
	return out
}

func countFor(counts []StageCount, stage models.OrderStatus) int {
	for _, c := range counts {
		if c.Stage == stage {
			return c.Count
		}
	}
	return 0
}

// ConversionRates evaluates ConversionPairs against counts.
func ConversionRates(counts []StageCount) []Conversion {
	out := make([]Conversion, 0, len(ConversionPairs))
	for _, p := range ConversionPairs {
		out = append(out, Conversion{
			Label: p.Label(),
			Rate:  ConversionRatio(countFor(counts, p.Numerator), countFor(counts, p.Denominator)),
		})
	}
	return out
}

func ComputeFunnel(orders []models.OrderStatusRow) Funnel {
	matrix := BuildStageMatrix(orders)
	raw := matrix.Counts()
	corrected := CorrectFunnel(raw)
	return Funnel{
		Matrix:      matrix,
		RawCounts:   raw,
		Counts:      corrected,
		Conversions: ConversionRates(corrected),
	}
}
