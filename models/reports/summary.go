package reports

import (
	"sort"

	"bitbucket.org/mmdatafocus/order_report/models"
	"github.com/shopspring/decimal"
)

type ChannelSellerSummary struct {
	Channel     string          `json:"channel"`
	Seller      string          `json:"seller"`
	RevenueSum  decimal.Decimal `json:"revenue_sum"`
	CostSum     decimal.Decimal `json:"cost_sum"`
	MarginSum   decimal.Decimal `json:"margin_sum"`
	ItemsCount  int             `json:"items_count"`
	OrdersCount int             `json:"orders_count"`
}

type ChannelMargin struct {
	Channel string          `json:"channel"`
	Margin  decimal.Decimal `json:"margin"`
}

type channelSellerKey struct {
	channel string
	seller  string
}

func hasChannel(r *models.EnrichedOrder) bool {
	return r.Channel != nil && *r.Channel != ""
}

// SummarizeByChannelSeller aggregates revenue, cost and margin per (channel, seller).
// Rows with no seller or with an absent or empty channel have no group and are
// left out; they are reported by the missing_refs check instead.
func SummarizeByChannelSeller(rows []*models.EnrichedOrder) []ChannelSellerSummary {
	groups := make(map[channelSellerKey]*ChannelSellerSummary)
	orders := make(map[channelSellerKey]map[int]struct{})
	for _, r := range rows {
		if !hasChannel(r) || r.Seller == nil {
			continue
		}
		key := channelSellerKey{channel: *r.Channel, seller: *r.Seller}
		g, ok := groups[key]
		if !ok {
			g = &ChannelSellerSummary{Channel: key.channel, Seller: key.seller}
			groups[key] = g
			orders[key] = make(map[int]struct{})
		}
		g.RevenueSum = g.RevenueSum.Add(r.Revenue)
		g.CostSum = g.CostSum.Add(r.Cost)
		g.MarginSum = g.MarginSum.Add(r.Margin)
		g.ItemsCount++
		orders[key][r.OrderId] = struct{}{}
	}

	out := make([]ChannelSellerSummary, 0, len(groups))
	for key, g := range groups {
		g.OrdersCount = len(orders[key])
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Channel != out[j].Channel {
			return out[i].Channel < out[j].Channel
		}
		return out[i].Seller < out[j].Seller
	})
	return out
}

// MarginByChannel sums margin per channel, largest first. Rows with an absent
// or empty channel are skipped.
func MarginByChannel(rows []*models.EnrichedOrder) []ChannelMargin {
	sums := make(map[string]decimal.Decimal)
	for _, r := range rows {
		if !hasChannel(r) {
			continue
		}
		sums[*r.Channel] = sums[*r.Channel].Add(r.Margin)
	}
	out := make([]ChannelMargin, 0, len(sums))
	for ch, m := range sums {
		out = append(out, ChannelMargin{Channel: ch, Margin: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Margin.Cmp(out[j].Margin); c != 0 {
			return c > 0
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}
