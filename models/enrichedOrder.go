package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EnrichedOrder is one (order, line item) pair decorated with the seller name
// and margin. Seller is nil when the order points at an unknown seller;
// Channel is nil when the store has no value for it.
type EnrichedOrder struct {
	OrderId     int             `json:"order_id"`
	ExternalId  string          `json:"external_id"`
	Date        time.Time       `json:"date"`
	Channel     *string         `json:"channel"`
	Seller      *string         `json:"seller"`
	Status      OrderStatus     `json:"status"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeliveredAt *time.Time      `json:"delivered_at"`
	Sku         string          `json:"sku"`
	Qty         int             `json:"qty"`
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
	Margin      decimal.Decimal `json:"margin"`
}

// OrderStatusRow is the per-order projection the funnel works from.
type OrderStatusRow struct {
	ID         int         `json:"id"`
	ExternalId string      `json:"external_id"`
	Status     OrderStatus `json:"status"`
}

const enrichedOrdersSQL = `
SELECT
    o.id AS order_id,
    o.external_id,
    o.date,
    o.channel,
    o.status,
    o.updated_at,
    o.delivered_at,
    s.name AS seller,
    i.sku,
    i.qty,
    i.revenue,
    i.cost
FROM
    orders o
    JOIN order_items i ON i.order_id = o.id
    LEFT JOIN sellers s ON s.id = o.seller_id
WHERE
    o.date >= @since
ORDER BY
    o.id, i.id
`

// TrailingWindowStart is the inclusive lower bound of a days-long window ending at now.
func TrailingWindowStart(now time.Time, days int) time.Time {
	return now.UTC().AddDate(0, 0, -days)
}

// GetEnrichedOrders returns the enriched order view for orders dated on or after since.
func GetEnrichedOrders(ctx context.Context, db *gorm.DB, since time.Time) ([]*EnrichedOrder, error) {
	var records []*EnrichedOrder
	if err := db.WithContext(ctx).Raw(enrichedOrdersSQL, map[string]interface{}{
		"since": since.UTC(),
	}).Scan(&records).Error; err != nil {
		return nil, err
	}
	// margin = revenue - cost on decimals
	for _, r := range records {
		r.Margin = r.Revenue.Sub(r.Cost)
	}
	return records, nil
}

// GetFunnelOrders returns every order in the store, one row per order, unwindowed.
func GetFunnelOrders(ctx context.Context, db *gorm.DB) ([]OrderStatusRow, error) {
	var rows []OrderStatusRow
	if err := db.WithContext(ctx).Model(&Order{}).
		Select("id, external_id, status").
		Order("id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
