package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Seller struct {
	ID   int    `gorm:"primary_key;autoIncrement:false" json:"id"`
	Name string `gorm:"size:255;not null" json:"name"`
}

// Order is one submission of a business order. ExternalId is the business key
// and may repeat across submissions.
//
// SellerId is not a foreign key; orders that reference unknown sellers load
// and are reported by the missing_refs check.
type Order struct {
	ID          int         `gorm:"primary_key;autoIncrement:false" json:"id"`
	ExternalId  string      `gorm:"size:64;not null;index:idx_orders_external_id" json:"external_id"`
	Date        time.Time   `gorm:"not null;index:idx_orders_date" json:"date"`
	Channel     string      `gorm:"size:32;not null" json:"channel"`
	SellerId    *int        `json:"seller_id"`
	Status      OrderStatus `gorm:"size:32;not null" json:"status"`
	UpdatedAt   time.Time   `gorm:"not null;autoUpdateTime:false;index:idx_orders_updated_at" json:"updated_at"`
	DeliveredAt *time.Time  `gorm:"index:idx_orders_delivered_at" json:"delivered_at"`
}

type OrderItem struct {
	ID      int             `gorm:"primary_key" json:"-"`
	OrderId int             `gorm:"not null;index:idx_order_items_order_id" json:"order_id"`
	Sku     string          `gorm:"size:64;not null" json:"sku"`
	Qty     int             `gorm:"not null" json:"qty"`
	Revenue decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"revenue"`
	Cost    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"cost"`
}
