package models

import (
	"errors"
	"fmt"
	"strings"
)

type OrderStatus string

const (
	OrderStatusCreated     OrderStatus = "created"
	OrderStatusPaid        OrderStatus = "paid"
	OrderStatusProdStarted OrderStatus = "prod_started"
	OrderStatusShipped     OrderStatus = "shipped"
	OrderStatusDelivered   OrderStatus = "delivered"
	OrderStatusCancelled   OrderStatus = "cancelled"
)

var ErrInvalidOrderStatus = errors.New("invalid order status")

// AllOrderStatuses lists every status the store accepts, funnel stages first.
var AllOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusPaid,
	OrderStatusProdStarted,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusProdStarted,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// convert input to enum type
func ParseOrderStatus(str string) (OrderStatus, error) {
	s := OrderStatus(strings.TrimSpace(str))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrderStatus, str)
	}
	return s, nil
}

type SalesChannel string

const (
	SalesChannelSite SalesChannel = "site"
	SalesChannelOzon SalesChannel = "ozon"
	SalesChannelB24  SalesChannel = "b24"
)
