package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type OrderItemStatus string

const (
	OrderItemStatusPlaced    OrderItemStatus = "placed"
	OrderItemStatusInTransit OrderItemStatus = "in_transit"
	OrderItemStatusDelivered OrderItemStatus = "delivered"
	OrderItemStatusCancelled OrderItemStatus = "cancelled"
	OrderItemStatusReturned  OrderItemStatus = "returned"
)

// OrderItem is one line of an order. Owned by the order subsystem and
// read-only to the settlement engine.
type OrderItem struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID   snowflake.ID    `gorm:"not null;index" json:"order_id"`
	SellerID  snowflake.ID    `gorm:"not null;index" json:"seller_id"`
	ListingID snowflake.ID    `gorm:"not null" json:"listing_id"`
	Quantity  int64           `gorm:"not null;default:1" json:"quantity"`
	UnitPrice float64         `gorm:"not null;default:0" json:"unit_price"`
	Subtotal  *float64        `json:"subtotal,omitempty"`
	Status    OrderItemStatus `gorm:"not null" json:"status"`
	OrderDate time.Time       `gorm:"not null" json:"order_date"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// GrossSubtotal prefers the explicit subtotal when the order subsystem
// supplied one, otherwise quantity times unit price.
func (i OrderItem) GrossSubtotal() float64 {
	if i.Subtotal != nil {
		return *i.Subtotal
	}
	return float64(i.Quantity) * i.UnitPrice
}

// Payment covers all items of one order, possibly spanning several sellers.
type Payment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID   snowflake.ID `gorm:"not null;index" json:"order_id"`
	Amount    float64      `gorm:"not null;default:0" json:"amount"`
	Fee       float64      `gorm:"not null;default:0" json:"fee"`
	Tax       float64      `gorm:"not null;default:0" json:"tax"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

type RefundStatus string

const (
	RefundStatusPending  RefundStatus = "pending"
	RefundStatusApproved RefundStatus = "approved"
	RefundStatusSettled  RefundStatus = "settled"
)

// RefundRecord is a refund issued against one order item. The settled fields
// are written by the external batch-settlement job.
type RefundRecord struct {
	ID                snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrderItemID       snowflake.ID  `gorm:"not null;index" json:"order_item_id"`
	SellerID          snowflake.ID  `gorm:"not null;index" json:"seller_id"`
	Amount            float64       `gorm:"not null;default:0" json:"amount"`
	Status            RefundStatus  `gorm:"not null" json:"status"`
	SettledInPayoutID *snowflake.ID `json:"settled_in_payout_id,omitempty"`
	SettledAt         *time.Time    `json:"settled_at,omitempty"`
	ProcessedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"processed_at"`
}

// SettledInPayout reports whether this refund was already deducted from a
// settlement batch.
func (r RefundRecord) SettledInPayout() bool {
	return r.SettledInPayoutID != nil
}

// ReturnPolicy is per-listing return configuration. ReturnDays nil or zero on
// an existing row means the listing is non-returnable; an absent row means the
// platform default window applies.
type ReturnPolicy struct {
	ListingID  snowflake.ID `gorm:"primaryKey" json:"listing_id"`
	ReturnDays *int         `json:"return_days"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
