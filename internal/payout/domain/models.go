package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PayoutItem is the engine's durable record of one delivered order item's
// earning, exactly one per order item.
type PayoutItem struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id"`
	PayoutID            *snowflake.ID `gorm:"index" json:"payout_id,omitempty"`
	OrderID             snowflake.ID  `gorm:"not null" json:"order_id"`
	OrderItemID         snowflake.ID  `gorm:"not null;uniqueIndex:ux_payout_items_order_item" json:"order_item_id"`
	PaymentID           *snowflake.ID `json:"payment_id,omitempty"`
	SellerID            snowflake.ID  `gorm:"not null;index:ix_payout_items_seller_settled" json:"seller_id"`
	OrderDate           time.Time     `gorm:"not null" json:"order_date"`
	ItemSubtotal        float64       `gorm:"not null;default:0" json:"item_subtotal"`
	AllocatedFee        float64       `gorm:"not null;default:0" json:"allocated_fee"`
	AllocatedTax        float64       `gorm:"not null;default:0" json:"allocated_tax"`
	IsSettled           bool          `gorm:"not null;default:false;index:ix_payout_items_seller_settled" json:"is_settled"`
	IsRefunded          bool          `gorm:"not null;default:false" json:"is_refunded"`
	SettlementHoldUntil time.Time     `gorm:"not null" json:"settlement_hold_until"`
	CreatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// NetEarning is the gross subtotal minus allocated processor fee and tax.
func (p PayoutItem) NetEarning() float64 {
	return p.ItemSubtotal - p.AllocatedFee - p.AllocatedTax
}

// SellerBalance is the per-seller running ledger state. Mutated only through
// atomic increments in the repository.
type SellerBalance struct {
	SellerID         snowflake.ID `gorm:"primaryKey" json:"seller_id"`
	AvailableBalance float64      `gorm:"not null;default:0" json:"available_balance"`
	PendingBalance   float64      `gorm:"not null;default:0" json:"pending_balance"`
	TotalEarned      float64      `gorm:"not null;default:0" json:"total_earned"`
	TotalPaidOut     float64      `gorm:"not null;default:0" json:"total_paid_out"`
	TotalRefunded    float64      `gorm:"not null;default:0" json:"total_refunded"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

type TransactionType string

const (
	TransactionTypeOrder TransactionType = "order"
)

type BalanceBucket string

const (
	BalanceBucketAvailable BalanceBucket = "available"
	BalanceBucketPending   BalanceBucket = "pending"
)

// BalanceTransaction is the append-only audit log of balance mutations.
type BalanceTransaction struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	SellerID           snowflake.ID      `gorm:"not null;index" json:"seller_id"`
	Type               TransactionType   `gorm:"not null" json:"type"`
	Amount             float64           `gorm:"not null" json:"amount"`
	BalanceBefore      float64           `gorm:"not null" json:"balance_before"`
	BalanceAfter       float64           `gorm:"not null" json:"balance_after"`
	RelatedOrderID     *snowflake.ID     `json:"related_order_id,omitempty"`
	RelatedOrderItemID *snowflake.ID     `json:"related_order_item_id,omitempty"`
	Description        string            `gorm:"not null;default:''" json:"description"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

type PayoutStatus string

const (
	PayoutStatusApproved PayoutStatus = "approved"
	PayoutStatusPaid     PayoutStatus = "paid"
)

// Payout is a monthly settlement batch produced by the external settlement
// job. Read-only input to categorization and aggregation.
type Payout struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	SellerID         snowflake.ID `gorm:"not null;index" json:"seller_id"`
	Status           PayoutStatus `gorm:"not null" json:"status"`
	PayoutMonth      int          `gorm:"not null" json:"payout_month"`
	PayoutYear       int          `gorm:"not null" json:"payout_year"`
	NetAmount        float64      `gorm:"not null;default:0" json:"net_amount"`
	GrossSales       float64      `gorm:"not null;default:0" json:"gross_sales"`
	Fees             float64      `gorm:"not null;default:0" json:"fees"`
	RefundDeductions float64      `gorm:"not null;default:0" json:"refund_deductions"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PayoutItem) TableName() string         { return "payout_items" }
func (SellerBalance) TableName() string      { return "seller_balances" }
func (BalanceTransaction) TableName() string { return "balance_transactions" }
func (Payout) TableName() string             { return "payouts" }
