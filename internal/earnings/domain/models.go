package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/trovio/settled/internal/order/domain"
	payoutdomain "github.com/trovio/settled/internal/payout/domain"
	"github.com/trovio/settled/internal/settlement"
)

// Item is one payout item enriched with the order state and return-window
// evaluation the bucket rules were applied to.
type Item struct {
	payoutdomain.PayoutItem
	Status       orderdomain.OrderItemStatus `json:"status"`
	ListingID    snowflake.ID                `json:"listing_id"`
	ReturnWindow settlement.ReturnWindow     `json:"return_window"`
}

// RefundDetail summarizes one refund row for the seller-facing view.
type RefundDetail struct {
	RefundID       snowflake.ID             `json:"refund_id"`
	OrderItemID    snowflake.ID             `json:"order_item_id"`
	Amount         float64                  `json:"amount"`
	Status         orderdomain.RefundStatus `json:"status"`
	WasInPayout    bool                     `json:"was_in_payout"`
	WasAlreadyPaid bool                     `json:"was_already_paid"`
	ProcessedAt    time.Time                `json:"processed_at"`
}

// Stats are the aggregate figures derived from the categorized sets plus the
// seller's payout history.
type Stats struct {
	TotalPayoutTillDate  float64 `json:"total_payout_till_date"`
	FuturePayoutAmount   float64 `json:"future_payout_amount"`
	LastMonthPayout      float64 `json:"last_month_payout"`
	TotalRefundsDeducted float64 `json:"total_refunds_deducted"`
	PaidGrossAmount      float64 `json:"paid_gross_amount"`
	PaidRefundsDeducted  float64 `json:"paid_refunds_deducted"`

	PendingNet  float64 `json:"pending_net"`
	OnHoldNet   float64 `json:"on_hold_net"`
	WithheldNet float64 `json:"withheld_net"`

	PendingCount  int `json:"pending_count"`
	OnHoldCount   int `json:"on_hold_count"`
	WithheldCount int `json:"withheld_count"`
	RefundsCount  int `json:"refunds_count"`
	ApprovedCount int `json:"approved_count"`
	PaidCount     int `json:"paid_count"`
}

// Snapshot is the categorized seller earnings view at one instant. The six
// item collections are mutually exclusive.
type Snapshot struct {
	AsOf time.Time `json:"as_of"`

	OnHold   []Item `json:"on_hold"`
	Pending  []Item `json:"pending"`
	Withheld []Item `json:"withheld"`
	Refunds  []Item `json:"refunds"`
	Approved []Item `json:"approved"`
	Paid     []Item `json:"paid"`

	RefundDetails []RefundDetail `json:"refund_details"`
	Stats         Stats          `json:"stats"`
}

type Service interface {
	// Categorize partitions the seller's payout items into the snapshot
	// buckets evaluated at asOf. A zero asOf means "now".
	Categorize(ctx context.Context, sellerID snowflake.ID, asOf time.Time) (Snapshot, error)
	ListPayouts(ctx context.Context, sellerID snowflake.ID) ([]payoutdomain.Payout, error)
}

var ErrInvalidSeller = errors.New("invalid_seller")
