package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/trovio/settled/pkg/db/pagination"
)

type RecordDeliveryRequest struct {
	OrderItemID snowflake.ID
	SellerID    snowflake.ID
}

// EarningOutcome reports what a RecordDelivery call did. AlreadyRecorded is
// true when a previous call for the same order item had already credited the
// seller; the call is still a success.
type EarningOutcome struct {
	AlreadyRecorded bool          `json:"already_recorded"`
	NetEarning      float64       `json:"net_earning"`
	Bucket          BalanceBucket `json:"bucket"`
	SettlementDate  time.Time     `json:"settlement_date"`
	Message         string        `json:"message"`
}

type ListTransactionsRequest struct {
	SellerID  snowflake.ID
	PageToken string
	PageSize  int
}

type ListTransactionsResponse struct {
	pagination.PageInfo
	Transactions []BalanceTransaction `json:"transactions"`
}

type Service interface {
	// RecordDelivery credits the seller for one delivered order item. Safe to
	// call any number of times for the same order item; the effect is that of
	// exactly one successful call.
	RecordDelivery(ctx context.Context, req RecordDeliveryRequest) (EarningOutcome, error)
	GetBalance(ctx context.Context, sellerID snowflake.ID) (SellerBalance, error)
	ListTransactions(ctx context.Context, req ListTransactionsRequest) (ListTransactionsResponse, error)
}

var (
	ErrInvalidSeller         = errors.New("invalid_seller")
	ErrInvalidOrderItem      = errors.New("invalid_order_item")
	ErrOrderItemNotFound     = errors.New("order_item_not_found")
	ErrOrderItemNotDelivered = errors.New("order_item_not_delivered")
	ErrPaymentNotFound       = errors.New("payment_not_found")
	// ErrBalanceUpdateFailed is transient; retries are safe because of the
	// payout item idempotency key.
	ErrBalanceUpdateFailed = errors.New("balance_update_failed")
)
