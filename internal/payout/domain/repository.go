package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/trovio/settled/pkg/db/pagination"
	"gorm.io/gorm"
)

// BalanceDelta is one atomic balance mutation. Exactly one of the bucket
// deltas is non-zero on the earning path; TotalEarned always moves with it.
type BalanceDelta struct {
	Available   float64
	Pending     float64
	TotalEarned float64
}

type Repository interface {
	FindPayoutItemByOrderItem(ctx context.Context, db *gorm.DB, orderItemID snowflake.ID) (*PayoutItem, error)
	// InsertPayoutItem inserts with ON CONFLICT DO NOTHING on the order item
	// reference. Returns false when the row already existed.
	InsertPayoutItem(ctx context.Context, db *gorm.DB, item *PayoutItem) (bool, error)
	ListUnsettledItems(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) ([]*PayoutItem, error)
	ListSettledItems(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) ([]*PayoutItem, error)

	EnsureBalance(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) error
	// ApplyBalanceDelta executes the mutation as a single conditional UPDATE
	// with arithmetic on the stored columns, never as a read-then-write pair.
	ApplyBalanceDelta(ctx context.Context, db *gorm.DB, sellerID snowflake.ID, delta BalanceDelta) error
	GetBalance(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (*SellerBalance, error)

	AppendTransaction(ctx context.Context, db *gorm.DB, txn *BalanceTransaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, sellerID snowflake.ID, page pagination.Pagination) ([]*BalanceTransaction, error)

	ListPayouts(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) ([]*Payout, error)
}
