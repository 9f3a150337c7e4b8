package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository reads order-subsystem state. All methods return canonical
// structs; any join-shape quirks of the upstream schema are normalized here so
// settlement rules never branch on representation.
type Repository interface {
	GetOrderItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (*OrderItem, error)
	ListOrderItemsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]*OrderItem, error)
	GetPayment(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Payment, error)
	ListRefunds(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) ([]*RefundRecord, error)
	GetReturnPolicies(ctx context.Context, db *gorm.DB, listingIDs []snowflake.ID) (map[snowflake.ID]*ReturnPolicy, error)
	CountDeliveredItems(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (int, error)
}
