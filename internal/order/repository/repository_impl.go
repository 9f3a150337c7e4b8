package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/trovio/settled/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) GetOrderItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.OrderItem, error) {
	var item domain.OrderItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, seller_id, listing_id, quantity, unit_price, subtotal, status, order_date, created_at, updated_at
		 FROM order_items WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListOrderItemsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]*domain.OrderItem, error) {
	result := make(map[snowflake.ID]*domain.OrderItem, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var items []*domain.OrderItem
	err := db.WithContext(ctx).
		Model(&domain.OrderItem{}).
		Where("id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		result[item.ID] = item
	}
	return result, nil
}

func (r *repo) GetPayment(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, amount, fee, tax, created_at
		 FROM payments WHERE order_id = ?`,
		orderID,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) ListRefunds(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) ([]*domain.RefundRecord, error) {
	var refunds []*domain.RefundRecord
	err := db.WithContext(ctx).
		Model(&domain.RefundRecord{}).
		Where("seller_id = ?", sellerID).
		Order("processed_at desc").
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

func (r *repo) GetReturnPolicies(ctx context.Context, db *gorm.DB, listingIDs []snowflake.ID) (map[snowflake.ID]*domain.ReturnPolicy, error) {
	result := make(map[snowflake.ID]*domain.ReturnPolicy, len(listingIDs))
	if len(listingIDs) == 0 {
		return result, nil
	}

	var policies []*domain.ReturnPolicy
	err := db.WithContext(ctx).
		Model(&domain.ReturnPolicy{}).
		Where("listing_id IN ?", listingIDs).
		Find(&policies).Error
	if err != nil {
		return nil, err
	}

	// Listings without a row stay absent from the map; callers treat absence
	// as "returnable with the default window", which is different from an
	// explicit zero/null row.
	for _, policy := range policies {
		result[policy.ListingID] = policy
	}
	return result, nil
}

func (r *repo) CountDeliveredItems(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (int, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.OrderItem{}).
		Where("seller_id = ? AND status = ?", sellerID, domain.OrderItemStatusDelivered).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
