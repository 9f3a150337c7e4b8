package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/trovio/settled/internal/payout/domain"
	"github.com/trovio/settled/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindPayoutItemByOrderItem(ctx context.Context, db *gorm.DB, orderItemID snowflake.ID) (*domain.PayoutItem, error) {
	var item domain.PayoutItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, payout_id, order_id, order_item_id, payment_id, seller_id, order_date,
		        item_subtotal, allocated_fee, allocated_tax, is_settled, is_refunded,
		        settlement_hold_until, created_at
		 FROM payout_items WHERE order_item_id = ?`,
		orderItemID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertPayoutItem(ctx context.Context, db *gorm.DB, item *domain.PayoutItem) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO payout_items (
			id, payout_id, order_id, order_item_id, payment_id, seller_id, order_date,
			item_subtotal, allocated_fee, allocated_tax, is_settled, is_refunded,
			settlement_hold_until, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_item_id) DO NOTHING`,
		item.ID,
		item.PayoutID,
		item.OrderID,
		item.OrderItemID,
		item.PaymentID,
		item.SellerID,
		item.OrderDate,
		item.ItemSubtotal,
		item.AllocatedFee,
		item.AllocatedTax,
		item.IsSettled,
		item.IsRefunded,
		item.SettlementHoldUntil,
		item.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListUnsettledItems(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) ([]*domain.PayoutItem, error) {
	return r.listItems(ctx, db, sellerID, false)
}

func (r *repo) ListSettledItems(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) ([]*domain.PayoutItem, error) {
	return r.listItems(ctx, db, sellerID, true)
}

func (r *repo) listItems(ctx context.Context, db *gorm.DB, sellerID snowflake.ID, settled bool) ([]*domain.PayoutItem, error) {
	var items []*domain.PayoutItem
	err := db.WithContext(ctx).
		Model(&domain.PayoutItem{}).
		Where("seller_id = ? AND is_settled = ?", sellerID, settled).
		Order("order_date desc, id desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) EnsureBalance(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`INSERT INTO seller_balances (
			seller_id, available_balance, pending_balance, total_earned,
			total_paid_out, total_refunded, created_at, updated_at
		) VALUES (?, 0, 0, 0, 0, 0, ?, ?)
		ON CONFLICT (seller_id) DO NOTHING`,
		sellerID,
		now,
		now,
	).Error
}

func (r *repo) ApplyBalanceDelta(ctx context.Context, db *gorm.DB, sellerID snowflake.ID, delta domain.BalanceDelta) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE seller_balances SET
			available_balance = available_balance + ?,
			pending_balance = pending_balance + ?,
			total_earned = total_earned + ?,
			updated_at = ?
		 WHERE seller_id = ?`,
		delta.Available,
		delta.Pending,
		delta.TotalEarned,
		time.Now().UTC(),
		sellerID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrBalanceUpdateFailed
	}
	return nil
}

func (r *repo) GetBalance(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (*domain.SellerBalance, error) {
	var balance domain.SellerBalance
	err := db.WithContext(ctx).Raw(
		`SELECT seller_id, available_balance, pending_balance, total_earned,
		        total_paid_out, total_refunded, created_at, updated_at
		 FROM seller_balances WHERE seller_id = ?`,
		sellerID,
	).Scan(&balance).Error
	if err != nil {
		return nil, err
	}
	if balance.SellerID == 0 {
		return nil, nil
	}
	return &balance, nil
}

func (r *repo) AppendTransaction(ctx context.Context, db *gorm.DB, txn *domain.BalanceTransaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, sellerID snowflake.ID, page pagination.Pagination) ([]*domain.BalanceTransaction, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.BalanceTransaction{}).
		Where("seller_id = ?", sellerID)

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	var txns []*domain.BalanceTransaction
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repo) ListPayouts(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) ([]*domain.Payout, error) {
	var payouts []*domain.Payout
	err := db.WithContext(ctx).
		Model(&domain.Payout{}).
		Where("seller_id = ?", sellerID).
		Order("created_at desc").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}
