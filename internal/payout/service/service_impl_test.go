package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trovio/settled/internal/clock"
	"github.com/trovio/settled/internal/config"
	orderdomain "github.com/trovio/settled/internal/order/domain"
	orderrepo "github.com/trovio/settled/internal/order/repository"
	"github.com/trovio/settled/internal/payout/domain"
	payoutrepo "github.com/trovio/settled/internal/payout/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&orderdomain.OrderItem{},
		&orderdomain.Payment{},
		&orderdomain.RefundRecord{},
		&orderdomain.ReturnPolicy{},
		&domain.PayoutItem{},
		&domain.SellerBalance{},
		&domain.BalanceTransaction{},
		&domain.Payout{},
	))
	return db
}

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(now)

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Policy:    config.NewStaticPolicyHolder(config.DefaultPolicy()),
		Repo:      payoutrepo.Provide(),
		OrderRepo: orderrepo.Provide(),
	})
	return &fixture{db: db, node: node, clock: fake, svc: svc}
}

func (f *fixture) seedDeliveredItem(t *testing.T, sellerID snowflake.ID, subtotal float64, orderDate time.Time) *orderdomain.OrderItem {
	t.Helper()
	item := &orderdomain.OrderItem{
		ID:        f.node.Generate(),
		OrderID:   f.node.Generate(),
		SellerID:  sellerID,
		ListingID: f.node.Generate(),
		Quantity:  1,
		UnitPrice: subtotal,
		Status:    orderdomain.OrderItemStatusDelivered,
		OrderDate: orderDate,
	}
	require.NoError(t, f.db.Create(item).Error)
	return item
}

func (f *fixture) seedPayment(t *testing.T, orderID snowflake.ID, amount, fee, tax float64) {
	t.Helper()
	require.NoError(t, f.db.Create(&orderdomain.Payment{
		ID:      f.node.Generate(),
		OrderID: orderID,
		Amount:  amount,
		Fee:     fee,
		Tax:     tax,
	}).Error)
}

func TestRecordDelivery_CreditsProportionalNetEarning(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	sellerID := f.node.Generate()

	// Three prior deliveries put this item at rank 4: past the new-seller
	// hold, so it settles on the current cycle.
	for i := 0; i < 3; i++ {
		f.seedDeliveredItem(t, sellerID, 500, now.Add(-72*time.Hour))
	}
	item := f.seedDeliveredItem(t, sellerID, 1000, now.Add(-24*time.Hour))
	f.seedPayment(t, item.OrderID, 5000, 50, 9)

	outcome, err := f.svc.RecordDelivery(context.Background(), domain.RecordDeliveryRequest{
		OrderItemID: item.ID,
		SellerID:    sellerID,
	})
	require.NoError(t, err)

	assert.False(t, outcome.AlreadyRecorded)
	// 1000 of a 5000 payment carries 20% of fee and tax: 10 + 1.8.
	assert.InDelta(t, 988.2, outcome.NetEarning, 1e-9)
	assert.Equal(t, time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC), outcome.SettlementDate)
	// The cycle date is still in the future, so the credit is pending.
	assert.Equal(t, domain.BalanceBucketPending, outcome.Bucket)

	var payoutItem domain.PayoutItem
	require.NoError(t, f.db.First(&payoutItem, "order_item_id = ?", item.ID).Error)
	assert.InDelta(t, 1000.0, payoutItem.ItemSubtotal, 1e-9)
	assert.InDelta(t, 10.0, payoutItem.AllocatedFee, 1e-9)
	assert.InDelta(t, 1.8, payoutItem.AllocatedTax, 1e-9)
	assert.False(t, payoutItem.IsSettled)

	balance, err := f.svc.GetBalance(context.Background(), sellerID)
	require.NoError(t, err)
	assert.InDelta(t, 988.2, balance.PendingBalance, 1e-9)
	assert.Zero(t, balance.AvailableBalance)
	assert.InDelta(t, 988.2, balance.TotalEarned, 1e-9)
}

func TestRecordDelivery_PastCycleDateCreditsAvailable(t *testing.T) {
	// On the cycle day itself the settlement date is not in the future, so
	// the earning goes straight to the available bucket.
	now := time.Date(2025, 6, 28, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	sellerID := f.node.Generate()

	for i := 0; i < 3; i++ {
		f.seedDeliveredItem(t, sellerID, 500, now.Add(-72*time.Hour))
	}
	item := f.seedDeliveredItem(t, sellerID, 1000, now.Add(-24*time.Hour))
	f.seedPayment(t, item.OrderID, 1000, 30, 0)

	outcome, err := f.svc.RecordDelivery(context.Background(), domain.RecordDeliveryRequest{
		OrderItemID: item.ID,
		SellerID:    sellerID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.BalanceBucketAvailable, outcome.Bucket)

	balance, err := f.svc.GetBalance(context.Background(), sellerID)
	require.NoError(t, err)
	assert.InDelta(t, 970.0, balance.AvailableBalance, 1e-9)
	assert.Zero(t, balance.PendingBalance)
}

func TestRecordDelivery_NewSellerHeldToNextCycle(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	sellerID := f.node.Generate()

	// First ever delivery: rank 1, held to July's cycle.
	item := f.seedDeliveredItem(t, sellerID, 1000, now.Add(-24*time.Hour))
	f.seedPayment(t, item.OrderID, 1000, 0, 0)

	outcome, err := f.svc.RecordDelivery(context.Background(), domain.RecordDeliveryRequest{
		OrderItemID: item.ID,
		SellerID:    sellerID,
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 7, 28, 0, 0, 0, 0, time.UTC), outcome.SettlementDate)
	assert.Equal(t, domain.BalanceBucketPending, outcome.Bucket)
}

func TestRecordDelivery_IdempotentReplay(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	sellerID := f.node.Generate()

	item := f.seedDeliveredItem(t, sellerID, 1000, now.Add(-24*time.Hour))
	f.seedPayment(t, item.OrderID, 1000, 30, 0)

	req := domain.RecordDeliveryRequest{OrderItemID: item.ID, SellerID: sellerID}

	first, err := f.svc.RecordDelivery(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.AlreadyRecorded)

	// Replay reports success without a second credit.
	second, err := f.svc.RecordDelivery(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.AlreadyRecorded)
	assert.InDelta(t, first.NetEarning, second.NetEarning, 1e-9)

	var itemCount int64
	require.NoError(t, f.db.Model(&domain.PayoutItem{}).Where("order_item_id = ?", item.ID).Count(&itemCount).Error)
	assert.Equal(t, int64(1), itemCount)

	balance, err := f.svc.GetBalance(context.Background(), sellerID)
	require.NoError(t, err)
	assert.InDelta(t, 970.0, balance.TotalEarned, 1e-9)
}

func TestRecordDelivery_AppendsAuditTransaction(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	sellerID := f.node.Generate()

	item := f.seedDeliveredItem(t, sellerID, 1000, now.Add(-24*time.Hour))
	f.seedPayment(t, item.OrderID, 1000, 30, 0)

	_, err := f.svc.RecordDelivery(context.Background(), domain.RecordDeliveryRequest{
		OrderItemID: item.ID,
		SellerID:    sellerID,
	})
	require.NoError(t, err)

	var txn domain.BalanceTransaction
	require.NoError(t, f.db.First(&txn, "seller_id = ?", sellerID).Error)
	assert.Equal(t, domain.TransactionTypeOrder, txn.Type)
	assert.InDelta(t, 970.0, txn.Amount, 1e-9)
	assert.Zero(t, txn.BalanceBefore)
	assert.InDelta(t, 970.0, txn.BalanceAfter, 1e-9)
	require.NotNil(t, txn.RelatedOrderItemID)
	assert.Equal(t, item.ID, *txn.RelatedOrderItemID)
}

func TestRecordDelivery_ValidationAndStateErrors(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	sellerID := f.node.Generate()

	_, err := f.svc.RecordDelivery(context.Background(), domain.RecordDeliveryRequest{OrderItemID: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidSeller)

	_, err = f.svc.RecordDelivery(context.Background(), domain.RecordDeliveryRequest{SellerID: sellerID})
	assert.ErrorIs(t, err, domain.ErrInvalidOrderItem)

	// Unknown order item.
	_, err = f.svc.RecordDelivery(context.Background(), domain.RecordDeliveryRequest{
		OrderItemID: f.node.Generate(),
		SellerID:    sellerID,
	})
	assert.ErrorIs(t, err, domain.ErrOrderItemNotFound)

	// Item exists but belongs to a different seller.
	item := f.seedDeliveredItem(t, f.node.Generate(), 1000, now)
	_, err = f.svc.RecordDelivery(context.Background(), domain.RecordDeliveryRequest{
		OrderItemID: item.ID,
		SellerID:    sellerID,
	})
	assert.ErrorIs(t, err, domain.ErrOrderItemNotFound)

	// Item not yet delivered.
	inTransit := &orderdomain.OrderItem{
		ID:        f.node.Generate(),
		OrderID:   f.node.Generate(),
		SellerID:  sellerID,
		ListingID: f.node.Generate(),
		Quantity:  1,
		UnitPrice: 1000,
		Status:    orderdomain.OrderItemStatusInTransit,
		OrderDate: now,
	}
	require.NoError(t, f.db.Create(inTransit).Error)
	_, err = f.svc.RecordDelivery(context.Background(), domain.RecordDeliveryRequest{
		OrderItemID: inTransit.ID,
		SellerID:    sellerID,
	})
	assert.ErrorIs(t, err, domain.ErrOrderItemNotDelivered)

	// Delivered but the order has no payment row.
	unpaid := f.seedDeliveredItem(t, sellerID, 1000, now)
	_, err = f.svc.RecordDelivery(context.Background(), domain.RecordDeliveryRequest{
		OrderItemID: unpaid.ID,
		SellerID:    sellerID,
	})
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)

	// No balance rows were created by any failed path.
	var balanceCount int64
	require.NoError(t, f.db.Model(&domain.SellerBalance{}).Count(&balanceCount).Error)
	assert.Zero(t, balanceCount)
}

func TestGetBalance_UnknownSellerIsZero(t *testing.T) {
	f := newFixture(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))
	sellerID := f.node.Generate()

	balance, err := f.svc.GetBalance(context.Background(), sellerID)
	require.NoError(t, err)

	assert.Equal(t, sellerID, balance.SellerID)
	assert.Zero(t, balance.AvailableBalance)
	assert.Zero(t, balance.PendingBalance)
	assert.Zero(t, balance.TotalEarned)
}

func TestListTransactions_PagesNewestFirst(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	sellerID := f.node.Generate()

	for i := 0; i < 5; i++ {
		orderDate := now.Add(time.Duration(i-6) * 24 * time.Hour)
		item := f.seedDeliveredItem(t, sellerID, 100, orderDate)
		f.seedPayment(t, item.OrderID, 100, 0, 0)
		f.clock.Advance(time.Minute)
		_, err := f.svc.RecordDelivery(context.Background(), domain.RecordDeliveryRequest{
			OrderItemID: item.ID,
			SellerID:    sellerID,
		})
		require.NoError(t, err)
	}

	page, err := f.svc.ListTransactions(context.Background(), domain.ListTransactionsRequest{
		SellerID: sellerID,
		PageSize: 3,
	})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 3)
	assert.True(t, page.HasMore)
	assert.True(t, page.Transactions[0].CreatedAt.After(page.Transactions[2].CreatedAt))

	rest, err := f.svc.ListTransactions(context.Background(), domain.ListTransactionsRequest{
		SellerID:  sellerID,
		PageSize:  3,
		PageToken: page.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, rest.Transactions, 2)
	assert.False(t, rest.HasMore)
}
