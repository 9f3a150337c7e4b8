package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/trovio/settled/internal/clock"
	"github.com/trovio/settled/internal/config"
	"github.com/trovio/settled/internal/metrics"
	orderdomain "github.com/trovio/settled/internal/order/domain"
	"github.com/trovio/settled/internal/payout/domain"
	"github.com/trovio/settled/internal/sellerlock"
	"github.com/trovio/settled/internal/settlement"
	"github.com/trovio/settled/pkg/db"
	"github.com/trovio/settled/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const lockTTL = 10 * time.Second

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Policy    *config.PolicyHolder
	Repo      domain.Repository
	OrderRepo orderdomain.Repository
	Locker    *sellerlock.Locker `optional:"true"`
	Metrics   *metrics.Metrics   `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	policy    *config.PolicyHolder
	repo      domain.Repository
	orderRepo orderdomain.Repository
	locker    *sellerlock.Locker
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payout.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		policy:    p.Policy,
		repo:      p.Repo,
		orderRepo: p.OrderRepo,
		locker:    p.Locker,
		metrics:   p.Metrics,
	}
}

func (s *Service) RecordDelivery(ctx context.Context, req domain.RecordDeliveryRequest) (domain.EarningOutcome, error) {
	if req.SellerID == 0 {
		return domain.EarningOutcome{}, domain.ErrInvalidSeller
	}
	if req.OrderItemID == 0 {
		return domain.EarningOutcome{}, domain.ErrInvalidOrderItem
	}

	// Advisory only: correctness against concurrent deliveries comes from the
	// unique payout item index and the atomic balance increment.
	if token, ok, err := s.locker.TryLock(ctx, req.SellerID, lockTTL); err == nil && ok {
		defer func() {
			if err := s.locker.Release(ctx, req.SellerID, token); err != nil {
				s.log.Warn("seller lock release failed", zap.Error(err))
			}
		}()
	}

	existing, err := s.repo.FindPayoutItemByOrderItem(ctx, s.db, req.OrderItemID)
	if err != nil {
		return domain.EarningOutcome{}, fmt.Errorf("check existing payout item: %w", err)
	}
	if existing != nil {
		s.incReplayed()
		return domain.EarningOutcome{
			AlreadyRecorded: true,
			NetEarning:      existing.NetEarning(),
			SettlementDate:  existing.SettlementHoldUntil,
			Message:         "payout already recorded for this order item",
		}, nil
	}

	item, err := s.orderRepo.GetOrderItem(ctx, s.db, req.OrderItemID)
	if err != nil {
		return domain.EarningOutcome{}, fmt.Errorf("fetch order item: %w", err)
	}
	if item == nil || item.SellerID != req.SellerID {
		s.incFailure("order_item_not_found")
		return domain.EarningOutcome{}, domain.ErrOrderItemNotFound
	}
	if item.Status != orderdomain.OrderItemStatusDelivered {
		s.incFailure("not_delivered")
		return domain.EarningOutcome{}, domain.ErrOrderItemNotDelivered
	}

	payment, err := s.orderRepo.GetPayment(ctx, s.db, item.OrderID)
	if err != nil {
		return domain.EarningOutcome{}, fmt.Errorf("fetch payment: %w", err)
	}
	if payment == nil {
		s.incFailure("payment_not_found")
		return domain.EarningOutcome{}, domain.ErrPaymentNotFound
	}

	policy := s.policy.Get()
	asOf := s.clock.Now()

	subtotal := item.GrossSubtotal()
	fee, tax := settlement.AllocateFees(payment, subtotal)
	netEarning := subtotal - fee - tax

	deliveredCount, countErr := s.orderRepo.CountDeliveredItems(ctx, s.db, req.SellerID)
	if countErr != nil {
		// Conservative path: the cycle calculator holds the item to next
		// month when the rank is unknown.
		s.log.Warn("delivered item count unavailable, holding to next cycle",
			zap.String("seller_id", req.SellerID.String()),
			zap.Error(countErr),
		)
	}
	settlementDate := settlement.SettlementDate(asOf, deliveredCount, countErr, policy)

	today := midnight(asOf)
	isPending := settlementDate.After(today)

	bucket := domain.BalanceBucketAvailable
	if isPending {
		bucket = domain.BalanceBucketPending
	}

	payoutItem := &domain.PayoutItem{
		ID:                  s.genID.Generate(),
		OrderID:             item.OrderID,
		OrderItemID:         item.ID,
		PaymentID:           &payment.ID,
		SellerID:            item.SellerID,
		OrderDate:           item.OrderDate,
		ItemSubtotal:        subtotal,
		AllocatedFee:        fee,
		AllocatedTax:        tax,
		SettlementHoldUntil: settlementDate,
		CreatedAt:           asOf,
	}

	var balanceBefore, balanceAfter float64
	alreadyRecorded := false

	err = s.db.Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertPayoutItem(ctx, tx, payoutItem)
		if err != nil {
			if db.IsDuplicateKeyErr(err) {
				alreadyRecorded = true
				return nil
			}
			return fmt.Errorf("insert payout item: %w", err)
		}
		if !inserted {
			// A concurrent retry won the race; nothing left to do.
			alreadyRecorded = true
			return nil
		}

		if err := s.repo.EnsureBalance(ctx, tx, req.SellerID); err != nil {
			return fmt.Errorf("ensure seller balance: %w", err)
		}

		balance, err := s.repo.GetBalance(ctx, tx, req.SellerID)
		if err != nil || balance == nil {
			return domain.ErrBalanceUpdateFailed
		}

		delta := domain.BalanceDelta{TotalEarned: netEarning}
		if isPending {
			balanceBefore = balance.PendingBalance
			delta.Pending = netEarning
		} else {
			balanceBefore = balance.AvailableBalance
			delta.Available = netEarning
		}
		balanceAfter = balanceBefore + netEarning

		if err := s.repo.ApplyBalanceDelta(ctx, tx, req.SellerID, delta); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.incFailure("balance_update")
		return domain.EarningOutcome{}, err
	}

	if alreadyRecorded {
		s.incReplayed()
		return domain.EarningOutcome{
			AlreadyRecorded: true,
			Message:         "payout already recorded for this order item",
		}, nil
	}

	// The balance and payout item are authoritative; a failed audit append is
	// surfaced as a warning, never as a failure of the delivery.
	txn := &domain.BalanceTransaction{
		ID:                 s.genID.Generate(),
		SellerID:           req.SellerID,
		Type:               domain.TransactionTypeOrder,
		Amount:             netEarning,
		BalanceBefore:      balanceBefore,
		BalanceAfter:       balanceAfter,
		RelatedOrderID:     &item.OrderID,
		RelatedOrderItemID: &item.ID,
		Description: fmt.Sprintf("Earning from order %s (subtotal: %.2f, fees: %.2f)",
			item.OrderID, subtotal, fee+tax),
		Metadata: datatypes.JSONMap{
			"item_subtotal":   subtotal,
			"allocated_fee":   fee,
			"allocated_tax":   tax,
			"net_earning":     netEarning,
			"settlement_date": settlementDate.Format(time.RFC3339),
			"balance_bucket":  string(bucket),
		},
		CreatedAt: asOf,
	}
	if err := s.repo.AppendTransaction(ctx, s.db, txn); err != nil {
		s.log.Warn("failed to append balance transaction",
			zap.String("seller_id", req.SellerID.String()),
			zap.String("order_item_id", item.ID.String()),
			zap.Error(err),
		)
	}

	s.incRecorded()
	s.log.Info("recorded seller earning",
		zap.String("seller_id", req.SellerID.String()),
		zap.String("order_item_id", item.ID.String()),
		zap.Float64("net_earning", netEarning),
		zap.String("bucket", string(bucket)),
		zap.Time("settlement_date", settlementDate),
	)

	return domain.EarningOutcome{
		NetEarning:     netEarning,
		Bucket:         bucket,
		SettlementDate: settlementDate,
		Message: fmt.Sprintf("earning recorded: %.2f added to %s balance (settlement %s)",
			netEarning, bucket, settlementDate.Format("2006-01-02")),
	}, nil
}

func (s *Service) GetBalance(ctx context.Context, sellerID snowflake.ID) (domain.SellerBalance, error) {
	if sellerID == 0 {
		return domain.SellerBalance{}, domain.ErrInvalidSeller
	}
	balance, err := s.repo.GetBalance(ctx, s.db, sellerID)
	if err != nil {
		return domain.SellerBalance{}, err
	}
	if balance == nil {
		// A seller with no ledger activity has a zero balance, not an error.
		return domain.SellerBalance{SellerID: sellerID}, nil
	}
	return *balance, nil
}

func (s *Service) ListTransactions(ctx context.Context, req domain.ListTransactionsRequest) (domain.ListTransactionsResponse, error) {
	if req.SellerID == 0 {
		return domain.ListTransactionsResponse{}, domain.ErrInvalidSeller
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListTransactions(ctx, s.db, req.SellerID, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListTransactionsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(txn *domain.BalanceTransaction) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        txn.ID.String(),
			CreatedAt: txn.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	txns := make([]domain.BalanceTransaction, 0, len(items))
	for _, item := range items {
		txns = append(txns, *item)
	}

	resp := domain.ListTransactionsResponse{Transactions: txns}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) incRecorded() {
	if s.metrics != nil {
		s.metrics.DeliveriesRecorded.Inc()
	}
}

func (s *Service) incReplayed() {
	if s.metrics != nil {
		s.metrics.DeliveriesReplayed.Inc()
	}
}

func (s *Service) incFailure(reason string) {
	if s.metrics != nil {
		s.metrics.IncFailure(reason)
	}
}
