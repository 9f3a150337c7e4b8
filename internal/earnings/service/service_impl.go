package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/trovio/settled/internal/clock"
	"github.com/trovio/settled/internal/config"
	"github.com/trovio/settled/internal/earnings/domain"
	"github.com/trovio/settled/internal/metrics"
	orderdomain "github.com/trovio/settled/internal/order/domain"
	payoutdomain "github.com/trovio/settled/internal/payout/domain"
	"github.com/trovio/settled/internal/settlement"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Policy     *config.PolicyHolder
	PayoutRepo payoutdomain.Repository
	OrderRepo  orderdomain.Repository
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	policy     *config.PolicyHolder
	payoutRepo payoutdomain.Repository
	orderRepo  orderdomain.Repository
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("earnings.service"),
		clock:      p.Clock,
		policy:     p.Policy,
		payoutRepo: p.PayoutRepo,
		orderRepo:  p.OrderRepo,
		metrics:    p.Metrics,
	}
}

func (s *Service) Categorize(ctx context.Context, sellerID snowflake.ID, asOf time.Time) (domain.Snapshot, error) {
	if sellerID == 0 {
		return domain.Snapshot{}, domain.ErrInvalidSeller
	}
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	asOf = asOf.UTC()

	// The read path is all-or-nothing: a snapshot built from partial inputs
	// could drop or double-count items, so any fetch error fails the call.
	unsettled, err := s.payoutRepo.ListUnsettledItems(ctx, s.db, sellerID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list unsettled payout items: %w", err)
	}
	settled, err := s.payoutRepo.ListSettledItems(ctx, s.db, sellerID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list settled payout items: %w", err)
	}
	payouts, err := s.payoutRepo.ListPayouts(ctx, s.db, sellerID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list payouts: %w", err)
	}
	refunds, err := s.orderRepo.ListRefunds(ctx, s.db, sellerID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list refunds: %w", err)
	}

	orderItemIDs := make([]snowflake.ID, 0, len(unsettled)+len(settled))
	for _, item := range unsettled {
		orderItemIDs = append(orderItemIDs, item.OrderItemID)
	}
	for _, item := range settled {
		orderItemIDs = append(orderItemIDs, item.OrderItemID)
	}
	orderItems, err := s.orderRepo.ListOrderItemsByIDs(ctx, s.db, orderItemIDs)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list order items: %w", err)
	}

	listingIDs := make([]snowflake.ID, 0, len(orderItems))
	seen := make(map[snowflake.ID]struct{}, len(orderItems))
	for _, item := range orderItems {
		if _, ok := seen[item.ListingID]; ok {
			continue
		}
		seen[item.ListingID] = struct{}{}
		listingIDs = append(listingIDs, item.ListingID)
	}
	policies, err := s.orderRepo.GetReturnPolicies(ctx, s.db, listingIDs)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list return policies: %w", err)
	}

	policy := s.policy.Get()

	refundDetails := make([]domain.RefundDetail, 0, len(refunds))
	unsettledRefundItems := make(map[snowflake.ID]struct{})
	for _, refund := range refunds {
		refundDetails = append(refundDetails, domain.RefundDetail{
			RefundID:       refund.ID,
			OrderItemID:    refund.OrderItemID,
			Amount:         refund.Amount,
			Status:         refund.Status,
			WasInPayout:    refund.SettledInPayout(),
			WasAlreadyPaid: refund.SettledAt != nil,
			ProcessedAt:    refund.ProcessedAt,
		})
		if !refund.SettledInPayout() {
			unsettledRefundItems[refund.OrderItemID] = struct{}{}
		}
	}

	enrich := func(raw *payoutdomain.PayoutItem) domain.Item {
		item := domain.Item{PayoutItem: *raw}
		if orderItem, ok := orderItems[raw.OrderItemID]; ok {
			item.Status = orderItem.Status
			item.ListingID = orderItem.ListingID
			// Missing policy rows fall back to the platform default window
			// inside the evaluator; this is a degraded input, not an error.
			item.ReturnWindow = settlement.EvaluateReturnWindow(
				policies[orderItem.ListingID],
				policy.DefaultReturnDays,
				raw.OrderDate,
				asOf,
			)
		}
		return item
	}

	// Bucket rules, first match wins.
	var refundItems, validFulfilled, withheld []domain.Item
	for _, raw := range unsettled {
		item := enrich(raw)

		cancelledOrReturned := item.Status == orderdomain.OrderItemStatusCancelled ||
			item.Status == orderdomain.OrderItemStatusReturned
		_, hasUnsettledRefund := unsettledRefundItems[item.OrderItemID]
		if cancelledOrReturned || hasUnsettledRefund {
			refundItems = append(refundItems, item)
			continue
		}

		delivered := item.Status == orderdomain.OrderItemStatusDelivered
		if delivered && item.ReturnWindow.WindowClosed {
			validFulfilled = append(validFulfilled, item)
			continue
		}

		withheld = append(withheld, item)
	}

	// On-hold is the most recent slice of valid-fulfilled items, held one
	// extra cycle so in-flight disputes on those sales can still resolve.
	sort.SliceStable(validFulfilled, func(i, j int) bool {
		if validFulfilled[i].OrderDate.Equal(validFulfilled[j].OrderDate) {
			return validFulfilled[i].ID > validFulfilled[j].ID
		}
		return validFulfilled[i].OrderDate.After(validFulfilled[j].OrderDate)
	})
	cut := policy.RecentHoldCount
	if cut > len(validFulfilled) {
		cut = len(validFulfilled)
	}
	onHold := validFulfilled[:cut]
	pending := validFulfilled[cut:]

	// Settled items split purely by the linked payout batch status.
	payoutStatus := make(map[snowflake.ID]payoutdomain.PayoutStatus, len(payouts))
	for _, p := range payouts {
		payoutStatus[p.ID] = p.Status
	}
	var approved, paid []domain.Item
	for _, raw := range settled {
		if raw.PayoutID == nil {
			continue
		}
		switch payoutStatus[*raw.PayoutID] {
		case payoutdomain.PayoutStatusApproved:
			approved = append(approved, enrich(raw))
		case payoutdomain.PayoutStatusPaid:
			paid = append(paid, enrich(raw))
		}
	}

	stats := buildStats(asOf, payouts, refundDetails, onHold, pending, withheld, refundItems, approved, paid)

	if s.metrics != nil {
		s.metrics.EarningsSnapshots.Inc()
	}

	return domain.Snapshot{
		AsOf:          asOf,
		OnHold:        onHold,
		Pending:       pending,
		Withheld:      withheld,
		Refunds:       refundItems,
		Approved:      approved,
		Paid:          paid,
		RefundDetails: refundDetails,
		Stats:         stats,
	}, nil
}

func (s *Service) ListPayouts(ctx context.Context, sellerID snowflake.ID) ([]payoutdomain.Payout, error) {
	if sellerID == 0 {
		return nil, domain.ErrInvalidSeller
	}
	items, err := s.payoutRepo.ListPayouts(ctx, s.db, sellerID)
	if err != nil {
		return nil, err
	}
	payouts := make([]payoutdomain.Payout, 0, len(items))
	for _, item := range items {
		payouts = append(payouts, *item)
	}
	return payouts, nil
}

// bucketNet is the seller-facing projection: gross subtotal minus allocated
// processor fee. Tax is settled separately by the batch job, so it is not
// deducted from the projected figures.
func bucketNet(items []domain.Item) float64 {
	var sum float64
	for _, item := range items {
		sum += item.ItemSubtotal - item.AllocatedFee
	}
	return sum
}

func buildStats(
	asOf time.Time,
	payouts []*payoutdomain.Payout,
	refundDetails []domain.RefundDetail,
	onHold, pending, withheld, refundItems, approved, paid []domain.Item,
) domain.Stats {
	stats := domain.Stats{
		OnHoldNet:     bucketNet(onHold),
		PendingNet:    bucketNet(pending),
		WithheldNet:   bucketNet(withheld),
		OnHoldCount:   len(onHold),
		PendingCount:  len(pending),
		WithheldCount: len(withheld),
		RefundsCount:  len(refundItems),
		ApprovedCount: len(approved),
		PaidCount:     len(paid),
	}
	stats.FuturePayoutAmount = stats.PendingNet + stats.OnHoldNet + stats.WithheldNet

	lastMonth := asOf.Month() - 1
	lastMonthYear := asOf.Year()
	if asOf.Month() == time.January {
		lastMonth = time.December
		lastMonthYear--
	}

	for _, p := range payouts {
		if p.Status != payoutdomain.PayoutStatusPaid {
			continue
		}
		stats.TotalPayoutTillDate += p.NetAmount
		// Paid aggregates come from the batch's stored figures so they match
		// what the settlement job actually charged.
		stats.PaidGrossAmount += p.GrossSales - p.Fees
		stats.PaidRefundsDeducted += p.RefundDeductions
		if time.Month(p.PayoutMonth) == lastMonth && p.PayoutYear == lastMonthYear {
			stats.LastMonthPayout += p.NetAmount
		}
	}

	for _, refund := range refundDetails {
		if refund.WasInPayout {
			stats.TotalRefundsDeducted += refund.Amount
		}
	}

	return stats
}
