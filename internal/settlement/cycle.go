package settlement

import (
	"time"

	"github.com/trovio/settled/internal/config"
)

// HoldToNextCycle implements the hold-the-first-three policy: a seller's first
// few delivered items (the count includes the item being processed) settle on
// the following month's cycle instead of the current one.
func HoldToNextCycle(deliveredCount, newSellerHoldCount int) bool {
	return deliveredCount <= newSellerHoldCount
}

// CycleDate returns the settlement date (midnight UTC on the policy's day of
// month) for the current or next monthly cycle relative to asOf. December
// rolls over to January of the following year.
func CycleDate(asOf time.Time, nextMonth bool, dayOfMonth int) time.Time {
	asOf = asOf.UTC()
	year, month := asOf.Year(), asOf.Month()
	if nextMonth {
		if month == time.December {
			month = time.January
			year++
		} else {
			month++
		}
	}
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

// SettlementDate combines the two rules for a delivered item. countErr reports
// whether the delivered count could be determined; when it could not, the
// conservative choice is the next cycle, delaying payout rather than releasing
// early.
func SettlementDate(asOf time.Time, deliveredCount int, countErr error, policy config.Policy) time.Time {
	next := true
	if countErr == nil {
		next = HoldToNextCycle(deliveredCount, policy.NewSellerHoldCount)
	}
	return CycleDate(asOf, next, policy.SettlementDayOfMonth)
}
