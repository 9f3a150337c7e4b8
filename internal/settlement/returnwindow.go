package settlement

import (
	"time"

	orderdomain "github.com/trovio/settled/internal/order/domain"
)

// ReturnWindow is the evaluated return state of one order item at a fixed
// instant.
type ReturnWindow struct {
	NonReturnable   bool       `json:"non_returnable"`
	ReturnDays      int        `json:"return_days"`
	DaysSinceOrder  int        `json:"days_since_order"`
	DaysRemaining   int        `json:"days_remaining"`
	WindowClosed    bool       `json:"window_closed"`
	WindowCloseDate *time.Time `json:"window_close_date,omitempty"`
}

// EvaluateReturnWindow decides whether an item's return window is closed as of
// the given instant. policy is nil when no return policy row exists for the
// listing, which means the default window applies. A policy row whose
// ReturnDays is nil or zero marks the listing non-returnable: the window is
// closed immediately.
//
// The result is a pure function of its inputs, and for fixed inputs the
// WindowClosed flag is monotone in asOf: once closed it can never reopen.
func EvaluateReturnWindow(policy *orderdomain.ReturnPolicy, defaultDays int, orderDate, asOf time.Time) ReturnWindow {
	if policy != nil && (policy.ReturnDays == nil || *policy.ReturnDays == 0) {
		return ReturnWindow{
			NonReturnable:  true,
			DaysSinceOrder: daysBetween(orderDate, asOf),
			WindowClosed:   true,
		}
	}

	returnDays := defaultDays
	if policy != nil {
		returnDays = *policy.ReturnDays
	}

	daysSince := daysBetween(orderDate, asOf)
	remaining := returnDays - daysSince
	if remaining < 0 {
		remaining = 0
	}
	closeDate := orderDate.Add(time.Duration(returnDays) * 24 * time.Hour)

	return ReturnWindow{
		ReturnDays:      returnDays,
		DaysSinceOrder:  daysSince,
		DaysRemaining:   remaining,
		WindowClosed:    daysSince >= returnDays,
		WindowCloseDate: &closeDate,
	}
}

func daysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}
