package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	orderdomain "github.com/trovio/settled/internal/order/domain"
)

func intPtr(v int) *int { return &v }

func TestEvaluateReturnWindow_DefaultWindowWhenNoPolicy(t *testing.T) {
	orderDate := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// Day 5 of a 7-day default window: still open.
	asOf := orderDate.Add(5 * 24 * time.Hour)
	window := EvaluateReturnWindow(nil, 7, orderDate, asOf)

	assert.False(t, window.NonReturnable)
	assert.Equal(t, 7, window.ReturnDays)
	assert.Equal(t, 5, window.DaysSinceOrder)
	assert.Equal(t, 2, window.DaysRemaining)
	assert.False(t, window.WindowClosed)
	assert.NotNil(t, window.WindowCloseDate)
	assert.Equal(t, orderDate.Add(7*24*time.Hour), *window.WindowCloseDate)
}

func TestEvaluateReturnWindow_ClosesExactlyAtBoundary(t *testing.T) {
	orderDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// One instant before the 7th full day: open.
	window := EvaluateReturnWindow(nil, 7, orderDate, orderDate.Add(7*24*time.Hour-time.Second))
	assert.False(t, window.WindowClosed)
	assert.Equal(t, 6, window.DaysSinceOrder)

	// Exactly 7 full days elapsed: closed.
	window = EvaluateReturnWindow(nil, 7, orderDate, orderDate.Add(7*24*time.Hour))
	assert.True(t, window.WindowClosed)
	assert.Equal(t, 7, window.DaysSinceOrder)
	assert.Equal(t, 0, window.DaysRemaining)
}

func TestEvaluateReturnWindow_ExplicitPolicyOverridesDefault(t *testing.T) {
	orderDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	policy := &orderdomain.ReturnPolicy{ListingID: 42, ReturnDays: intPtr(30)}

	window := EvaluateReturnWindow(policy, 7, orderDate, orderDate.Add(10*24*time.Hour))

	assert.Equal(t, 30, window.ReturnDays)
	assert.False(t, window.WindowClosed)
	assert.Equal(t, 20, window.DaysRemaining)
}

func TestEvaluateReturnWindow_NonReturnableListing(t *testing.T) {
	orderDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// A policy row with nil days marks the listing non-returnable. The window
	// is closed immediately, even at the instant of the order.
	policy := &orderdomain.ReturnPolicy{ListingID: 42, ReturnDays: nil}
	window := EvaluateReturnWindow(policy, 7, orderDate, orderDate)
	assert.True(t, window.NonReturnable)
	assert.True(t, window.WindowClosed)
	assert.Nil(t, window.WindowCloseDate)

	// Zero days behaves the same way as nil.
	policy = &orderdomain.ReturnPolicy{ListingID: 42, ReturnDays: intPtr(0)}
	window = EvaluateReturnWindow(policy, 7, orderDate, orderDate)
	assert.True(t, window.NonReturnable)
	assert.True(t, window.WindowClosed)
}

func TestEvaluateReturnWindow_AbsentRowDiffersFromNullDays(t *testing.T) {
	orderDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	asOf := orderDate.Add(2 * 24 * time.Hour)

	// No policy row: returnable with the default window.
	noRow := EvaluateReturnWindow(nil, 7, orderDate, asOf)
	assert.False(t, noRow.WindowClosed)

	// A row exists but with null days: a deliberate opt-out of returns.
	nullDays := EvaluateReturnWindow(&orderdomain.ReturnPolicy{ListingID: 1}, 7, orderDate, asOf)
	assert.True(t, nullDays.WindowClosed)
}

func TestEvaluateReturnWindow_ClosedStateIsMonotone(t *testing.T) {
	orderDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	policy := &orderdomain.ReturnPolicy{ListingID: 7, ReturnDays: intPtr(3)}

	closed := false
	for day := 0; day <= 30; day++ {
		asOf := orderDate.Add(time.Duration(day) * 24 * time.Hour)
		window := EvaluateReturnWindow(policy, 7, orderDate, asOf)
		if closed {
			assert.True(t, window.WindowClosed, "window reopened on day %d", day)
		}
		closed = closed || window.WindowClosed
	}
	assert.True(t, closed)
}

func TestEvaluateReturnWindow_AsOfBeforeOrderDate(t *testing.T) {
	orderDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	window := EvaluateReturnWindow(nil, 7, orderDate, orderDate.Add(-48*time.Hour))

	assert.Equal(t, 0, window.DaysSinceOrder)
	assert.False(t, window.WindowClosed)
}
