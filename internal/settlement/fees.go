package settlement

import orderdomain "github.com/trovio/settled/internal/order/domain"

// AllocateFees splits a payment's processor fee and tax across the order
// proportionally to this item's share of the payment amount. Every sibling
// item applies the same formula against the same payment, so the per-item
// allocations sum back to the payment totals.
func AllocateFees(payment *orderdomain.Payment, itemSubtotal float64) (fee, tax float64) {
	if payment == nil || payment.Amount == 0 {
		return 0, 0
	}
	proportion := itemSubtotal / payment.Amount
	return payment.Fee * proportion, payment.Tax * proportion
}
