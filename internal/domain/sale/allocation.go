package sale

import "github.com/xenking/sales-api/internal/domain/money"

// AllocateDiscount splits discount across items proportionally to their gross
// values. Every item but the last receives round(discount × g / Σg); the last
// item receives the exact remainder, so the shares always sum to discount.
// A share never takes the running total past discount, and the remainder is
// clamped at zero. A zero gross total yields all zeros.
//
// Callers pass 0 ≤ discount ≤ Σgross. The returned slice has the same length
// and order as gross.
func AllocateDiscount(gross []money.Money, discount money.Money) []money.Money {
	shares := make([]money.Money, len(gross))
	if len(gross) == 0 {
		return shares
	}

	total := money.Sum(gross...)
	if total.IsZero() || !discount.IsPositive() {
		for i := range shares {
			shares[i] = money.Zero
		}
		return shares
	}

	allocated := money.Zero
	last := len(gross) - 1
	for i, g := range gross[:last] {
		share := money.Min(money.Ratio(discount, g, total), discount.Sub(allocated))
		shares[i] = share
		allocated = allocated.Add(share)
	}

	shares[last] = money.Max(discount.Sub(allocated), money.Zero)
	return shares
}
