package vault

import "math/bits"

// Share math.
//
// Issuance and valuation use the proportional formula with a 128-bit
// intermediate product so the multiplication cannot overflow before the
// division reduces it. Division truncates toward zero, which always favors
// existing shareholders: a depositor never receives more than their exact
// proportional entitlement.

// SharesForDeposit returns the shares to mint for depositing amount into a
// vault holding totalAssets against totalShares outstanding.
//
// The very first issuance (no shares outstanding) is 1:1. A vault with
// shares outstanding but zero assets cannot price a deposit and fails with
// ErrDivisionByZero.
func SharesForDeposit(totalAssets, totalShares, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	if totalShares == 0 {
		return amount, nil
	}
	if totalAssets == 0 {
		return 0, ErrDivisionByZero
	}
	return mulDiv(amount, totalShares, totalAssets)
}

// AssetsForShares returns the asset value of shares in a vault holding
// totalAssets against totalShares outstanding. Valuing against zero shares
// is an error: there is nothing to value against.
func AssetsForShares(totalAssets, totalShares, shares uint64) (uint64, error) {
	if shares == 0 {
		return 0, ErrInvalidAmount
	}
	if totalShares == 0 {
		return 0, ErrDivisionByZero
	}
	return mulDiv(shares, totalAssets, totalShares)
}

// mulDiv computes floor(a * b / d) exactly using a 128-bit intermediate.
// Returns ErrMathOverflow when the quotient does not fit in 64 bits.
func mulDiv(a, b, d uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		// bits.Div64 would panic; the quotient needs more than 64 bits.
		return 0, ErrMathOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}

// checkedAdd returns a+b or ErrMathOverflow if the sum wraps.
func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrMathOverflow
	}
	return sum, nil
}
