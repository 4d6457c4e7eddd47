package clamm

import (
	"github.com/shopspring/decimal"
)

func init() {
	// The book and RecoveryBin chain several divisions per swap step
	// (geometric-range closed forms, shortfall ratios, withdrawal cuts).
	// 40-digit precision gives headroom so repeated Div calls don't
	// compound rounding error across a long swap.
	decimal.DivisionPrecision = 40
}

var (
	// Zero is the decimal package's own constant and One its unit value,
	// named here so call sites read like the domain ("qty.Equal(Zero)") instead of
	// reaching for decimal.Zero/decimal.NewFromInt(1) everywhere.
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)

	// BasePrice is the log-price base: price(tick) = BasePrice^tick.
	BasePrice = decimal.RequireFromString("1.0001")

	// DefaultDustTolerance absorbs residual error from repeated
	// division so a quantity that should be exactly zero (after a
	// chain of Div/Mul operations) still satisfies the state machine's
	// zero-checks.
	DefaultDustTolerance = decimal.RequireFromString("0.000000000000000001")
)

// powInt raises base to an integer exponent by repeated squaring, so tick
// math stays exact fixed-point arithmetic rather than a floating pow.
func powInt(base decimal.Decimal, exp int) decimal.Decimal {
	if exp == 0 {
		return One
	}
	neg := exp < 0
	if neg {
		exp = -exp
	}
	result := One
	b := base
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(b)
		}
		b = b.Mul(b)
		exp >>= 1
	}
	if !neg {
		return result
	}
	if result.IsZero() {
		panicInvariant("powInt: cannot invert a zero result for base %s exp -%d", base, exp)
	}
	return One.Div(result)
}

// isDust reports whether d is within DefaultDustTolerance of zero.
func isDust(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(DefaultDustTolerance)
}

// clampZero rounds values that are dust-close to zero down to exactly
// zero; used after chained divisions that should land on zero exactly
// (e.g. a fully-drained range) but may carry a sign-bearing remainder.
func clampZero(d decimal.Decimal) decimal.Decimal {
	if isDust(d) {
		return Zero
	}
	return d
}

// minDecimal and maxDecimal mirror decimal.Decimal's missing stdlib-style
// min/max helpers; shopspring/decimal does not export them.
func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
