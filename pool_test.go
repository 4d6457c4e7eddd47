package clamm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// S1: a round of swaps at curTick=0 must each return qtyOut>0 and leave
// all four sub-AMM ticks equal.
func TestPoolS1TickEqualityAcrossSwaps(t *testing.T) {
	p, err := NewPool(0, DefaultPoolConfig(), &InitialReserves{BaseQty: dec("1000"), QuoteQty: dec("1000")})
	require.NoError(t, err)

	swaps := []struct {
		dir   Direction
		qtyIn string
	}{
		{BaseToQuote, "5"},
		{QuoteToBase, "2"},
		{BaseToQuote, "10"},
	}
	for _, s := range swaps {
		res, serr := p.Swap(s.dir, dec(s.qtyIn))
		require.NoError(t, serr)
		assert.True(t, res.QtyOut.GreaterThan(Zero), "swap %+v must produce positive output", s)
		assertFourTicksEqual(t, p)
	}
}

// assertFourTicksEqual checks property 1 from spec.md §8 directly against
// the sub-AMMs' own cursors, not just the pool's cached curTick.
func assertFourTicksEqual(t *testing.T, p *Pool) {
	t.Helper()
	want := p.CurAbsoluteTick()
	for _, amm := range p.all() {
		got := toAbsolute(amm.current.tickIdx, amm.side)
		assert.Equal(t, want, got, "sub-AMM %v/drifting=%v tick diverged", amm.side, amm.drifting)
	}
}

// S2: repeated base→quote swaps at curTick=1000 must strictly decrease
// the absolute tick.
func TestPoolS2BaseToQuoteMovesTickDown(t *testing.T) {
	p, err := NewPool(1000, DefaultPoolConfig(), &InitialReserves{BaseQty: dec("1000000"), QuoteQty: dec("1000000")})
	require.NoError(t, err)

	for i := 0; i < 100 && p.CurAbsoluteTick() > 990; i++ {
		_, serr := p.Swap(BaseToQuote, dec("100"))
		require.NoError(t, serr)
	}
	assert.Less(t, p.CurAbsoluteTick(), 1000)
}

// S3: continuing from an S2-like run, repeated quote→base swaps must
// strictly raise the tick back up from its low point.
func TestPoolS3QuoteToBaseRecoversTickUp(t *testing.T) {
	p, err := NewPool(1000, DefaultPoolConfig(), &InitialReserves{BaseQty: dec("1000000"), QuoteQty: dec("1000000")})
	require.NoError(t, err)

	for i := 0; i < 100 && p.CurAbsoluteTick() > 990; i++ {
		_, serr := p.Swap(BaseToQuote, dec("100"))
		require.NoError(t, serr)
	}
	low := p.CurAbsoluteTick()

	for i := 0; i < 100 && p.CurAbsoluteTick() < 1000; i++ {
		_, serr := p.Swap(QuoteToBase, dec("100"))
		require.NoError(t, serr)
	}
	assert.Greater(t, p.CurAbsoluteTick(), low)
}

// S4: a single small swap against a lopsided pool must report a
// plausible fee factor, a positive output, a downward tick move, and a
// non-decreasing overall quote reserve (property 2).
func TestPoolS4LopsidedSwapFeeAndReserveBounds(t *testing.T) {
	config := DefaultPoolConfig()
	config.TickSpan = 1000
	p, err := NewPool(114445, config, &InitialReserves{BaseQty: dec("100"), QuoteQty: dec("9000000")})
	require.NoError(t, err)

	quoteBefore := p.OverallReserve(Quote)
	res, err := p.Swap(BaseToQuote, dec("1"))
	require.NoError(t, err)

	assert.True(t, res.FeeFactor.GreaterThanOrEqual(config.MinFee))
	assert.True(t, res.FeeFactor.LessThanOrEqual(config.MaxFee.Mul(decimal.NewFromInt(2))))
	assert.True(t, res.QtyOut.GreaterThan(Zero))
	assert.Less(t, p.CurAbsoluteTick(), 114445)
	assert.True(t, p.OverallReserve(Quote).GreaterThanOrEqual(quoteBefore))
}

// S6: deposit, trade to populate inventory, withdraw half, and check that
// withdrawn amounts plus the remaining overall reserve reconstruct the
// pre-withdraw overall reserve on each side (property 2/3 combined).
func TestPoolS6WithdrawHalfConservesReserve(t *testing.T) {
	p, err := NewPool(0, DefaultPoolConfig(), &InitialReserves{BaseQty: dec("1000"), QuoteQty: dec("1000")})
	require.NoError(t, err)

	_, err = p.Swap(BaseToQuote, dec("20"))
	require.NoError(t, err)
	_, err = p.Swap(QuoteToBase, dec("5"))
	require.NoError(t, err)

	baseBefore := p.OverallReserve(Base)
	quoteBefore := p.OverallReserve(Quote)

	baseOut, baseInvOut, err := p.Withdraw(Base, dec("500"))
	require.NoError(t, err)
	quoteOut, quoteInvOut, err := p.Withdraw(Quote, dec("500"))
	require.NoError(t, err)

	baseAfter := p.OverallReserve(Base)
	quoteAfter := p.OverallReserve(Quote)

	assert.True(t, baseAfter.Add(baseOut).Add(baseInvOut).Sub(baseBefore).Abs().LessThan(dec("0.0001")),
		"base: withdrawn(%s+%s) + remaining(%s) should reconstruct pre-withdraw(%s)", baseOut, baseInvOut, baseAfter, baseBefore)
	assert.True(t, quoteAfter.Add(quoteOut).Add(quoteInvOut).Sub(quoteBefore).Abs().LessThan(dec("0.0001")),
		"quote: withdrawn(%s+%s) + remaining(%s) should reconstruct pre-withdraw(%s)", quoteOut, quoteInvOut, quoteAfter, quoteBefore)
}

// Property 3: depositing then immediately withdrawing the same amount
// (no trades in between) returns exactly the deposited side and nothing
// of the other.
func TestPoolDepositWithdrawRoundTrip(t *testing.T) {
	p, err := NewPool(0, DefaultPoolConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, p.Deposit(Base, dec("1000")))
	reserveOut, invOut, err := p.Withdraw(Base, dec("1000"))
	require.NoError(t, err)

	assert.True(t, reserveOut.Sub(dec("1000")).Abs().LessThan(dec("0.0000001")))
	assert.True(t, invOut.IsZero())
}

// Property 6: a non-trivial swap that crosses ticks must report
// non-negative slippage.
func TestPoolSlippageIsNonNegative(t *testing.T) {
	p, err := NewPool(0, DefaultPoolConfig(), &InitialReserves{BaseQty: dec("100"), QuoteQty: dec("100")})
	require.NoError(t, err)

	res, err := p.Swap(BaseToQuote, dec("50"))
	require.NoError(t, err)
	assert.True(t, res.Slippage.GreaterThanOrEqual(Zero), "slippage %s must be non-negative", res.Slippage)
}

func TestPoolCloneIsIndependent(t *testing.T) {
	p, err := NewPool(0, DefaultPoolConfig(), &InitialReserves{BaseQty: dec("1000"), QuoteQty: dec("1000")})
	require.NoError(t, err)

	clone := p.Clone()
	_, err = clone.Swap(BaseToQuote, dec("500"))
	require.NoError(t, err)

	assert.NotEqual(t, p.CurAbsoluteTick(), clone.CurAbsoluteTick(), "mutating the clone must not move the original's tick")
}

func TestPoolEstimateSwapDoesNotMutate(t *testing.T) {
	p, err := NewPool(0, DefaultPoolConfig(), &InitialReserves{BaseQty: dec("1000"), QuoteQty: dec("1000")})
	require.NoError(t, err)

	tickBefore := p.CurAbsoluteTick()
	_, err = p.EstimateSwap(BaseToQuote, dec("5"))
	require.NoError(t, err)
	assert.Equal(t, tickBefore, p.CurAbsoluteTick(), "EstimateSwap must not mutate the receiver")
}

// A pool with no deposits at all has nothing to route a swap through: the
// reserve ranges on every sub-AMM are still empty, so EstimateSwap must
// surface an error rather than silently returning a zero-value result.
func TestPoolEstimateSwapErrorsWithNoDeposits(t *testing.T) {
	p, err := NewPool(0, DefaultPoolConfig(), nil)
	require.NoError(t, err)

	_, err = p.EstimateSwap(BaseToQuote, dec("5"))
	require.Error(t, err)
}
