package clamm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCurrentTickDrainsReserveRangeThenReportsEmptyRange builds a deliberately
// narrow reserve range (width 5) instead of routing through a full Pool, so
// draining it to EmptyRange takes a handful of steps rather than walking the
// whole tick domain.
func TestCurrentTickDrainsReserveRangeThenReportsEmptyRange(t *testing.T) {
	bk := newBook(Base)
	bk.reserve = newRange(ReserveKind, Base, 95, 99, decimal.NewFromInt(500))

	ct := newCurrentTick(Base, 100)
	found, err := ct.nextReserveTick(bk)
	require.NoError(t, err)
	require.True(t, found)

	for i := 0; i < 5; i++ {
		price := mustPriceAt(ct.tickIdx, Base)
		qtyIn := ct.currentReserve.Mul(price)
		out, rem, _, exhausted, serr := ct.swap(bk, InventoryToReserve, qtyIn, false)
		require.NoError(t, serr)
		assert.True(t, exhausted, "tick %d should exhaust exactly when its reserve is fully drained", ct.tickIdx)
		assert.True(t, rem.IsZero(), "fully costed swap should leave no remainder, got %s", rem)
		assert.True(t, out.GreaterThan(Zero))

		_, nerr := ct.nextReserveTick(bk)
		if i < 4 {
			require.NoError(t, nerr)
		} else {
			require.Error(t, nerr, "draining the 5th and final reserve tick must report EmptyRange on the next advance")
			assert.True(t, IsKind(nerr, ErrEmptyRange))
		}
	}
}

// TestCurrentTickReserveToInventoryPartialFill exercises the non-exhausting
// branch of swapReserveToInventory: a small qtyIn that the active tick's
// inventory can fully absorb without crossing.
func TestCurrentTickReserveToInventoryPartialFill(t *testing.T) {
	bk := newBook(Base)
	ct := newCurrentTick(Base, 100)
	ct.currentInventory = decimal.NewFromInt(1000)
	ct.targetInventory = decimal.NewFromInt(1000)

	out, rem, recovered, exhausted, err := ct.swap(bk, ReserveToInventory, decimal.NewFromInt(1), false)
	require.NoError(t, err)
	assert.False(t, exhausted)
	assert.True(t, rem.IsZero())
	assert.True(t, recovered.IsZero())
	assert.True(t, out.GreaterThan(Zero))
	assert.True(t, ct.currentInventory.LessThan(decimal.NewFromInt(1000)))
}

// TestCurrentTickReserveToInventoryExhaustsOnZeroInventory covers the
// tickExhausted=true, remainder>0 branch from spec.md §4.4 step (3).
func TestCurrentTickReserveToInventoryExhaustsOnZeroInventory(t *testing.T) {
	bk := newBook(Base)
	ct := newCurrentTick(Base, 100)

	out, rem, _, exhausted, err := ct.swap(bk, ReserveToInventory, decimal.NewFromInt(5), false)
	require.NoError(t, err)
	assert.True(t, exhausted)
	assert.True(t, out.IsZero())
	assert.True(t, rem.Equal(decimal.NewFromInt(5)))
}

// TestCurrentTickNextInventoryTickPanicsWithResidualInventory checks the
// InvariantViolation precondition from spec.md §4.4/§8 property 8.
func TestCurrentTickNextInventoryTickPanicsWithResidualInventory(t *testing.T) {
	bk := newBook(Base)
	ct := newCurrentTick(Base, 100)
	ct.currentInventory = decimal.NewFromInt(10)

	assert.Panics(t, func() {
		_, _ = ct.nextInventoryTick(bk)
	})
}

func TestCurrentTickNextReserveTickPanicsWithResidualReserve(t *testing.T) {
	bk := newBook(Base)
	ct := newCurrentTick(Base, 100)
	ct.currentReserve = decimal.NewFromInt(10)

	assert.Panics(t, func() {
		_, _ = ct.nextReserveTick(bk)
	})
}

func TestCurrentTickCloneIsIndependent(t *testing.T) {
	ct := newCurrentTick(Base, 100)
	ct.currentReserve = decimal.NewFromInt(50)
	ct.bin.addCollateral(decimal.NewFromInt(3))

	cp := ct.clone()
	cp.currentReserve = decimal.NewFromInt(999)
	cp.bin.addCollateral(decimal.NewFromInt(1))

	assert.True(t, ct.currentReserve.Equal(decimal.NewFromInt(50)))
	assert.True(t, ct.bin.collateral.Equal(decimal.NewFromInt(3)))
}
