package clamm

import "github.com/shopspring/decimal"

// SwapDirection is a sub-AMM-local fill direction: which accumulator a
// swap step draws down. Pool-level base→quote/quote→base routing maps
// onto this per sub-AMM per the routing table in Pool.legsFor.
type SwapDirection int

const (
	ReserveToInventory SwapDirection = iota
	InventoryToReserve
)

// CurrentTick is the active tick's fill state: the fill constraint
// currentInventory + currentReserve·price == targetReserve·price holds
// whenever the tick is freshly loaded (one of currentReserve/
// currentInventory is always zero immediately after a load, since a tick
// is obtained from exactly one of the reserve or inventory ranges at a
// time).
type CurrentTick struct {
	side Side
	tickIdx int

	targetReserve    decimal.Decimal
	currentReserve   decimal.Decimal
	targetInventory  decimal.Decimal
	currentInventory decimal.Decimal

	bin *RecoveryBin
}

func newCurrentTick(side Side, tickIdx int) *CurrentTick {
	return &CurrentTick{
		side: side, tickIdx: tickIdx,
		targetReserve: Zero, currentReserve: Zero,
		targetInventory: Zero, currentInventory: Zero,
		bin: newRecoveryBin(),
	}
}

func (ct *CurrentTick) hasReserve() bool   { return !isDust(ct.currentReserve) }
func (ct *CurrentTick) hasInventory() bool { return !isDust(ct.currentInventory) }

// swap fills qtyIn against the active tick, trying RecoveryBin relief
// first when moving reserve into inventory. It returns the amount
// produced, any unconsumed remainder, the reserve recovered via the bin,
// and whether the tick is now exhausted and the caller must advance.
func (ct *CurrentTick) swap(bk *book, dir SwapDirection, qtyIn decimal.Decimal, recoverySellBack bool) (qtyOut, remainderIn, recoveredReserve decimal.Decimal, tickExhausted bool, err error) {
	if dir == ReserveToInventory {
		return ct.swapReserveToInventory(bk, qtyIn, recoverySellBack)
	}
	return ct.swapInventoryToReserve(qtyIn)
}

func (ct *CurrentTick) swapReserveToInventory(bk *book, qtyIn decimal.Decimal, recoverySellBack bool) (qtyOut, remainderIn, recoveredReserve decimal.Decimal, tickExhausted bool, err error) {
	remainderIn = qtyIn
	qtyOut = Zero
	recoveredReserve = Zero

	for {
		invOut, newRemainder, recovered, rerr := ct.bin.recover(bk, ct.side, remainderIn, ct.tickIdx)
		if rerr != nil {
			return Zero, qtyIn, Zero, false, rerr
		}
		remainderIn = newRemainder
		if invOut.IsZero() {
			break
		}
		qtyOut = qtyOut.Add(invOut)
		recoveredReserve = recoveredReserve.Add(recovered)
		if isDust(remainderIn) {
			remainderIn = Zero
			break
		}
	}

	// No worst tick to recover against (no inventory anywhere in the book):
	// an idle bin sells its collateral back into this tick's inventory
	// instead of sitting unused. Off by default; see PoolConfig.RecoverySellBack.
	if recoverySellBack && !isDust(remainderIn) && ct.bin.collateral.GreaterThan(Zero) && !bk.hasInventory() {
		extra := ct.bin.sellBack(ct.side, ct.tickIdx)
		ct.currentInventory = ct.currentInventory.Add(extra)
		ct.targetInventory = ct.targetInventory.Add(extra)
	}

	if isDust(remainderIn) {
		remainderIn = Zero
		return qtyOut, remainderIn, recoveredReserve, false, nil
	}
	if !ct.hasInventory() {
		return qtyOut, remainderIn, recoveredReserve, true, nil
	}

	price := mustPriceAt(ct.tickIdx, ct.side)
	needsInventory := remainderIn.Mul(price)
	if needsInventory.LessThan(ct.currentInventory) {
		ct.currentInventory = ct.currentInventory.Sub(needsInventory)
		qtyOut = qtyOut.Add(needsInventory)
		remainderIn = Zero
		return qtyOut, remainderIn, recoveredReserve, false, nil
	}

	consumedReserve := ct.currentInventory.Div(price)
	qtyOut = qtyOut.Add(ct.currentInventory)
	ct.currentInventory = Zero
	remainderIn = clampZero(remainderIn.Sub(consumedReserve))
	return qtyOut, remainderIn, recoveredReserve, true, nil
}

func (ct *CurrentTick) swapInventoryToReserve(qtyIn decimal.Decimal) (qtyOut, remainderIn, recoveredReserve decimal.Decimal, tickExhausted bool, err error) {
	remainderIn = qtyIn
	recoveredReserve = Zero

	if !ct.hasReserve() {
		return Zero, remainderIn, recoveredReserve, true, nil
	}

	price := mustPriceAt(ct.tickIdx, ct.side)
	needsReserve := remainderIn.Div(price)
	if needsReserve.LessThan(ct.currentReserve) {
		ct.currentReserve = ct.currentReserve.Sub(needsReserve)
		qtyOut = needsReserve
		remainderIn = Zero
		return qtyOut, remainderIn, recoveredReserve, false, nil
	}

	consumedInventory := ct.currentReserve.Mul(price)
	qtyOut = ct.currentReserve
	ct.currentReserve = Zero
	remainderIn = clampZero(remainderIn.Sub(consumedInventory))
	return qtyOut, remainderIn, recoveredReserve, true, nil
}

// nextInventoryTick requires currentInventory to already be drained. It
// packages any residual currentReserve back into the book, advances the
// tick index by −1 (base) / +1 (quote) — selling base must push the
// shared tick down, selling quote must push it up, per spec.md §8 S2/S3
// — and tries to load the inventory tick now at that index. found is
// false on a gap: the caller must advance again.
func (ct *CurrentTick) nextInventoryTick(bk *book) (found bool, err error) {
	if ct.hasInventory() {
		panicInvariant("nextInventoryTick: tick %d still holds inventory %s", ct.tickIdx, ct.currentInventory)
	}
	residualReserve := ct.currentReserve
	ct.currentReserve, ct.targetReserve = Zero, Zero
	ct.currentInventory, ct.targetInventory = Zero, Zero

	advance := -1
	if ct.side == Quote {
		advance = 1
	}
	newTick := ct.tickIdx + advance
	if verr := validateTick(newTick); verr != nil {
		return false, verr
	}
	ct.tickIdx = newTick

	qty, found, ferr := bk.obtainInventoryTick(residualReserve, newTick)
	if ferr != nil {
		return false, ferr
	}
	if !found {
		return false, nil
	}
	price := mustPriceAt(newTick, ct.side)
	ct.currentInventory, ct.targetInventory = qty, qty
	ct.targetReserve = qty.Div(price)
	return true, nil
}

// nextReserveTick is the symmetric counterpart of nextInventoryTick: it
// requires currentReserve already drained, packages residual
// currentInventory as backing for the book's best inventory range at the
// tick just vacated, advances the tick index by +1 (base) / −1 (quote)
// — matching the direction the paired InventoryToReserve leg must move
// for the lock-step tick-equality invariant to hold (spec.md §8) — and
// loads the reserve tick now at the new index (reserve is contiguous, so
// this always succeeds unless the reserve range itself is empty).
func (ct *CurrentTick) nextReserveTick(bk *book) (found bool, err error) {
	if ct.hasReserve() {
		panicInvariant("nextReserveTick: tick %d still holds reserve %s", ct.tickIdx, ct.currentReserve)
	}
	oldTick := ct.tickIdx
	residualInventory := ct.currentInventory
	ct.currentReserve, ct.targetReserve = Zero, Zero
	ct.currentInventory, ct.targetInventory = Zero, Zero

	advance := 1
	if ct.side == Quote {
		advance = -1
	}
	newTick := ct.tickIdx + advance
	if verr := validateTick(newTick); verr != nil {
		return false, verr
	}
	ct.tickIdx = newTick

	qty, _, ferr := bk.obtainReserveTick(residualInventory.GreaterThan(Zero), oldTick, residualInventory)
	if ferr != nil {
		return false, ferr
	}
	price := mustPriceAt(newTick, ct.side)
	ct.currentReserve, ct.targetReserve = qty, qty
	ct.targetInventory = qty.Mul(price)
	return true, nil
}

func (ct *CurrentTick) clone() *CurrentTick {
	cp := *ct
	binCopy := *ct.bin
	cp.bin = &binCopy
	return &cp
}
