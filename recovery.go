package clamm

import "github.com/shopspring/decimal"

// RecoveryBin holds fee collateral (denominated in its sub-AMM's
// outbound asset) and uses it to buy back IL on the worst outstanding
// inventory tick during a swap.
type RecoveryBin struct {
	collateral decimal.Decimal
}

func newRecoveryBin() *RecoveryBin {
	return &RecoveryBin{collateral: Zero}
}

func (bin *RecoveryBin) addCollateral(fees decimal.Decimal) {
	bin.collateral = bin.collateral.Add(fees)
}

// withdrawCut returns collateral·cut and removes it from the bin. It
// requires no borrowed tick in flight — callers only invoke it between
// swaps, when nothing is borrowed.
func (bin *RecoveryBin) withdrawCut(cut decimal.Decimal) decimal.Decimal {
	amt := bin.collateral.Mul(cut)
	bin.collateral = clampZero(bin.collateral.Sub(amt))
	return amt
}

// recover repairs shortfall against the worst inventory tick of bk.
// Every call resolves at most one worst tick: fully (case A), partially
// by available collateral (case B), or partially by available reserveIn
// (case C); an untouched tick (zero collateral, same-tick inventory, or
// no IL) reports zero recovery so CurrentTick's swap loop knows to stop
// retrying.
func (bin *RecoveryBin) recover(bk *book, side Side, reserveIn decimal.Decimal, curTickIdx int) (inventoryOut, remainderReserveIn, recoveredReserve decimal.Decimal, err error) {
	remainderReserveIn = reserveIn
	if bin.collateral.IsZero() {
		return Zero, remainderReserveIn, Zero, nil
	}

	var outInventory, outRecoveredReserve decimal.Decimal
	_, ferr := bk.borrowInventoryForRecovery(func(qty decimal.Decimal, idx int) BorrowOutcome {
		if idx == curTickIdx {
			return BorrowOutcome{Resolved: false, Leftover: qty, Stop: true}
		}
		p0 := mustPriceAt(idx, side)
		p1 := mustPriceAt(curTickIdx, side)
		r0 := qty.Div(p0)
		i1 := r0.Mul(p1)
		delta := clampZero(i1.Sub(qty))
		if delta.IsNegative() {
			panicInvariant("recover: tick %d needs less inventory at current tick %d than it holds", idx, curTickIdx)
		}
		if delta.IsZero() {
			return BorrowOutcome{Resolved: false, Leftover: qty, Stop: true}
		}

		switch {
		case bin.collateral.GreaterThanOrEqual(delta) && remainderReserveIn.GreaterThanOrEqual(r0):
			// Case A: fully recovered.
			bin.collateral = clampZero(bin.collateral.Sub(delta))
			outInventory = outInventory.Add(i1)
			remainderReserveIn = clampZero(remainderReserveIn.Sub(r0))
			outRecoveredReserve = outRecoveredReserve.Add(r0)
			return BorrowOutcome{Resolved: true, Stop: true}

		case remainderReserveIn.GreaterThanOrEqual(r0):
			// Case B: limited by collateral.
			recoveredShare := bin.collateral.Div(delta)
			out := qty.Add(bin.collateral).Mul(recoveredShare)
			consumed := r0.Mul(recoveredShare)
			leftover := clampZero(qty.Sub(qty.Mul(recoveredShare)))
			outInventory = outInventory.Add(out)
			remainderReserveIn = clampZero(remainderReserveIn.Sub(consumed))
			outRecoveredReserve = outRecoveredReserve.Add(consumed)
			bin.collateral = Zero
			return BorrowOutcome{Resolved: false, Leftover: leftover, Stop: true}

		default:
			// Case C: limited by input reserve.
			recoveredShare := remainderReserveIn.Div(r0)
			out := qty.Add(bin.collateral).Mul(recoveredShare)
			leftover := clampZero(qty.Sub(qty.Mul(recoveredShare)))
			outInventory = outInventory.Add(out)
			outRecoveredReserve = outRecoveredReserve.Add(remainderReserveIn)
			bin.collateral = clampZero(bin.collateral.Sub(bin.collateral.Mul(recoveredShare)))
			remainderReserveIn = Zero
			return BorrowOutcome{Resolved: false, Leftover: leftover, Stop: true}
		}
	})
	if ferr != nil {
		return Zero, reserveIn, Zero, ferr
	}
	return outInventory, remainderReserveIn, outRecoveredReserve, nil
}

// sellBack liquidates idle collateral at the current price when no
// worst tick exists to recover against. Gated by PoolConfig.RecoverySellBack
// (off by default per the Open Question in DESIGN.md).
func (bin *RecoveryBin) sellBack(side Side, curTickIdx int) decimal.Decimal {
	if bin.collateral.IsZero() {
		return Zero
	}
	price := mustPriceAt(curTickIdx, side)
	sold := bin.collateral
	bin.collateral = Zero
	return sold.Mul(price)
}

func (bin *RecoveryBin) clone() *RecoveryBin {
	return &RecoveryBin{collateral: bin.collateral}
}
