package clamm

import "github.com/shopspring/decimal"

// AMM is one of the pool's four sub-AMMs: a liquidity book, an active
// tick, and virtual accounting (depositedReserve) for proportional
// withdrawal.
type AMM struct {
	side     Side
	drifting bool
	tickSpan int

	book             *book
	current          *CurrentTick
	depositedReserve decimal.Decimal
}

func newAMM(side Side, drifting bool, tickSpan int, curTick int) *AMM {
	return &AMM{
		side: side, drifting: drifting, tickSpan: tickSpan,
		book:             newBook(side),
		current:          newCurrentTick(side, curTick),
		depositedReserve: Zero,
	}
}

func (amm *AMM) initialReserveSpan() (int, int) {
	cur := amm.current.tickIdx
	below := belowCurrent(amm.side, ReserveKind)
	if !amm.drifting {
		if below {
			return MinTick, cur - 1
		}
		return cur + 1, MaxTick
	}
	if below {
		return cur - amm.tickSpan, cur - 1
	}
	return cur + 1, cur + amm.tickSpan
}

// deposit adds reserveQty. The first deposit initializes the reserve
// range's span (full domain for a stable AMM, a tickSpan-bounded window
// for a drifting one) and primes the active tick with one tick's worth;
// subsequent deposits split so the active tick gets one tick's share and
// the rest spreads uniformly across the existing width.
func (amm *AMM) deposit(reserveQty decimal.Decimal) error {
	if amm.book.reserve.IsEmpty() {
		left, right := amm.initialReserveSpan()
		qty := reserveQty.Div(decFromInt(right - left + 2))
		amm.book.reserve = newRange(ReserveKind, amm.side, left, right, reserveQty.Sub(qty))
		price := mustPriceAt(amm.current.tickIdx, amm.side)
		amm.current.currentReserve = amm.current.currentReserve.Add(qty)
		amm.current.targetReserve = amm.current.targetReserve.Add(qty)
		amm.current.targetInventory = amm.current.targetInventory.Add(qty.Mul(price))
		amm.depositedReserve = reserveQty
		amm.book.notifyReserveChanged()
		return nil
	}

	width := amm.book.reserve.Width()
	addToReserve := reserveQty.Mul(decFromInt(width)).Div(decFromInt(width + 1))
	addToCurTick := reserveQty.Sub(addToReserve)
	if err := amm.book.reserve.Put(addToReserve); err != nil {
		return err
	}
	amm.current.currentReserve = amm.current.currentReserve.Add(addToCurTick)
	amm.current.targetReserve = amm.current.targetReserve.Add(addToCurTick)
	amm.depositedReserve = amm.depositedReserve.Add(reserveQty)
	amm.book.notifyReserveChanged()
	return nil
}

// withdraw removes depositedCut's proportional share from the reserve
// range, the active tick (reserve, inventory, and bin collateral), and
// finally drains inventory from the worst end until the withdrawn
// respective reserve matches the target cut — early exiters absorb the
// worst IL first.
func (amm *AMM) withdraw(depositedCut decimal.Decimal) (withdrawnReserve, withdrawnInventory decimal.Decimal, err error) {
	if amm.depositedReserve.IsZero() {
		return Zero, Zero, newErr(ErrEmptyRange, "withdraw from an AMM with no deposits")
	}
	cut := depositedCut.Div(amm.depositedReserve)

	withdrawnReserve = amm.book.reserve.WithdrawCut(cut)

	ctReserveCut := amm.current.currentReserve.Mul(cut)
	amm.current.currentReserve = clampZero(amm.current.currentReserve.Sub(ctReserveCut))
	amm.current.targetReserve = clampZero(amm.current.targetReserve.Sub(amm.current.targetReserve.Mul(cut)))
	withdrawnReserve = withdrawnReserve.Add(ctReserveCut)

	ctInvCut := amm.current.currentInventory.Mul(cut)
	amm.current.currentInventory = clampZero(amm.current.currentInventory.Sub(ctInvCut))
	amm.current.targetInventory = clampZero(amm.current.targetInventory.Sub(amm.current.targetInventory.Mul(cut)))
	withdrawnInventory = ctInvCut

	withdrawnReserve = withdrawnReserve.Add(amm.current.bin.withdrawCut(cut))

	targetRR := amm.book.totalRespectiveReserve().Mul(cut)
	drainedRR := Zero
	for drainedRR.LessThan(targetRR) && len(amm.book.inventory) > 0 {
		worst := amm.book.inventory[len(amm.book.inventory)-1]
		qty, idx, terr := worst.TakeWorst()
		if terr != nil {
			return withdrawnReserve, withdrawnInventory, terr
		}
		if worst.IsEmpty() {
			amm.book.inventory = amm.book.inventory[:len(amm.book.inventory)-1]
		}
		price := mustPriceAt(idx, amm.side)
		tickRR := qty.Div(price)
		remainingRR := targetRR.Sub(drainedRR)

		if tickRR.LessThanOrEqual(remainingRR) || isDust(tickRR.Sub(remainingRR)) {
			withdrawnInventory = withdrawnInventory.Add(qty)
			drainedRR = drainedRR.Add(tickRR)
			continue
		}

		takenShare := remainingRR.Div(tickRR)
		takenQty := qty.Mul(takenShare)
		leftoverQty := clampZero(qty.Sub(takenQty))
		withdrawnInventory = withdrawnInventory.Add(takenQty)
		drainedRR = targetRR
		if leftoverQty.GreaterThan(Zero) {
			amm.book.inventory = append(amm.book.inventory, newRange(InventoryKind, amm.side, idx, idx, leftoverQty))
		}
	}

	amm.depositedReserve = clampZero(amm.depositedReserve.Sub(depositedCut))
	return withdrawnReserve, withdrawnInventory, nil
}

// drift moves a drifting AMM's reserve worst boundary toward targetWorst,
// declining (a no-op) if doing so would shrink the window below tickSpan.
func (amm *AMM) drift(targetWorst int) {
	if !amm.drifting || amm.book.reserve.IsEmpty() {
		return
	}
	best := amm.book.reserve.bestIndex()
	below := belowCurrent(amm.side, ReserveKind)
	var newWidth int
	if below {
		newWidth = best - targetWorst + 1
	} else {
		newWidth = targetWorst - best + 1
	}
	if newWidth < amm.tickSpan || newWidth <= 0 {
		return
	}
	amm.book.reserve.DriftWorst(targetWorst)
}

// overallReserve is the actual reserve plus the respective reserve locked
// up in every inventory tick and the active tick's own inventory side.
// Bin collateral is folded in by the pool, which knows which side's
// ledger each bin's collateral belongs to.
func (amm *AMM) overallReserve() decimal.Decimal {
	total := amm.book.reserve.Qty().Add(amm.current.currentReserve)
	total = total.Add(amm.book.totalRespectiveReserve())
	if amm.current.currentInventory.GreaterThan(Zero) {
		price := mustPriceAt(amm.current.tickIdx, amm.side)
		total = total.Add(amm.current.currentInventory.Div(price))
	}
	return total
}

// il returns the sub-AMM's impermanent loss: 1 − actualReserve/respectiveReserve,
// where actualReserve values every outstanding inventory unit at the
// current price rather than its acquisition price.
func (amm *AMM) il() decimal.Decimal {
	rr := amm.book.totalRespectiveReserve()
	if rr.IsZero() {
		return Zero
	}
	price := mustPriceAt(amm.current.tickIdx, amm.side)
	actual := amm.book.totalInventory().Div(price)
	return One.Sub(actual.Div(rr))
}

func (amm *AMM) clone() *AMM {
	cp := &AMM{side: amm.side, drifting: amm.drifting, tickSpan: amm.tickSpan, depositedReserve: amm.depositedReserve}
	cp.book = amm.book.clone()
	cp.current = amm.current.clone()
	return cp
}
