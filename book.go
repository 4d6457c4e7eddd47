package clamm

import "github.com/shopspring/decimal"

// book is the per-sub-AMM liquidity book: one reserve range plus an
// ordered list of inventory ranges (best to worst).
type book struct {
	side Side

	reserve   *Range
	inventory []*Range

	// freshInventoryRange forces the next deposited inventory tick to
	// start a new Range instead of extending the current best one.
	// Set by notifyReserveChanged whenever a reserve-side deposit
	// breaks the adjacency a putBest would otherwise rely on.
	freshInventoryRange bool
}

func newBook(side Side) *book {
	return &book{
		side:    side,
		reserve: newEmptyRange(ReserveKind, side),
	}
}

// hasInventory reports whether any inventory range remains, used by
// RecoveryBin's sell-back path to tell "no worst tick exists" apart from
// "the worst tick is at the current index".
func (b *book) hasInventory() bool {
	return len(b.inventory) > 0
}

func (b *book) bestInventoryIdx() (int, bool) {
	if len(b.inventory) == 0 {
		return 0, false
	}
	return b.inventory[0].bestIndex(), true
}

// worstInventoryIdx is the tick index farthest from current price across
// all inventory ranges, used to retarget a drifting sub-AMM's window.
func (b *book) worstInventoryIdx() (int, bool) {
	if len(b.inventory) == 0 {
		return 0, false
	}
	return b.inventory[len(b.inventory)-1].worstIndex(), true
}

// depositInventory adds qty at tickIdx to the best inventory range if it
// is adjacent and a fresh range was not requested; otherwise it spawns a
// new best range.
func (b *book) depositInventory(tickIdx int, qty decimal.Decimal) {
	if qty.IsZero() && len(b.inventory) == 0 {
		return
	}
	if !b.freshInventoryRange && len(b.inventory) > 0 {
		best := b.inventory[0]
		want := best.right + 1
		if !best.bestRight {
			want = best.left - 1
		}
		if tickIdx == want {
			best.PutBest(tickIdx, qty)
			return
		}
	}
	nr := newRange(InventoryKind, b.side, tickIdx, tickIdx, qty)
	b.inventory = append([]*Range{nr}, b.inventory...)
	b.freshInventoryRange = false
}

// notifyReserveChanged flags the book so the next depositInventory call
// starts a fresh range rather than extending the current best one.
func (b *book) notifyReserveChanged() {
	b.freshInventoryRange = true
}

// obtainReserveTick deposits an optional inventory backing (leftover
// inventory from the tick just vacated) then peels one tick off the
// reserve range.
func (b *book) obtainReserveTick(hasInventoryBacking bool, inventoryIdx int, inventoryBacking decimal.Decimal) (decimal.Decimal, int, error) {
	if hasInventoryBacking {
		b.depositInventory(inventoryIdx, inventoryBacking)
	}
	return b.reserve.TakeBest()
}

// obtainInventoryTick deposits leftover reserve back into the reserve
// range uniformly, then pops the best inventory tick only if its index
// matches tickIdx. A mismatch reports found=false: the inventory range
// has a gap at tickIdx and the caller must keep advancing.
func (b *book) obtainInventoryTick(reserveBacking decimal.Decimal, tickIdx int) (qty decimal.Decimal, found bool, err error) {
	if reserveBacking.GreaterThan(Zero) {
		if err := b.reserve.Put(reserveBacking); err != nil {
			return Zero, false, err
		}
	}
	if len(b.inventory) == 0 {
		return Zero, false, nil
	}
	best := b.inventory[0]
	if best.bestIndex() != tickIdx {
		return Zero, false, nil
	}
	qty, _, err = best.TakeBest()
	if err != nil {
		return Zero, false, err
	}
	if best.IsEmpty() {
		b.inventory = b.inventory[1:]
	}
	return qty, true, nil
}

// BorrowOutcome is returned by a borrowInventoryForRecovery callback.
// Resolved means the borrowed tick is fully consumed and must not be
// reinserted; a leftover quantity (with !Resolved) is put back at the
// same tick index as the new worst range. Stop ends the iteration after
// this tick.
type BorrowOutcome struct {
	Resolved bool
	Leftover decimal.Decimal
	Stop     bool
}

// borrowInventoryForRecovery hands the worst inventory tick to cb, then
// reinserts any leftover as the new worst range, repeating while the
// callback asks to continue. Returns found=false if there was no
// inventory to borrow at all.
func (b *book) borrowInventoryForRecovery(cb func(qty decimal.Decimal, idx int) BorrowOutcome) (found bool, err error) {
	if len(b.inventory) == 0 {
		return false, nil
	}
	for {
		if len(b.inventory) == 0 {
			return found, nil
		}
		worst := b.inventory[len(b.inventory)-1]
		qty, idx, terr := worst.TakeWorst()
		if terr != nil {
			return found, terr
		}
		found = true
		if worst.IsEmpty() {
			b.inventory = b.inventory[:len(b.inventory)-1]
		}
		outcome := cb(qty, idx)
		if !outcome.Resolved && outcome.Leftover.GreaterThan(Zero) {
			b.inventory = append(b.inventory, newRange(InventoryKind, b.side, idx, idx, outcome.Leftover))
		}
		if outcome.Stop {
			return found, nil
		}
	}
}

func (b *book) clone() *book {
	cp := &book{side: b.side, freshInventoryRange: b.freshInventoryRange}
	cp.reserve = b.reserve.clone()
	cp.inventory = make([]*Range, len(b.inventory))
	for i, r := range b.inventory {
		cp.inventory[i] = r.clone()
	}
	return cp
}

// totalInventory sums qty across every inventory range, used for IL and
// the liquidity digest.
func (b *book) totalInventory() decimal.Decimal {
	total := Zero
	for _, r := range b.inventory {
		total = total.Add(r.Qty())
	}
	return total
}

// totalRespectiveReserve sums GetRespectiveReserve across every
// inventory range.
func (b *book) totalRespectiveReserve() decimal.Decimal {
	total := Zero
	for _, r := range b.inventory {
		total = total.Add(r.GetRespectiveReserve())
	}
	return total
}
