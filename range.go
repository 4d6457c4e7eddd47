package clamm

import "github.com/shopspring/decimal"

// Range is a contiguous closed span of ticks holding either uniformly
// distributed reserve or geometrically distributed inventory. Both
// variants are stored compactly as (left, right, qty) only:
// reserve's per-tick amount is always qty/width, and inventory's
// per-tick amounts are always derived from the closed-form geometric
// formula. Neither variant keeps a per-tick array, which is exactly what
// makes TakeBest/TakeWorst/PutBest preserve their respective uniformity
// invariants for free — see DESIGN.md for the derivation.
type Range struct {
	kind  RangeKind
	side  Side
	left  int
	right int
	width int
	qty   decimal.Decimal

	// bestRight is true when the right boundary is nearest the sub-AMM's
	// current tick (the range lies below current), false when the left
	// boundary is nearest (the range lies above current). See
	// belowCurrent in tick.go for the side/kind resolution.
	bestRight bool
}

func newEmptyRange(kind RangeKind, side Side) *Range {
	return &Range{kind: kind, side: side, qty: Zero, bestRight: belowCurrent(side, kind)}
}

func newRange(kind RangeKind, side Side, left, right int, qty decimal.Decimal) *Range {
	width := 0
	if right >= left {
		width = right - left + 1
	}
	return &Range{
		kind: kind, side: side, left: left, right: right,
		width: width, qty: qty, bestRight: belowCurrent(side, kind),
	}
}

func (r *Range) IsEmpty() bool { return r.width == 0 }

func (r *Range) Width() int { return r.width }

func (r *Range) Qty() decimal.Decimal { return r.qty }

func (r *Range) bestIndex() int {
	if r.bestRight {
		return r.right
	}
	return r.left
}

func (r *Range) worstIndex() int {
	if r.bestRight {
		return r.left
	}
	return r.right
}

func (r *Range) shrinkBest() {
	if r.bestRight {
		r.right--
	} else {
		r.left++
	}
	r.width--
	if r.width == 0 {
		r.qty = Zero
	}
}

func (r *Range) shrinkWorst() {
	if r.bestRight {
		r.left++
	} else {
		r.right--
	}
	r.width--
	if r.width == 0 {
		r.qty = Zero
	}
}

func decFromInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

// perTickUniform is the reserve per-tick quantity: total/width, always
// equal at best and worst.
func (r *Range) perTickUniform() decimal.Decimal {
	if r.width == 0 {
		return Zero
	}
	return r.qty.Div(decFromInt(r.width))
}

// geometricBestQty and geometricWorstQty implement the closed form for an
// inventory range: bestTickQty = qty·(1−1/BASE_PRICE) /
// (1−BASE_PRICE^-width); worstTickQty = bestTickQty·BASE_PRICE^-(width-1).
// The common ratio is 1/BASE_PRICE, chosen so that respective reserve
// (inventory/price) comes out uniform across the range by construction —
// see DESIGN.md.
func geometricBestQty(qty decimal.Decimal, width int) decimal.Decimal {
	if width <= 0 {
		return Zero
	}
	ratio := One.Div(BasePrice)
	denom := One.Sub(powInt(BasePrice, -width))
	numer := qty.Mul(One.Sub(ratio))
	return numer.Div(denom)
}

func geometricWorstQty(qty decimal.Decimal, width int) decimal.Decimal {
	best := geometricBestQty(qty, width)
	return best.Mul(powInt(BasePrice, -(width - 1)))
}

// PeekBest returns (qty, tickIdx) for the best tick without mutating the
// range. EmptyRange if width is zero.
func (r *Range) PeekBest() (decimal.Decimal, int, error) {
	if r.IsEmpty() {
		return Zero, 0, newErr(ErrEmptyRange, "PeekBest on empty %v range", r.kind)
	}
	if r.kind == ReserveKind {
		return r.perTickUniform(), r.bestIndex(), nil
	}
	return geometricBestQty(r.qty, r.width), r.bestIndex(), nil
}

// PeekWorst is the symmetric counterpart of PeekBest.
func (r *Range) PeekWorst() (decimal.Decimal, int, error) {
	if r.IsEmpty() {
		return Zero, 0, newErr(ErrEmptyRange, "PeekWorst on empty %v range", r.kind)
	}
	if r.kind == ReserveKind {
		return r.perTickUniform(), r.worstIndex(), nil
	}
	return geometricWorstQty(r.qty, r.width), r.worstIndex(), nil
}

// TakeBest returns (qty, tickIdx) for the best tick and shrinks the
// range by moving the best boundary inward by one.
func (r *Range) TakeBest() (decimal.Decimal, int, error) {
	qty, idx, err := r.PeekBest()
	if err != nil {
		return Zero, 0, err
	}
	if r.kind == ReserveKind {
		r.qty = clampZero(r.qty.Sub(qty))
	} else {
		r.qty = clampZero(r.qty.Sub(qty))
	}
	r.shrinkBest()
	return qty, idx, nil
}

// TakeWorst is the symmetric counterpart of TakeBest.
func (r *Range) TakeWorst() (decimal.Decimal, int, error) {
	qty, idx, err := r.PeekWorst()
	if err != nil {
		return Zero, 0, err
	}
	r.qty = clampZero(r.qty.Sub(qty))
	r.shrinkWorst()
	return qty, idx, nil
}

// Put adds uniform liquidity across the existing width. Reserve only.
func (r *Range) Put(qty decimal.Decimal) error {
	if r.kind != ReserveKind {
		panicInvariant("Put is reserve-only; called on %v range", r.kind)
	}
	if r.IsEmpty() {
		return newErr(ErrEmptyRange, "Put on zero-width reserve range")
	}
	r.qty = r.qty.Add(qty)
	return nil
}

// PutBest extends the range by one tick toward the price. tickIdx must be
// exactly adjacent to the current best boundary (or, for an empty range,
// may seed the first tick at any valid index). A non-adjacent tick is
// treated as an invariant violation rather than a silent gap.
func (r *Range) PutBest(tickIdx int, qty decimal.Decimal) {
	if r.IsEmpty() {
		r.left, r.right = tickIdx, tickIdx
		r.width = 1
		r.qty = qty
		return
	}
	want := r.right + 1
	if !r.bestRight {
		want = r.left - 1
	}
	if tickIdx != want {
		panicInvariant("PutBest: tick %d not adjacent to best boundary %d (%v %v range)", tickIdx, want, r.side, r.kind)
	}
	if r.bestRight {
		r.right = tickIdx
	} else {
		r.left = tickIdx
	}
	r.width++
	r.qty = r.qty.Add(qty)
}

// WithdrawCut removes cut·qty without changing width. Valid for both
// variants: scaling a geometric series by a constant factor preserves its
// ratio, and scaling a uniform total preserves uniformity.
func (r *Range) WithdrawCut(cut decimal.Decimal) decimal.Decimal {
	removed := r.qty.Mul(cut)
	r.qty = clampZero(r.qty.Sub(removed))
	return removed
}

// StretchTo extends a reserve range's worst boundary outward to
// targetTick; it never shrinks the range. Used to grow a stable or
// drifting sub-AMM's reserve window.
func (r *Range) StretchTo(targetTick int) {
	if r.kind != ReserveKind {
		panicInvariant("StretchTo is reserve-only; called on %v range", r.kind)
	}
	if r.IsEmpty() {
		panicInvariant("StretchTo on an uninitialized reserve range")
	}
	cur := r.worstIndex()
	grows := targetTick < cur
	if !r.bestRight {
		grows = targetTick > cur
	}
	if !grows {
		return
	}
	perTick := r.perTickUniform()
	var newWidth int
	if r.bestRight {
		newWidth = r.right - targetTick + 1
		r.left = targetTick
	} else {
		newWidth = targetTick - r.left + 1
		r.right = targetTick
	}
	r.width = newWidth
	r.qty = perTick.Mul(decFromInt(newWidth))
}

// DriftWorst moves the worst boundary to newWorst, growing or shrinking
// the reserve range while preserving its per-tick density. Reserve only;
// used by the drifting sub-AMM's window policy.
func (r *Range) DriftWorst(newWorst int) {
	if r.kind != ReserveKind {
		panicInvariant("DriftWorst is reserve-only; called on %v range", r.kind)
	}
	if r.IsEmpty() {
		panicInvariant("DriftWorst on an uninitialized reserve range")
	}
	best := r.bestIndex()
	if r.bestRight {
		if newWorst > best {
			panicInvariant("DriftWorst %d would cross best boundary %d", newWorst, best)
		}
	} else {
		if newWorst < best {
			panicInvariant("DriftWorst %d would cross best boundary %d", newWorst, best)
		}
	}
	perTick := r.perTickUniform()
	var newWidth int
	if r.bestRight {
		newWidth = best - newWorst + 1
		r.left = newWorst
	} else {
		newWidth = newWorst - best + 1
		r.right = newWorst
	}
	r.width = newWidth
	r.qty = perTick.Mul(decFromInt(newWidth))
}

// GetRespectiveReserve returns the total reserve originally spent to
// acquire this inventory range: per-tick respective reserve (uniform by
// construction) times width.
func (r *Range) GetRespectiveReserve() decimal.Decimal {
	if r.kind != InventoryKind || r.IsEmpty() {
		return Zero
	}
	bestQty := geometricBestQty(r.qty, r.width)
	price := mustPriceAt(r.bestIndex(), r.side)
	perTickRR := bestQty.Div(price)
	return perTickRR.Mul(decFromInt(r.width))
}

func (r *Range) clone() *Range {
	cp := *r
	return &cp
}
