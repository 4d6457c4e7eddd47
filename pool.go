package clamm

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Direction is the pool-level trade direction requested by a caller.
type Direction int

const (
	BaseToQuote Direction = iota
	QuoteToBase
)

// PoolConfig carries the economics a Pool is constructed with. There is
// no file, env, or CLI binding for it: the programmatic constructor
// argument is the only surface this engine exposes.
type PoolConfig struct {
	StableShare decimal.Decimal
	MinFee      decimal.Decimal
	MaxFee      decimal.Decimal
	TickSpan    int

	// RecoverySellBack enables a RecoveryBin selling idle collateral back
	// at the current price when no worst tick exists to recover against.
	// Off by default; see DESIGN.md's Open Question decisions.
	RecoverySellBack bool
}

// DefaultPoolConfig mirrors the fee and share constants used across the
// end-to-end scenarios.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		StableShare: decimal.RequireFromString("0.7"),
		MinFee:      decimal.RequireFromString("0.0005"),
		MaxFee:      decimal.RequireFromString("0.01"),
		TickSpan:    1000,
	}
}

// InitialReserves seeds a Pool's four sub-AMMs at construction.
type InitialReserves struct {
	BaseQty  decimal.Decimal
	QuoteQty decimal.Decimal
}

// SwapResult is returned by Pool.Swap and Pool.EstimateSwap.
type SwapResult struct {
	QtyOut    decimal.Decimal
	FeeFactor decimal.Decimal
	FeesIn    decimal.Decimal
	Slippage  decimal.Decimal
}

// routingLeg pairs a sub-AMM with the local fill direction it takes for
// one pool-level swap direction.
type routingLeg struct {
	amm *AMM
	dir SwapDirection
}

// Pool is the four-way orchestrator: {stable, drifting} × {base, quote}
// sub-AMMs sharing one absolute tick cursor, routing a single swap across
// all four in lock-step.
type Pool struct {
	config PoolConfig

	stableBase  *AMM
	stableQuote *AMM
	driftBase   *AMM
	driftQuote  *AMM

	curTick int
}

// NewPool constructs a pool at curTick with the given tick span for its
// drifting sub-AMMs, optionally seeded with initial reserves.
func NewPool(curTick int, config PoolConfig, initial *InitialReserves) (*Pool, error) {
	if err := validateTick(curTick); err != nil {
		return nil, err
	}
	p := &Pool{
		config:      config,
		stableBase:  newAMM(Base, false, config.TickSpan, curTick),
		stableQuote: newAMM(Quote, false, config.TickSpan, curTick),
		driftBase:   newAMM(Base, true, config.TickSpan, curTick),
		driftQuote:  newAMM(Quote, true, config.TickSpan, curTick),
		curTick:     curTick,
	}
	if initial != nil {
		if err := p.Deposit(Base, initial.BaseQty); err != nil {
			return nil, err
		}
		if err := p.Deposit(Quote, initial.QuoteQty); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pool) ammsFor(side Side) (*AMM, *AMM) {
	if side == Base {
		return p.stableBase, p.driftBase
	}
	return p.stableQuote, p.driftQuote
}

func (p *Pool) all() [4]*AMM {
	return [4]*AMM{p.stableBase, p.stableQuote, p.driftBase, p.driftQuote}
}

// Deposit splits qty across the stable/drifting sub-AMMs for side by
// config.StableShare, recovering from any internal invariant panic into
// a returned error.
func (p *Pool) Deposit(side Side, qty decimal.Decimal) (err error) {
	defer recoverInvariant(&err)
	stable, drift := p.ammsFor(side)
	stableQty := qty.Mul(p.config.StableShare)
	driftQty := qty.Sub(stableQty)
	if err := stable.deposit(stableQty); err != nil {
		return err
	}
	if err := drift.deposit(driftQty); err != nil {
		return err
	}
	return nil
}

// Withdraw mirrors Deposit's stable/drifting split on the way out.
func (p *Pool) Withdraw(side Side, depositedQty decimal.Decimal) (reserveOut, inventoryOut decimal.Decimal, err error) {
	defer recoverInvariant(&err)
	stable, drift := p.ammsFor(side)
	stableDeposited := stable.depositedReserve
	driftDeposited := drift.depositedReserve
	total := stableDeposited.Add(driftDeposited)
	if total.IsZero() {
		return Zero, Zero, newErr(ErrEmptyRange, "withdraw: side %v has no deposits", side)
	}
	stableCut := depositedQty.Mul(stableDeposited).Div(total)
	driftCut := depositedQty.Sub(stableCut)

	r1, i1, werr := stable.withdraw(stableCut)
	if werr != nil {
		return Zero, Zero, werr
	}
	r2, i2, werr := drift.withdraw(driftCut)
	if werr != nil {
		return Zero, Zero, werr
	}
	return r1.Add(r2), i1.Add(i2), nil
}

// feeFactor averages an IL term and a range-width term, per the outbound
// sub-AMM's current IL and its drifting window width relative to
// tickSpan. Each term is minFee plus a share of maxFee (IL capped at 0.5,
// width ratio capped at 1), so each is at most minFee+maxFee; neither
// term has a lower clamp.
func (p *Pool) feeFactor(outboundIL, driftWidthRatio decimal.Decimal) decimal.Decimal {
	half := decimal.RequireFromString("0.5")
	ilClamped := minDecimal(outboundIL, half)
	ilFees := p.config.MinFee.Add(p.config.MaxFee.Mul(ilClamped).Div(half))
	widthClamped := minDecimal(driftWidthRatio, One)
	widthFees := p.config.MinFee.Add(p.config.MaxFee.Mul(widthClamped))
	return ilFees.Add(widthFees).Div(decimal.NewFromInt(2))
}

// Swap routes qtyIn across the four sub-AMMs in lock-step, skimming fees
// into the outbound side's RecoveryBins first.
func (p *Pool) Swap(dir Direction, qtyIn decimal.Decimal) (res SwapResult, err error) {
	defer recoverInvariant(&err)

	tickBefore := p.curTick
	outboundSide := Base
	if dir == BaseToQuote {
		outboundSide = Quote
	}
	outStable, outDrift := p.ammsFor(outboundSide)
	driftWidthRatio := Zero
	if outDrift.book.reserve.Width() > 0 {
		driftWidthRatio = decFromInt(outDrift.book.reserve.Width()).Div(decFromInt(p.config.TickSpan))
	}
	outboundIL := maxDecimal(outStable.il(), outDrift.il())

	ff := p.feeFactor(outboundIL, driftWidthRatio)
	fees := qtyIn.Mul(ff)
	qtyInNet := qtyIn.Sub(fees)

	stableFees := fees.Mul(p.config.StableShare)
	driftFees := fees.Sub(stableFees)
	outStable.current.bin.addCollateral(stableFees)
	outDrift.current.bin.addCollateral(driftFees)

	if logrus.GetLevel() >= logrus.DebugLevel {
		logrus.Debugf("swap: dir=%v qtyIn=%s fees=%s feeFactor=%s tick=%d", dir, qtyIn, fees, ff, p.curTick)
	}

	qtyOut, err := p.route(dir, qtyInNet)
	if err != nil {
		return SwapResult{}, err
	}

	p.driftAll()

	// §4.7 prices the swap off curTickBefore, but which side's price
	// converts input units to output units depends on direction: base→quote
	// needs quote-per-base (Base's price), quote→base needs base-per-quote
	// (Quote's price).
	priceSide := Base
	if dir == QuoteToBase {
		priceSide = Quote
	}
	expectedOut := qtyInNet.Mul(mustPriceAt(tickBefore, priceSide))
	slippage := Zero
	if expectedOut.GreaterThan(Zero) {
		slippage = One.Sub(qtyOut.Div(expectedOut))
	}

	return SwapResult{QtyOut: qtyOut, FeeFactor: ff, FeesIn: fees, Slippage: slippage}, nil
}

func (p *Pool) legsFor(dir Direction) []routingLeg {
	if dir == BaseToQuote {
		return []routingLeg{
			{p.stableBase, ReserveToInventory}, {p.driftBase, ReserveToInventory},
			{p.stableQuote, InventoryToReserve}, {p.driftQuote, InventoryToReserve},
		}
	}
	return []routingLeg{
		{p.stableQuote, ReserveToInventory}, {p.driftQuote, ReserveToInventory},
		{p.stableBase, InventoryToReserve}, {p.driftBase, InventoryToReserve},
	}
}

// route performs the lock-step sweep across the four sub-AMMs: each
// sub-AMM fills as much of the shared remaining qtyIn as its active tick
// allows; when a full pass makes no progress, all four tick cursors
// advance together and the sweep repeats. Recovered reserve from each
// pass is deposited back at the end of that pass.
func (p *Pool) route(dir Direction, qtyIn decimal.Decimal) (decimal.Decimal, error) {
	qtyOut := Zero
	remaining := qtyIn
	legs := p.legsFor(dir)

	for !isDust(remaining) {
		progressed := false
		recoveredByLeg := make([]decimal.Decimal, len(legs))

		for i, l := range legs {
			if isDust(remaining) {
				break
			}
			out, rem, recovered, _, err := l.amm.current.swap(l.amm.book, l.dir, remaining, p.config.RecoverySellBack)
			if err != nil {
				return Zero, err
			}
			if rem.LessThan(remaining) {
				progressed = true
			}
			qtyOut = qtyOut.Add(out)
			remaining = rem
			recoveredByLeg[i] = recoveredByLeg[i].Add(recovered)
		}

		for i, l := range legs {
			if recoveredByLeg[i].GreaterThan(Zero) {
				if err := l.amm.book.reserve.Put(recoveredByLeg[i]); err != nil {
					return Zero, err
				}
			}
		}

		if isDust(remaining) {
			break
		}
		if !progressed {
			if err := p.advanceAll(legs); err != nil {
				return Zero, err
			}
		}
	}

	return qtyOut, nil
}

// advanceAll moves every leg's tick cursor one step and checks the
// tick-equality invariant across all four.
func (p *Pool) advanceAll(legs []routingLeg) error {
	newTick := p.curTick
	first := true
	for _, l := range legs {
		var err error
		if l.dir == ReserveToInventory {
			_, err = l.amm.current.nextInventoryTick(l.amm.book)
		} else {
			_, err = l.amm.current.nextReserveTick(l.amm.book)
		}
		if err != nil {
			return err
		}
		abs := toAbsolute(l.amm.current.tickIdx, l.amm.side)
		if first {
			newTick = abs
			first = false
		} else if newTick != abs {
			panicInvariant("lock-step tick advance diverged: %d vs %d", newTick, abs)
		}
	}
	p.curTick = newTick
	return nil
}

// worstOppositeInventory finds the worst inventory tick across the
// stable and drifting sub-AMMs of side, the candidate farthest from
// current price.
func (p *Pool) worstOppositeInventory(side Side) (int, bool) {
	stable, drift := p.ammsFor(side)
	idx1, ok1 := stable.book.worstInventoryIdx()
	idx2, ok2 := drift.book.worstInventoryIdx()
	below := belowCurrent(side, InventoryKind)
	switch {
	case ok1 && ok2:
		if below {
			return minInt(idx1, idx2), true
		}
		return maxInt(idx1, idx2), true
	case ok1:
		return idx1, true
	case ok2:
		return idx2, true
	default:
		return 0, false
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// driftAll retargets each drifting sub-AMM's reserve worst boundary
// toward the opposite side's worst inventory tick, keeping the drifting
// window aligned with accumulated inventory.
func (p *Pool) driftAll() {
	if idx, ok := p.worstOppositeInventory(Quote); ok {
		p.driftBase.drift(idx)
	}
	if idx, ok := p.worstOppositeInventory(Base); ok {
		p.driftQuote.drift(idx)
	}
}

// EstimateSwap runs Swap against a clone and discards it, giving callers
// a dry-run result without mutating pool state. It reports
// PriceImpactTooLarge when the dry run produces no output; a swap that
// runs a sub-AMM's reserve range dry returns Swap's EmptyRange error
// instead.
func (p *Pool) EstimateSwap(dir Direction, qtyIn decimal.Decimal) (SwapResult, error) {
	trial := p.Clone()
	res, err := trial.Swap(dir, qtyIn)
	if err != nil {
		return SwapResult{}, err
	}
	if res.QtyOut.IsZero() && qtyIn.GreaterThan(Zero) {
		return SwapResult{}, newErr(ErrPriceImpactTooBig, "swap of %s would exhaust all available liquidity", qtyIn)
	}
	return res, nil
}

// Clone returns an independent deep copy for atomic try-swap semantics:
// callers clone, mutate the clone, and adopt it on success.
func (p *Pool) Clone() *Pool {
	return &Pool{
		config:      p.config,
		stableBase:  p.stableBase.clone(),
		stableQuote: p.stableQuote.clone(),
		driftBase:   p.driftBase.clone(),
		driftQuote:  p.driftQuote.clone(),
		curTick:     p.curTick,
	}
}

// CurAbsoluteTick is the pool's shared tick cursor.
func (p *Pool) CurAbsoluteTick() int { return p.curTick }

// OverallReserve sums actual reserve, respective reserve locked in every
// inventory tick, and recovery-bin collateral for one side, across both
// its sub-AMMs.
func (p *Pool) OverallReserve(side Side) decimal.Decimal {
	stable, drift := p.ammsFor(side)
	total := stable.overallReserve().Add(drift.overallReserve())
	total = total.Add(stable.current.bin.collateral).Add(drift.current.bin.collateral)
	return total
}

// IL returns the worse of the two same-side sub-AMMs' impermanent loss.
func (p *Pool) IL(side Side) decimal.Decimal {
	stable, drift := p.ammsFor(side)
	return maxDecimal(stable.il(), drift.il())
}

// Stats is a read-only snapshot used by callers (e.g. a chart UI) that
// want a single call instead of several accessor round-trips.
type Stats struct {
	CurTick          int
	OverallBase      decimal.Decimal
	OverallQuote     decimal.Decimal
	BaseIL           decimal.Decimal
	QuoteIL          decimal.Decimal
	StableBaseWidth  int
	DriftBaseWidth   int
	StableQuoteWidth int
	DriftQuoteWidth  int
}

func (p *Pool) Stats() Stats {
	return Stats{
		CurTick:          p.curTick,
		OverallBase:      p.OverallReserve(Base),
		OverallQuote:     p.OverallReserve(Quote),
		BaseIL:           p.IL(Base),
		QuoteIL:          p.IL(Quote),
		StableBaseWidth:  p.stableBase.book.reserve.Width(),
		DriftBaseWidth:   p.driftBase.book.reserve.Width(),
		StableQuoteWidth: p.stableQuote.book.reserve.Width(),
		DriftQuoteWidth:  p.driftQuote.book.reserve.Width(),
	}
}

// LiquidityDigest is a renderer-friendly summary of each sub-AMM's
// reserve span and total inventory.
type LiquidityDigest struct {
	Side             Side
	Drifting         bool
	ReserveLeft      int
	ReserveRight     int
	ReserveQty       decimal.Decimal
	TotalInventory   decimal.Decimal
	InventoryRanges  int
	RecoveryBinFunds decimal.Decimal
}

func (p *Pool) LiquidityDigest() []LiquidityDigest {
	amms := p.all()
	out := make([]LiquidityDigest, 0, len(amms))
	for _, amm := range amms {
		out = append(out, LiquidityDigest{
			Side: amm.side, Drifting: amm.drifting,
			ReserveLeft: amm.book.reserve.left, ReserveRight: amm.book.reserve.right,
			ReserveQty: amm.book.reserve.Qty(), TotalInventory: amm.book.totalInventory(),
			InventoryRanges: len(amm.book.inventory), RecoveryBinFunds: amm.current.bin.collateral,
		})
	}
	return out
}
