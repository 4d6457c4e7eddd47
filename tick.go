package clamm

import (
	"github.com/daoleno/uniswapv3-sdk/constants"
	"github.com/shopspring/decimal"
)

// Side identifies which asset a sub-AMM is denominated in.
type Side int

const (
	Base Side = iota
	Quote
)

func (s Side) String() string {
	if s == Base {
		return "base"
	}
	return "quote"
}

// Other returns the opposite side, used by Pool routing and drift.
func (s Side) Other() Side {
	if s == Base {
		return Quote
	}
	return Base
}

// MinTick and MaxTick bound the tick domain at the familiar ±887272
// Uniswap V3 tick bounds, reused directly from
// github.com/daoleno/uniswapv3-sdk/constants; see DESIGN.md for why the
// rest of that SDK's tick/swap math (built on sqrtPriceX96) is not used
// here.
var (
	MinTick = constants.MinTick
	MaxTick = constants.MaxTick
)

// validateTick returns ErrTickOutOfRange if tick escapes [MinTick, MaxTick].
func validateTick(tick int) error {
	if tick < MinTick || tick > MaxTick {
		return newErr(ErrTickOutOfRange, "tick %d outside [%d,%d]", tick, MinTick, MaxTick)
	}
	return nil
}

// priceAt returns BASE_PRICE^tick for the base side and BASE_PRICE^(-tick)
// for the quote side, so a rising tick raises the base price and lowers
// the quote price. tick is the pool's shared
// absolute tick; toAbsolute below is therefore the identity — orientation
// only ever changes the *price* a tick maps to, never the index itself,
// which is what lets all four sub-AMMs share one integer coordinate and
// keeps their tick cursors comparable for equality after every advance.
func priceAt(tick int, side Side) (decimal.Decimal, error) {
	if err := validateTick(tick); err != nil {
		return decimal.Decimal{}, err
	}
	exp := tick
	if side == Quote {
		exp = -tick
	}
	return powInt(BasePrice, exp), nil
}

// mustPriceAt panics with InvariantViolation if tick is out of range; used
// at call sites where the tick has already been validated by construction
// (e.g. ticks pulled from a Range that was itself built from valid ticks)
// and a returned error would just be dead code.
func mustPriceAt(tick int, side Side) decimal.Decimal {
	p, err := priceAt(tick, side)
	if err != nil {
		panicInvariant("mustPriceAt: %v", err)
	}
	return p
}

// toAbsolute strips a sub-AMM's orientation for display. Kept as a named
// operation even though it is the identity in this implementation: tick
// indices are stored in the pool's shared absolute coordinate everywhere,
// and only priceAt's sign flips by side.
func toAbsolute(tick int, _ Side) int {
	return tick
}

// RangeKind distinguishes the two Range variants a sub-AMM book holds.
type RangeKind int

const (
	ReserveKind RangeKind = iota
	InventoryKind
)

// belowCurrent reports whether a range of the given side/kind sits at
// ticks below the sub-AMM's current tick (true) or above it (false).
//
// Selling base must push the shared absolute tick down (spec.md §8 S2)
// and selling quote must push it up (S3). Selling base drains base
// sub-AMMs' inventory (ReserveToInventory, advancing down) and quote
// sub-AMMs' reserve (InventoryToReserve, advancing down), so base
// inventory and quote reserve sit *below* current; selling quote drains
// the other two while advancing up, so base reserve and quote inventory
// sit above. Concretely: a stable base reserve
// spans [cur+1, MaxTick]; a stable quote reserve spans the
// orientation-equivalent [MinTick, cur-1]. See DESIGN.md's orientation
// note for the full derivation.
func belowCurrent(side Side, kind RangeKind) bool {
	switch {
	case side == Base && kind == InventoryKind:
		return true
	case side == Quote && kind == ReserveKind:
		return true
	default:
		return false
	}
}
