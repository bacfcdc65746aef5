// Package engine implements constant-product pricing and settlement for
// binary-outcome share pools. All arithmetic is integer-only on 256-bit
// values; reserves are bounded to 128 bits so every intermediate product is
// exact. Division always truncates, which rounds in the pool's favor.
package engine

import (
	"fmt"

	"github.com/holiman/uint256"
)

// BpsDenominator is the basis-point scale used for fees and odds.
const BpsDenominator = 10_000

// maxReserveBits bounds each reserve to an unsigned 128-bit quantity.
const maxReserveBits = 128

// Params is the immutable pricing configuration. It is built once at wire
// time and passed by value into the engine; nothing mutates it afterwards.
type Params struct {
	// TradingFeeBps is the fee charged on every trade, in basis points.
	TradingFeeBps uint64

	// SlippageProtectionBps is the advertised default slippage tolerance.
	// It is surfaced to clients so they can derive sensible floors; the
	// engine itself only enforces caller-supplied floors.
	SlippageProtectionBps uint64

	// MaxLiquidityCap bounds the initial liquidity of a new pool. A nil or
	// zero cap disables the check.
	MaxLiquidityCap *uint256.Int

	// PricingModel tags the curve in use. Only "CPMM" is implemented.
	PricingModel string
}

// DefaultParams mirrors the contract defaults: 0.2% trading fee, 2% slippage
// tolerance, uncapped liquidity.
func DefaultParams() Params {
	return Params{
		TradingFeeBps:         20,
		SlippageProtectionBps: 200,
		PricingModel:          "CPMM",
	}
}

// Validate rejects parameter sets that would break the fee math.
func (p Params) Validate() error {
	if p.TradingFeeBps >= BpsDenominator {
		return fmt.Errorf("engine: trading fee %d bps must be below %d", p.TradingFeeBps, BpsDenominator)
	}
	if p.SlippageProtectionBps > BpsDenominator {
		return fmt.Errorf("engine: slippage protection %d bps must not exceed %d", p.SlippageProtectionBps, BpsDenominator)
	}
	if p.PricingModel != "CPMM" {
		return fmt.Errorf("engine: unsupported pricing model %q", p.PricingModel)
	}
	return nil
}
