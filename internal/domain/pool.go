package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// Pool is the per-market constant-product reserve pair. Reserves are
// unsigned 128-bit quantities carried in 256-bit integers so that the
// product check yes*no is always exact; callers never see a reserve wider
// than 128 bits.
//
// Row existence in the pool store IS the existence flag: a market without a
// row has no pool, which is a distinct state from a pool holding zero on a
// side.
type Pool struct {
	MarketID   MarketID     `json:"market_id"`
	YesReserve *uint256.Int `json:"yes_reserve"`
	NoReserve  *uint256.Int `json:"no_reserve"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Clone returns a deep copy so engine math never aliases store-owned values.
func (p Pool) Clone() Pool {
	cp := p
	if p.YesReserve != nil {
		cp.YesReserve = new(uint256.Int).Set(p.YesReserve)
	}
	if p.NoReserve != nil {
		cp.NoReserve = new(uint256.Int).Set(p.NoReserve)
	}
	return cp
}

// Product returns yes_reserve * no_reserve, the CPMM constant k.
func (p Pool) Product() *uint256.Int {
	return new(uint256.Int).Mul(p.YesReserve, p.NoReserve)
}

// Odds is an implied-probability pair in basis points. For any pool with
// liquidity on both sides Yes+No == 10000 exactly.
type Odds struct {
	Yes uint32 `json:"yes_odds_bps"`
	No  uint32 `json:"no_odds_bps"`
}

// EvenOdds is the 50/50 default reported for missing and empty pools.
var EvenOdds = Odds{Yes: 5000, No: 5000}

// PoolState is the display snapshot of a pool: both reserves, their sum,
// and the implied odds. A never-created market reports all-zero reserves
// with even odds.
type PoolState struct {
	MarketID       MarketID     `json:"market_id"`
	YesReserve     *uint256.Int `json:"yes_reserve"`
	NoReserve      *uint256.Int `json:"no_reserve"`
	TotalLiquidity *uint256.Int `json:"total_liquidity"`
	Odds           Odds         `json:"odds"`
	Exists         bool         `json:"exists"`
}
