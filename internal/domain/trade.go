package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// TradeSide distinguishes the two settlement directions.
type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// Trade is one settled ledger entry. For buys AmountIn is the payment and
// AmountOut the shares minted; for sells AmountIn is the shares returned and
// AmountOut the net payout. Fee is always denominated in the payment asset
// and stays inside the pool.
type Trade struct {
	ID         string       `json:"id"`
	MarketID   MarketID     `json:"market_id"`
	Trader     string       `json:"trader"`
	Side       TradeSide    `json:"side"`
	Outcome    Outcome      `json:"outcome"`
	AmountIn   *uint256.Int `json:"amount_in"`
	AmountOut  *uint256.Int `json:"amount_out"`
	Fee        *uint256.Int `json:"fee"`
	YesReserve *uint256.Int `json:"yes_reserve"` // post-trade
	NoReserve  *uint256.Int `json:"no_reserve"`  // post-trade
	CreatedAt  time.Time    `json:"created_at"`
}

// TradeResult is what the pricing engine hands back for a committed trade.
type TradeResult struct {
	Side      TradeSide
	Outcome   Outcome
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
	Fee       *uint256.Int
	Pool      Pool // post-trade reserves
}
