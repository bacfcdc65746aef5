// Package events defines the engine's emitted event types and the publisher
// that fans them out over the signal bus.
package events

import "time"

// Event type names, carried in the envelope's "type" field.
const (
	TypeEngineStarted = "engine_started"
	TypePoolCreated   = "pool_created"
	TypeSharesBought  = "shares_bought"
	TypeSharesSold    = "shares_sold"
)

// Envelope wraps every published event with its type and emission time.
type Envelope struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// EngineStarted is emitted once when the engine comes up.
type EngineStarted struct {
	PricingModel  string `json:"pricing_model"`
	TradingFeeBps uint64 `json:"trading_fee_bps"`
}

// PoolCreated is emitted after a pool is seeded with initial liquidity.
type PoolCreated struct {
	MarketID         string `json:"market_id"`
	InitialLiquidity string `json:"initial_liquidity"`
	YesReserve       string `json:"yes_reserve"`
	NoReserve        string `json:"no_reserve"`
}

// SharesBought is emitted after a buy settles. Amounts are decimal strings.
type SharesBought struct {
	MarketID   string `json:"market_id"`
	Trader     string `json:"trader"`
	Outcome    string `json:"outcome"`
	AmountIn   string `json:"amount_in"`
	SharesOut  string `json:"shares_out"`
	Fee        string `json:"fee"`
	YesReserve string `json:"yes_reserve"`
	NoReserve  string `json:"no_reserve"`
}

// SharesSold is emitted after a sell settles.
type SharesSold struct {
	MarketID   string `json:"market_id"`
	Trader     string `json:"trader"`
	Outcome    string `json:"outcome"`
	SharesIn   string `json:"shares_in"`
	PayoutNet  string `json:"payout_net"`
	Fee        string `json:"fee"`
	YesReserve string `json:"yes_reserve"`
	NoReserve  string `json:"no_reserve"`
}
