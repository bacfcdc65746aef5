package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/holiman/uint256"

	"github.com/boxmeout/poolengine/internal/domain"
)

// Engine prices and settles trades against the pool store. It holds no
// reserve state of its own: every operation re-reads the pool, computes,
// validates, and writes back exactly once, or fails before writing
// anything. Serialization of concurrent trades against the same pool is the
// caller's job (see service.AMMService and domain.LockManager).
type Engine struct {
	params Params
	pools  domain.PoolStore
	logger *slog.Logger
}

// New creates an Engine with the given immutable parameters.
func New(params Params, pools domain.PoolStore, logger *slog.Logger) *Engine {
	return &Engine{
		params: params,
		pools:  pools,
		logger: logger.With(slog.String("component", "engine")),
	}
}

// Params returns the engine's pricing configuration.
func (e *Engine) Params() Params {
	return e.params
}

// CreatePool seeds a new 50/50 pool for the market. The initial liquidity
// must be positive, even, within the configured cap, and no pool may exist
// for the market yet.
func (e *Engine) CreatePool(ctx context.Context, id domain.MarketID, initialLiquidity *uint256.Int) (domain.Pool, error) {
	exists, err := e.pools.Exists(ctx, id)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("engine: create pool %s: %w", id, err)
	}
	if exists {
		return domain.Pool{}, domain.ErrPoolAlreadyExists
	}

	side, err := splitInitialLiquidity(initialLiquidity, e.params.MaxLiquidityCap)
	if err != nil {
		return domain.Pool{}, err
	}

	now := time.Now().UTC()
	pool := domain.Pool{
		MarketID:   id,
		YesReserve: side,
		NoReserve:  new(uint256.Int).Set(side),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.pools.Create(ctx, pool); err != nil {
		return domain.Pool{}, fmt.Errorf("engine: create pool %s: %w", id, err)
	}

	e.logger.InfoContext(ctx, "pool created",
		slog.String("market_id", id.String()),
		slog.String("initial_liquidity", initialLiquidity.Dec()),
	)
	return pool, nil
}

// BuyShares swaps a payment into outcome shares. On success the updated
// reserves are committed and the share count returned; on any failure the
// pool is left untouched.
func (e *Engine) BuyShares(ctx context.Context, id domain.MarketID, outcome domain.Outcome, amount, minShares *uint256.Int) (domain.TradeResult, error) {
	if err := outcome.Validate(); err != nil {
		return domain.TradeResult{}, err
	}
	if amount == nil || amount.IsZero() {
		return domain.TradeResult{}, domain.ErrInvalidAmount
	}

	pool, err := e.pools.Get(ctx, id)
	if err != nil {
		return domain.TradeResult{}, err
	}
	if pool.YesReserve.IsZero() || pool.NoReserve.IsZero() {
		return domain.TradeResult{}, domain.ErrInsufficientLiquidity
	}

	q, err := quoteBuy(e.params.TradingFeeBps, pool, outcome, amount)
	if err != nil {
		return domain.TradeResult{}, err
	}
	if minShares != nil && q.sharesOut.Lt(minShares) {
		return domain.TradeResult{}, domain.ErrSlippageExceeded
	}
	if err := checkInvariant(pool.YesReserve, pool.NoReserve, q.newYes, q.newNo); err != nil {
		return domain.TradeResult{}, err
	}

	updated := pool
	updated.YesReserve = q.newYes
	updated.NoReserve = q.newNo
	updated.UpdatedAt = time.Now().UTC()
	if err := e.pools.Put(ctx, updated); err != nil {
		return domain.TradeResult{}, fmt.Errorf("engine: commit buy %s: %w", id, err)
	}

	e.logger.DebugContext(ctx, "buy settled",
		slog.String("market_id", id.String()),
		slog.String("outcome", outcome.String()),
		slog.String("amount", amount.Dec()),
		slog.String("shares_out", q.sharesOut.Dec()),
		slog.String("fee", q.fee.Dec()),
	)
	return domain.TradeResult{
		Side:      domain.TradeBuy,
		Outcome:   outcome,
		AmountIn:  new(uint256.Int).Set(amount),
		AmountOut: q.sharesOut,
		Fee:       q.fee,
		Pool:      updated,
	}, nil
}

// SellShares swaps outcome shares back into a payout. The fee is deducted
// from what the seller receives while the pool gives up the gross payout's
// worth of the opposite reserve.
func (e *Engine) SellShares(ctx context.Context, id domain.MarketID, outcome domain.Outcome, shares, minPayout *uint256.Int) (domain.TradeResult, error) {
	if err := outcome.Validate(); err != nil {
		return domain.TradeResult{}, err
	}
	if shares == nil || shares.IsZero() {
		return domain.TradeResult{}, domain.ErrInvalidAmount
	}

	pool, err := e.pools.Get(ctx, id)
	if err != nil {
		return domain.TradeResult{}, err
	}
	if pool.YesReserve.IsZero() || pool.NoReserve.IsZero() {
		return domain.TradeResult{}, domain.ErrInsufficientLiquidity
	}

	q, err := quoteSell(e.params.TradingFeeBps, pool, outcome, shares)
	if err != nil {
		return domain.TradeResult{}, err
	}
	if minPayout != nil && q.payoutNet.Lt(minPayout) {
		return domain.TradeResult{}, domain.ErrSlippageExceeded
	}
	if q.newYes.IsZero() || q.newNo.IsZero() {
		return domain.TradeResult{}, domain.ErrInsufficientLiquidity
	}
	if err := checkInvariant(pool.YesReserve, pool.NoReserve, q.newYes, q.newNo); err != nil {
		return domain.TradeResult{}, err
	}

	updated := pool
	updated.YesReserve = q.newYes
	updated.NoReserve = q.newNo
	updated.UpdatedAt = time.Now().UTC()
	if err := e.pools.Put(ctx, updated); err != nil {
		return domain.TradeResult{}, fmt.Errorf("engine: commit sell %s: %w", id, err)
	}

	e.logger.DebugContext(ctx, "sell settled",
		slog.String("market_id", id.String()),
		slog.String("outcome", outcome.String()),
		slog.String("shares", shares.Dec()),
		slog.String("payout_net", q.payoutNet.Dec()),
		slog.String("fee", q.fee.Dec()),
	)
	return domain.TradeResult{
		Side:      domain.TradeSell,
		Outcome:   outcome,
		AmountIn:  new(uint256.Int).Set(shares),
		AmountOut: q.payoutNet,
		Fee:       q.fee,
		Pool:      updated,
	}, nil
}

// Odds returns the implied odds for the market. Missing pools and pools
// with no liquidity on either side report even odds rather than an error;
// even odds is the display default for "no information yet".
func (e *Engine) Odds(ctx context.Context, id domain.MarketID) (domain.Odds, error) {
	pool, err := e.pools.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPoolNotFound) {
			return domain.EvenOdds, nil
		}
		return domain.Odds{}, fmt.Errorf("engine: odds %s: %w", id, err)
	}
	return computeOdds(pool.YesReserve, pool.NoReserve), nil
}

// State returns the full display snapshot: reserves, total liquidity, and
// odds. A never-created market yields zero reserves and even odds.
func (e *Engine) State(ctx context.Context, id domain.MarketID) (domain.PoolState, error) {
	pool, err := e.pools.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPoolNotFound) {
			return domain.PoolState{
				MarketID:       id,
				YesReserve:     uint256.NewInt(0),
				NoReserve:      uint256.NewInt(0),
				TotalLiquidity: uint256.NewInt(0),
				Odds:           domain.EvenOdds,
			}, nil
		}
		return domain.PoolState{}, fmt.Errorf("engine: state %s: %w", id, err)
	}

	return domain.PoolState{
		MarketID:       id,
		YesReserve:     pool.YesReserve,
		NoReserve:      pool.NoReserve,
		TotalLiquidity: new(uint256.Int).Add(pool.YesReserve, pool.NoReserve),
		Odds:           computeOdds(pool.YesReserve, pool.NoReserve),
		Exists:         true,
	}, nil
}
