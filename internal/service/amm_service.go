// Package service orchestrates the pricing engine with its surrounding
// infrastructure: per-market locking, signature auth, the trade ledger, the
// pool-state cache, and event fan-out.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/boxmeout/poolengine/internal/crypto"
	"github.com/boxmeout/poolengine/internal/domain"
	"github.com/boxmeout/poolengine/internal/engine"
	"github.com/boxmeout/poolengine/internal/events"
	"github.com/boxmeout/poolengine/internal/notify"
)

// TradeRequest is a fully parsed, not yet authenticated trade submission.
type TradeRequest struct {
	MarketID  domain.MarketID
	Trader    string
	Outcome   domain.Outcome
	Amount    *uint256.Int // payment for buys, shares for sells
	MinOut    *uint256.Int // optional slippage floor; nil disables the check
	Nonce     uint64
	Signature []byte
}

// Options tunes service behavior outside the pricing parameters.
type Options struct {
	// LockTTL bounds how long a settlement may hold a market's lock.
	LockTTL time.Duration
	// RequireSignatures rejects trades without a valid trader signature.
	RequireSignatures bool
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{LockTTL: 5 * time.Second, RequireSignatures: true}
}

// AMMService is the settlement front door. Every mutating operation runs
// under the market's distributed lock so the engine's read-compute-write
// window is serialized across processes.
type AMMService struct {
	engine    *engine.Engine
	trades    domain.TradeStore
	cache     domain.PoolCache
	locks     domain.LockManager
	publisher *events.Publisher
	notifier  *notify.Notifier
	opts      Options
	logger    *slog.Logger
}

// NewAMMService wires the service. notifier may be nil when no alert
// channels are configured.
func NewAMMService(
	eng *engine.Engine,
	trades domain.TradeStore,
	cache domain.PoolCache,
	locks domain.LockManager,
	publisher *events.Publisher,
	notifier *notify.Notifier,
	opts Options,
	logger *slog.Logger,
) *AMMService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultOptions().LockTTL
	}
	return &AMMService{
		engine:    eng,
		trades:    trades,
		cache:     cache,
		locks:     locks,
		publisher: publisher,
		notifier:  notifier,
		opts:      opts,
		logger:    logger.With(slog.String("component", "amm_service")),
	}
}

// Params exposes the engine's pricing configuration.
func (s *AMMService) Params() engine.Params {
	return s.engine.Params()
}

func marketLockKey(id domain.MarketID) string {
	return "market:" + id.String()
}

// CreatePool seeds a new pool under the market's lock.
func (s *AMMService) CreatePool(ctx context.Context, id domain.MarketID, initialLiquidity *uint256.Int) (domain.Pool, error) {
	unlock, err := s.locks.Acquire(ctx, marketLockKey(id), s.opts.LockTTL)
	if err != nil {
		return domain.Pool{}, err
	}
	defer unlock()

	pool, err := s.engine.CreatePool(ctx, id, initialLiquidity)
	if err != nil {
		return domain.Pool{}, err
	}

	s.invalidate(ctx, id)
	s.publisher.PoolCreated(ctx, pool, initialLiquidity)
	if s.notifier != nil {
		s.notifier.PoolCreated(ctx, pool)
	}
	return pool, nil
}

// Buy authenticates and settles a share purchase.
func (s *AMMService) Buy(ctx context.Context, req TradeRequest) (domain.Trade, error) {
	return s.settle(ctx, domain.TradeBuy, req)
}

// Sell authenticates and settles a share sale.
func (s *AMMService) Sell(ctx context.Context, req TradeRequest) (domain.Trade, error) {
	return s.settle(ctx, domain.TradeSell, req)
}

func (s *AMMService) settle(ctx context.Context, side domain.TradeSide, req TradeRequest) (domain.Trade, error) {
	if err := s.authenticate(side, req); err != nil {
		return domain.Trade{}, err
	}

	unlock, err := s.locks.Acquire(ctx, marketLockKey(req.MarketID), s.opts.LockTTL)
	if err != nil {
		return domain.Trade{}, err
	}
	defer unlock()

	var res domain.TradeResult
	switch side {
	case domain.TradeBuy:
		res, err = s.engine.BuyShares(ctx, req.MarketID, req.Outcome, req.Amount, req.MinOut)
	case domain.TradeSell:
		res, err = s.engine.SellShares(ctx, req.MarketID, req.Outcome, req.Amount, req.MinOut)
	default:
		return domain.Trade{}, fmt.Errorf("service: unknown trade side %q", side)
	}
	if err != nil {
		return domain.Trade{}, err
	}

	trade := domain.Trade{
		ID:         uuid.NewString(),
		MarketID:   req.MarketID,
		Trader:     req.Trader,
		Side:       res.Side,
		Outcome:    res.Outcome,
		AmountIn:   res.AmountIn,
		AmountOut:  res.AmountOut,
		Fee:        res.Fee,
		YesReserve: res.Pool.YesReserve,
		NoReserve:  res.Pool.NoReserve,
		CreatedAt:  res.Pool.UpdatedAt,
	}

	// Reserves are already committed; a ledger write failure is surfaced
	// but cannot undo the settlement.
	if err := s.trades.Insert(ctx, trade); err != nil {
		s.logger.ErrorContext(ctx, "trade settled but ledger insert failed",
			slog.String("trade_id", trade.ID),
			slog.String("market_id", trade.MarketID.String()),
			slog.String("error", err.Error()),
		)
		return domain.Trade{}, err
	}

	s.invalidate(ctx, req.MarketID)
	s.publisher.TradeSettled(ctx, trade)
	if s.notifier != nil {
		s.notifier.TradeSettled(ctx, trade)
	}
	return trade, nil
}

// authenticate verifies the trader's signature over the canonical trade
// digest. Unsigned requests pass only when signatures are not required.
func (s *AMMService) authenticate(side domain.TradeSide, req TradeRequest) error {
	if len(req.Signature) == 0 {
		if s.opts.RequireSignatures {
			return domain.ErrUnauthorized
		}
		return nil
	}
	digest := crypto.TradeDigest(req.MarketID, side, req.Outcome, req.Amount.Dec(), req.Nonce)
	return crypto.VerifyTrader(req.Trader, digest, req.Signature)
}

// Odds returns implied odds, served from the cache when possible.
func (s *AMMService) Odds(ctx context.Context, id domain.MarketID) (domain.Odds, error) {
	st, err := s.State(ctx, id)
	if err != nil {
		return domain.Odds{}, err
	}
	return st.Odds, nil
}

// State returns the pool snapshot with cache read-through.
func (s *AMMService) State(ctx context.Context, id domain.MarketID) (domain.PoolState, error) {
	if s.cache != nil {
		st, err := s.cache.Get(ctx, id)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "pool cache read failed",
				slog.String("market_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	st, err := s.engine.State(ctx, id)
	if err != nil {
		return domain.PoolState{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, st); err != nil {
			s.logger.WarnContext(ctx, "pool cache write failed",
				slog.String("market_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return st, nil
}

// Trades lists a market's settled trades, newest first.
func (s *AMMService) Trades(ctx context.Context, id domain.MarketID, opts domain.ListOpts) ([]domain.Trade, error) {
	return s.trades.ListByMarket(ctx, id, opts)
}

func (s *AMMService) invalidate(ctx context.Context, id domain.MarketID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "pool cache invalidation failed",
			slog.String("market_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}
