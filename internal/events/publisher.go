package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/holiman/uint256"

	"github.com/boxmeout/poolengine/internal/domain"
)

// EventStream is the durable stream holding every emitted event.
const EventStream = "amm:events"

// GlobalChannel carries events with no market scope, such as engine startup.
const GlobalChannel = "ch:engine"

// PoolChannel returns the pub/sub channel for one market's events.
func PoolChannel(id domain.MarketID) string {
	return "ch:pool:" + id.String()
}

// Publisher serializes events and writes each one to the live pub/sub
// channel and the durable stream. Publish failures are logged, never
// propagated; settlement has already committed by the time events fire.
type Publisher struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewPublisher creates a Publisher over the given bus.
func NewPublisher(bus domain.SignalBus, logger *slog.Logger) *Publisher {
	return &Publisher{bus: bus, logger: logger.With("component", "events")}
}

func (p *Publisher) emit(ctx context.Context, channel, typ string, data any) {
	env := Envelope{Type: typ, Timestamp: time.Now().UTC(), Data: data}
	payload, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("encode event", "type", typ, "error", err)
		return
	}

	if err := p.bus.Publish(ctx, channel, payload); err != nil {
		p.logger.Error("publish event", "type", typ, "channel", channel, "error", err)
	}
	if err := p.bus.StreamAppend(ctx, EventStream, payload); err != nil {
		p.logger.Error("append event", "type", typ, "error", err)
	}
}

// EngineStarted announces engine startup on the global channel.
func (p *Publisher) EngineStarted(ctx context.Context, pricingModel string, feeBps uint64) {
	p.emit(ctx, GlobalChannel, TypeEngineStarted, EngineStarted{
		PricingModel:  pricingModel,
		TradingFeeBps: feeBps,
	})
}

// PoolCreated announces a newly seeded pool.
func (p *Publisher) PoolCreated(ctx context.Context, pool domain.Pool, initialLiquidity *uint256.Int) {
	p.emit(ctx, PoolChannel(pool.MarketID), TypePoolCreated, PoolCreated{
		MarketID:         pool.MarketID.String(),
		InitialLiquidity: initialLiquidity.Dec(),
		YesReserve:       pool.YesReserve.Dec(),
		NoReserve:        pool.NoReserve.Dec(),
	})
}

// TradeSettled announces a settled buy or sell.
func (p *Publisher) TradeSettled(ctx context.Context, t domain.Trade) {
	switch t.Side {
	case domain.TradeBuy:
		p.emit(ctx, PoolChannel(t.MarketID), TypeSharesBought, SharesBought{
			MarketID:   t.MarketID.String(),
			Trader:     t.Trader,
			Outcome:    t.Outcome.String(),
			AmountIn:   t.AmountIn.Dec(),
			SharesOut:  t.AmountOut.Dec(),
			Fee:        t.Fee.Dec(),
			YesReserve: t.YesReserve.Dec(),
			NoReserve:  t.NoReserve.Dec(),
		})
	case domain.TradeSell:
		p.emit(ctx, PoolChannel(t.MarketID), TypeSharesSold, SharesSold{
			MarketID:   t.MarketID.String(),
			Trader:     t.Trader,
			Outcome:    t.Outcome.String(),
			SharesIn:   t.AmountIn.Dec(),
			PayoutNet:  t.AmountOut.Dec(),
			Fee:        t.Fee.Dec(),
			YesReserve: t.YesReserve.Dec(),
			NoReserve:  t.NoReserve.Dec(),
		})
	default:
		p.logger.Warn("unknown trade side", "side", string(t.Side))
	}
}
