package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxmeout/poolengine/internal/domain"
)

type capturedMessage struct {
	channel string
	payload []byte
}

type captureBus struct {
	published []capturedMessage
	appended  []capturedMessage
}

func (b *captureBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.published = append(b.published, capturedMessage{channel, payload})
	return nil
}

func (b *captureBus) Subscribe(context.Context, ...string) (<-chan []byte, func(), error) {
	return nil, func() {}, nil
}

func (b *captureBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.appended = append(b.appended, capturedMessage{stream, payload})
	return nil
}

func (b *captureBus) StreamRead(context.Context, string, string, int64) ([]domain.StreamMessage, error) {
	return nil, nil
}

func decodeEnvelope(t *testing.T, payload []byte) (Envelope, map[string]any) {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(payload, &env))
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	return env, data
}

func TestPoolCreatedEventCarriesInitialLiquidity(t *testing.T) {
	bus := &captureBus{}
	pub := NewPublisher(bus, slog.New(slog.DiscardHandler))

	pool := domain.Pool{
		MarketID:   domain.DeriveMarketID("q"),
		YesReserve: uint256.NewInt(500000),
		NoReserve:  uint256.NewInt(500000),
	}
	pub.PoolCreated(context.Background(), pool, uint256.NewInt(1000000))

	require.Len(t, bus.published, 1)
	assert.Equal(t, PoolChannel(pool.MarketID), bus.published[0].channel)

	env, data := decodeEnvelope(t, bus.published[0].payload)
	assert.Equal(t, TypePoolCreated, env.Type)
	assert.Equal(t, pool.MarketID.String(), data["market_id"])
	assert.Equal(t, "1000000", data["initial_liquidity"])
	assert.Equal(t, "500000", data["yes_reserve"])
	assert.Equal(t, "500000", data["no_reserve"])

	require.Len(t, bus.appended, 1)
	assert.Equal(t, EventStream, bus.appended[0].channel)
	assert.Equal(t, bus.published[0].payload, bus.appended[0].payload)
}

func TestTradeSettledEventFields(t *testing.T) {
	bus := &captureBus{}
	pub := NewPublisher(bus, slog.New(slog.DiscardHandler))

	trade := domain.Trade{
		MarketID:   domain.DeriveMarketID("q"),
		Trader:     "0xabc",
		Side:       domain.TradeBuy,
		Outcome:    domain.OutcomeYes,
		AmountIn:   uint256.NewInt(10000),
		AmountOut:  uint256.NewInt(9784),
		Fee:        uint256.NewInt(20),
		YesReserve: uint256.NewInt(490216),
		NoReserve:  uint256.NewInt(509980),
	}
	pub.TradeSettled(context.Background(), trade)

	require.Len(t, bus.published, 1)
	env, data := decodeEnvelope(t, bus.published[0].payload)
	assert.Equal(t, TypeSharesBought, env.Type)
	assert.Equal(t, "0xabc", data["trader"])
	assert.Equal(t, "YES", data["outcome"])
	assert.Equal(t, "10000", data["amount_in"])
	assert.Equal(t, "9784", data["shares_out"])
	assert.Equal(t, "20", data["fee"])
}
