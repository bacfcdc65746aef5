package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxmeout/poolengine/internal/crypto"
	"github.com/boxmeout/poolengine/internal/domain"
	"github.com/boxmeout/poolengine/internal/engine"
	"github.com/boxmeout/poolengine/internal/events"
	"github.com/boxmeout/poolengine/internal/store/memory"
)

type fakeTradeStore struct {
	mu     sync.Mutex
	trades []domain.Trade
}

func (s *fakeTradeStore) Insert(_ context.Context, t domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	return nil
}

func (s *fakeTradeStore) ListByMarket(_ context.Context, id domain.MarketID, _ domain.ListOpts) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Trade
	for _, t := range s.trades {
		if t.MarketID == id {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeTradeStore) ListBefore(_ context.Context, _ time.Time) ([]domain.Trade, error) {
	return nil, nil
}

type fakeCache struct {
	mu          sync.Mutex
	states      map[domain.MarketID]domain.PoolState
	invalidated int
	sets        int
}

func newFakeCache() *fakeCache {
	return &fakeCache{states: make(map[domain.MarketID]domain.PoolState)}
}

func (c *fakeCache) Get(_ context.Context, id domain.MarketID) (domain.PoolState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[id]
	if !ok {
		return domain.PoolState{}, domain.ErrNotFound
	}
	return st, nil
}

func (c *fakeCache) Set(_ context.Context, st domain.PoolState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[st.MarketID] = st
	c.sets++
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id domain.MarketID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, id)
	c.invalidated++
	return nil
}

type fakeLocks struct {
	mu       sync.Mutex
	held     bool
	acquires int
}

func (l *fakeLocks) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.acquires++
	return func() {}, nil
}

type fakeBus struct {
	mu        sync.Mutex
	published []string
	appended  int
}

func (b *fakeBus) Publish(_ context.Context, channel string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, channel)
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, _ ...string) (<-chan []byte, func(), error) {
	ch := make(chan []byte)
	return ch, func() { close(ch) }, nil
}

func (b *fakeBus) StreamAppend(_ context.Context, _ string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appended++
	return nil
}

func (b *fakeBus) StreamRead(_ context.Context, _, _ string, _ int64) ([]domain.StreamMessage, error) {
	return nil, nil
}

type fixture struct {
	svc    *AMMService
	trades *fakeTradeStore
	cache  *fakeCache
	locks  *fakeLocks
	bus    *fakeBus
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	trades := &fakeTradeStore{}
	cache := newFakeCache()
	locks := &fakeLocks{}
	bus := &fakeBus{}

	eng := engine.New(engine.DefaultParams(), memory.NewPoolStore(), logger)
	pub := events.NewPublisher(bus, logger)
	svc := NewAMMService(eng, trades, cache, locks, pub, nil, opts, logger)

	return &fixture{svc: svc, trades: trades, cache: cache, locks: locks, bus: bus}
}

func signedTradeRequest(t *testing.T, id domain.MarketID, side domain.TradeSide, amount uint64) TradeRequest {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	req := TradeRequest{
		MarketID: id,
		Trader:   crypto.AddressOf(key),
		Outcome:  domain.OutcomeYes,
		Amount:   uint256.NewInt(amount),
		Nonce:    1,
	}
	digest := crypto.TradeDigest(id, side, req.Outcome, req.Amount.Dec(), req.Nonce)
	sig, err := crypto.SignDigest(digest, key)
	require.NoError(t, err)
	req.Signature = sig
	return req
}

func TestBuySettlesAndRecordsTrade(t *testing.T) {
	fx := newFixture(t, Options{RequireSignatures: true})
	ctx := context.Background()
	id := domain.DeriveMarketID("q")

	_, err := fx.svc.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	req := signedTradeRequest(t, id, domain.TradeBuy, 10000)
	trade, err := fx.svc.Buy(ctx, req)
	require.NoError(t, err)

	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, domain.TradeBuy, trade.Side)
	assert.Equal(t, req.Trader, trade.Trader)
	assert.Equal(t, uint256.NewInt(9784), trade.AmountOut)

	require.Len(t, fx.trades.trades, 1)
	assert.Equal(t, trade.ID, fx.trades.trades[0].ID)
	assert.Contains(t, fx.bus.published, events.PoolChannel(id))
	assert.GreaterOrEqual(t, fx.cache.invalidated, 2, "create and buy both invalidate")
}

func TestBuyRejectsUnsignedWhenRequired(t *testing.T) {
	fx := newFixture(t, Options{RequireSignatures: true})
	ctx := context.Background()
	id := domain.DeriveMarketID("q")

	_, err := fx.svc.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	_, err = fx.svc.Buy(ctx, TradeRequest{
		MarketID: id,
		Trader:   "0x0000000000000000000000000000000000000001",
		Outcome:  domain.OutcomeYes,
		Amount:   uint256.NewInt(100),
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, fx.trades.trades)
}

func TestBuyAllowsUnsignedWhenDisabled(t *testing.T) {
	fx := newFixture(t, Options{RequireSignatures: false})
	ctx := context.Background()
	id := domain.DeriveMarketID("q")

	_, err := fx.svc.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	_, err = fx.svc.Buy(ctx, TradeRequest{
		MarketID: id,
		Trader:   "alice",
		Outcome:  domain.OutcomeYes,
		Amount:   uint256.NewInt(100),
	})
	assert.NoError(t, err)
}

func TestBuyRejectsForgedSignature(t *testing.T) {
	fx := newFixture(t, Options{RequireSignatures: true})
	ctx := context.Background()
	id := domain.DeriveMarketID("q")

	_, err := fx.svc.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	req := signedTradeRequest(t, id, domain.TradeBuy, 10000)
	req.Trader = "0x0000000000000000000000000000000000000001"

	_, err = fx.svc.Buy(ctx, req)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSellUsesSellDigest(t *testing.T) {
	fx := newFixture(t, Options{RequireSignatures: true})
	ctx := context.Background()
	id := domain.DeriveMarketID("q")

	_, err := fx.svc.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	// A buy signature must not authorize a sell of the same tuple.
	req := signedTradeRequest(t, id, domain.TradeBuy, 10000)
	_, err = fx.svc.Sell(ctx, req)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	req = signedTradeRequest(t, id, domain.TradeSell, 10000)
	trade, err := fx.svc.Sell(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeSell, trade.Side)
}

func TestSettleFailsWhenLockHeld(t *testing.T) {
	fx := newFixture(t, Options{RequireSignatures: false})
	ctx := context.Background()
	id := domain.DeriveMarketID("q")

	_, err := fx.svc.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	fx.locks.held = true
	_, err = fx.svc.Buy(ctx, TradeRequest{
		MarketID: id,
		Trader:   "alice",
		Outcome:  domain.OutcomeYes,
		Amount:   uint256.NewInt(100),
	})
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	assert.Empty(t, fx.trades.trades)
}

func TestStateReadThrough(t *testing.T) {
	fx := newFixture(t, Options{RequireSignatures: false})
	ctx := context.Background()
	id := domain.DeriveMarketID("q")

	_, err := fx.svc.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	st, err := fx.svc.State(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.Equal(t, 1, fx.cache.sets, "miss populates the cache")

	// Second read must come from the cache.
	_, err = fx.svc.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.cache.sets)
}

func TestOddsForUnknownMarket(t *testing.T) {
	fx := newFixture(t, Options{RequireSignatures: false})

	odds, err := fx.svc.Odds(context.Background(), domain.DeriveMarketID("never created"))
	require.NoError(t, err)
	assert.Equal(t, domain.EvenOdds, odds)
}

func TestTradesListedPerMarket(t *testing.T) {
	fx := newFixture(t, Options{RequireSignatures: false})
	ctx := context.Background()
	id := domain.DeriveMarketID("q")

	_, err := fx.svc.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := fx.svc.Buy(ctx, TradeRequest{
			MarketID: id,
			Trader:   "alice",
			Outcome:  domain.OutcomeYes,
			Amount:   uint256.NewInt(100),
		})
		require.NoError(t, err)
	}

	trades, err := fx.svc.Trades(ctx, id, domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, trades, 3)
}
