package engine

import (
	"context"
	"log/slog"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxmeout/poolengine/internal/domain"
	"github.com/boxmeout/poolengine/internal/store/memory"
)

func newTestEngine(t *testing.T, params Params) (*Engine, *memory.PoolStore) {
	t.Helper()
	store := memory.NewPoolStore()
	logger := slog.New(slog.DiscardHandler)
	return New(params, store, logger), store
}

func TestCreatePoolSplitsEvenly(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("will it rain tomorrow")

	pool, err := eng.CreatePool(context.Background(), id, uint256.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(500), pool.YesReserve)
	assert.Equal(t, uint256.NewInt(500), pool.NoReserve)
}

func TestCreatePoolRejectsOddAmount(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("q")

	_, err := eng.CreatePool(context.Background(), id, uint256.NewInt(1001))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreatePoolRejectsDuplicate(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("q")
	ctx := context.Background()

	_, err := eng.CreatePool(ctx, id, uint256.NewInt(1000))
	require.NoError(t, err)
	_, err = eng.CreatePool(ctx, id, uint256.NewInt(1000))
	assert.ErrorIs(t, err, domain.ErrPoolAlreadyExists)
}

func TestCreatePoolEnforcesCap(t *testing.T) {
	params := DefaultParams()
	params.MaxLiquidityCap = uint256.NewInt(1000000)
	eng, _ := newTestEngine(t, params)
	ctx := context.Background()

	_, err := eng.CreatePool(ctx, domain.DeriveMarketID("a"), uint256.NewInt(1000002))
	assert.ErrorIs(t, err, domain.ErrLiquidityCapExceeded)

	_, err = eng.CreatePool(ctx, domain.DeriveMarketID("b"), uint256.NewInt(1000000))
	assert.NoError(t, err)
}

func TestBuySharesEndToEnd(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("q")
	ctx := context.Background()

	_, err := eng.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	res, err := eng.BuyShares(ctx, id, domain.OutcomeYes, uint256.NewInt(10000), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.TradeBuy, res.Side)
	assert.Equal(t, uint256.NewInt(20), res.Fee)
	assert.Equal(t, uint256.NewInt(9784), res.AmountOut)
	assert.Equal(t, uint256.NewInt(490216), res.Pool.YesReserve)
	assert.Equal(t, uint256.NewInt(509980), res.Pool.NoReserve)
}

func TestBuySharesValidation(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("q")
	ctx := context.Background()

	_, err := eng.BuyShares(ctx, id, domain.Outcome(2), uint256.NewInt(100), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)

	_, err = eng.BuyShares(ctx, id, domain.OutcomeYes, uint256.NewInt(0), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = eng.BuyShares(ctx, id, domain.OutcomeYes, uint256.NewInt(100), nil)
	assert.ErrorIs(t, err, domain.ErrPoolNotFound)
}

func TestBuySharesSlippage(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("q")
	ctx := context.Background()

	_, err := eng.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	_, err = eng.BuyShares(ctx, id, domain.OutcomeYes, uint256.NewInt(10000), uint256.NewInt(9785))
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)

	res, err := eng.BuyShares(ctx, id, domain.OutcomeYes, uint256.NewInt(10000), uint256.NewInt(9784))
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(9784), res.AmountOut)
}

func TestFailedBuyLeavesPoolUntouched(t *testing.T) {
	eng, store := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("q")
	ctx := context.Background()

	_, err := eng.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)
	before, err := store.Get(ctx, id)
	require.NoError(t, err)

	_, err = eng.BuyShares(ctx, id, domain.OutcomeYes, uint256.NewInt(10000), uint256.NewInt(999999))
	require.ErrorIs(t, err, domain.ErrSlippageExceeded)

	after, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.YesReserve, after.YesReserve)
	assert.Equal(t, before.NoReserve, after.NoReserve)
}

func TestSellSharesEndToEnd(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("q")
	ctx := context.Background()

	_, err := eng.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	res, err := eng.SellShares(ctx, id, domain.OutcomeYes, uint256.NewInt(10000), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.TradeSell, res.Side)
	assert.Equal(t, uint256.NewInt(19), res.Fee)
	assert.Equal(t, uint256.NewInt(9784), res.AmountOut)
	assert.Equal(t, uint256.NewInt(510000), res.Pool.YesReserve)
	assert.Equal(t, uint256.NewInt(490197), res.Pool.NoReserve)
}

func TestSellSharesSlippage(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("q")
	ctx := context.Background()

	_, err := eng.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	_, err = eng.SellShares(ctx, id, domain.OutcomeYes, uint256.NewInt(10000), uint256.NewInt(9785))
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)
}

func TestTradeSequencePreservesInvariant(t *testing.T) {
	eng, store := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("q")
	ctx := context.Background()

	pool, err := eng.CreatePool(ctx, id, uint256.NewInt(2000000))
	require.NoError(t, err)
	k := pool.Product()

	steps := []struct {
		side    domain.TradeSide
		outcome domain.Outcome
		amount  uint64
	}{
		{domain.TradeBuy, domain.OutcomeYes, 50000},
		{domain.TradeBuy, domain.OutcomeNo, 12345},
		{domain.TradeSell, domain.OutcomeYes, 30000},
		{domain.TradeBuy, domain.OutcomeYes, 777},
		{domain.TradeSell, domain.OutcomeNo, 9999},
	}
	for _, step := range steps {
		var err error
		if step.side == domain.TradeBuy {
			_, err = eng.BuyShares(ctx, id, step.outcome, uint256.NewInt(step.amount), nil)
		} else {
			_, err = eng.SellShares(ctx, id, step.outcome, uint256.NewInt(step.amount), nil)
		}
		require.NoError(t, err)

		current, err := store.Get(ctx, id)
		require.NoError(t, err)
		newK := current.Product()
		assert.True(t, newK.Cmp(k) >= 0, "product must be monotonic across trades")
		k = newK
	}
}

func TestOddsForMissingPool(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())

	odds, err := eng.Odds(context.Background(), domain.DeriveMarketID("never created"))
	require.NoError(t, err)
	assert.Equal(t, domain.EvenOdds, odds)
}

func TestOddsAfterBuyShiftTowardBoughtSide(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("q")
	ctx := context.Background()

	_, err := eng.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	_, err = eng.BuyShares(ctx, id, domain.OutcomeYes, uint256.NewInt(100000), nil)
	require.NoError(t, err)

	odds, err := eng.Odds(ctx, id)
	require.NoError(t, err)
	assert.Greater(t, odds.Yes, uint32(5000), "buying YES raises its implied probability")
	assert.Equal(t, uint32(BpsDenominator), odds.Yes+odds.No)
}

func TestStateForMissingPool(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("never created")

	st, err := eng.State(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, st.Exists)
	assert.True(t, st.YesReserve.IsZero())
	assert.True(t, st.NoReserve.IsZero())
	assert.True(t, st.TotalLiquidity.IsZero())
	assert.Equal(t, domain.EvenOdds, st.Odds)
}

func TestStateReportsTotals(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultParams())
	id := domain.DeriveMarketID("q")
	ctx := context.Background()

	_, err := eng.CreatePool(ctx, id, uint256.NewInt(1000000))
	require.NoError(t, err)

	st, err := eng.State(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.Equal(t, uint256.NewInt(1000000), st.TotalLiquidity)
	assert.Equal(t, domain.EvenOdds, st.Odds)
}
