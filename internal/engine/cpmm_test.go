package engine

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxmeout/poolengine/internal/domain"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func poolWith(yes, no uint64) domain.Pool {
	return domain.Pool{YesReserve: u(yes), NoReserve: u(no)}
}

func TestFeeOn(t *testing.T) {
	assert.Equal(t, u(20), feeOn(u(10000), 20))
	assert.Equal(t, u(0), feeOn(u(100), 20), "fee truncates to zero on tiny amounts")
	assert.Equal(t, u(0), feeOn(u(10000), 0))
}

func TestQuoteBuyYes(t *testing.T) {
	q, err := quoteBuy(20, poolWith(500000, 500000), domain.OutcomeYes, u(10000))
	require.NoError(t, err)

	// fee 20, net 9980; shares = 9980*500000/509980 truncated.
	assert.Equal(t, u(20), q.fee)
	assert.Equal(t, u(9784), q.sharesOut)
	assert.Equal(t, u(490216), q.newYes)
	assert.Equal(t, u(509980), q.newNo)
}

func TestQuoteBuyNoMirrorsYes(t *testing.T) {
	q, err := quoteBuy(20, poolWith(500000, 500000), domain.OutcomeNo, u(10000))
	require.NoError(t, err)

	// Symmetric pool, so the NO buy mirrors the YES buy exactly.
	assert.Equal(t, u(9784), q.sharesOut)
	assert.Equal(t, u(509980), q.newYes)
	assert.Equal(t, u(490216), q.newNo)
}

func TestQuoteBuyGrowsProduct(t *testing.T) {
	pool := poolWith(500000, 500000)
	q, err := quoteBuy(20, pool, domain.OutcomeYes, u(10000))
	require.NoError(t, err)

	oldK := pool.Product()
	newK := new(uint256.Int).Mul(q.newYes, q.newNo)
	assert.True(t, newK.Cmp(oldK) >= 0, "reserve product must not shrink")
}

func TestQuoteBuyReserveOverflow(t *testing.T) {
	huge := new(uint256.Int).Lsh(u(1), 127)
	pool := domain.Pool{YesReserve: huge, NoReserve: new(uint256.Int).Set(huge)}

	_, err := quoteBuy(20, pool, domain.OutcomeYes, new(uint256.Int).Lsh(u(1), 128))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestQuoteSellYes(t *testing.T) {
	q, err := quoteSell(20, poolWith(500000, 500000), domain.OutcomeYes, u(10000))
	require.NoError(t, err)

	// gross = 10000*500000/510000 = 9803; fee on the payout, pool debited gross.
	assert.Equal(t, u(9803), q.payoutGross)
	assert.Equal(t, u(19), q.fee)
	assert.Equal(t, u(9784), q.payoutNet)
	assert.Equal(t, u(510000), q.newYes)
	assert.Equal(t, u(490197), q.newNo)
}

func TestQuoteSellGrowsProduct(t *testing.T) {
	pool := poolWith(500000, 500000)
	q, err := quoteSell(20, pool, domain.OutcomeYes, u(10000))
	require.NoError(t, err)

	oldK := pool.Product()
	newK := new(uint256.Int).Mul(q.newYes, q.newNo)
	assert.True(t, newK.Cmp(oldK) >= 0, "fee retention must grow the product")
}

func TestCheckInvariant(t *testing.T) {
	assert.NoError(t, checkInvariant(u(100), u(100), u(101), u(100)))
	assert.NoError(t, checkInvariant(u(100), u(100), u(100), u(100)))
	assert.ErrorIs(t, checkInvariant(u(100), u(100), u(99), u(100)), domain.ErrInvariantViolation)
}

func TestSplitInitialLiquidity(t *testing.T) {
	side, err := splitInitialLiquidity(u(1000), nil)
	require.NoError(t, err)
	assert.Equal(t, u(500), side)

	_, err = splitInitialLiquidity(u(0), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = splitInitialLiquidity(nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = splitInitialLiquidity(u(1001), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount, "odd amounts are rejected, not truncated")

	_, err = splitInitialLiquidity(u(2000), u(1000))
	assert.ErrorIs(t, err, domain.ErrLiquidityCapExceeded)

	side, err = splitInitialLiquidity(u(1000), u(1000))
	require.NoError(t, err, "cap is inclusive")
	assert.Equal(t, u(500), side)

	tooWide := new(uint256.Int).Lsh(u(1), 129)
	_, err = splitInitialLiquidity(tooWide, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestComputeOddsBalanced(t *testing.T) {
	odds := computeOdds(u(500000), u(500000))
	assert.Equal(t, domain.Odds{Yes: 5000, No: 5000}, odds)
}

func TestComputeOddsSkewed(t *testing.T) {
	// More YES reserve means YES is the cheaper, less likely side.
	odds := computeOdds(u(700000), u(300000))
	assert.Equal(t, domain.Odds{Yes: 3000, No: 7000}, odds)
	assert.Equal(t, uint32(BpsDenominator), odds.Yes+odds.No)
}

func TestComputeOddsRemainderClosure(t *testing.T) {
	odds := computeOdds(u(333333333), u(666666667))
	assert.Equal(t, uint32(BpsDenominator), odds.Yes+odds.No, "truncation remainder must be absorbed")
	assert.Equal(t, uint32(6667), odds.Yes)
	assert.Equal(t, uint32(3333), odds.No)
}

func TestComputeOddsOneSided(t *testing.T) {
	assert.Equal(t, domain.Odds{Yes: 10000, No: 0}, computeOdds(u(1000000000), u(0)))
	assert.Equal(t, domain.Odds{Yes: 0, No: 10000}, computeOdds(u(0), u(1000000000)))
	assert.Equal(t, domain.EvenOdds, computeOdds(u(0), u(0)))
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.TradingFeeBps = 10000
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.SlippageProtectionBps = 10001
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.PricingModel = "LMSR"
	assert.Error(t, p.Validate())
}
