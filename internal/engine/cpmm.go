package engine

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/boxmeout/poolengine/internal/domain"
)

var bpsDenom = uint256.NewInt(BpsDenominator)

// feeOn returns amount * feeBps / 10000, truncated.
func feeOn(amount *uint256.Int, feeBps uint64) *uint256.Int {
	fee := new(uint256.Int).Mul(amount, uint256.NewInt(feeBps))
	return fee.Div(fee, bpsDenom)
}

// fitsReserve reports whether v is representable as an unsigned 128-bit
// reserve.
func fitsReserve(v *uint256.Int) bool {
	return v.BitLen() <= maxReserveBits
}

// buyQuote carries the computed outputs of a buy before commit.
type buyQuote struct {
	sharesOut *uint256.Int
	fee       *uint256.Int
	newYes    *uint256.Int
	newNo     *uint256.Int
}

// quoteBuy prices a buy of the given outcome against the pool's reserves.
//
// Paying into the market swells the opposite reserve: buying YES pays into
// the NO side and drains YES shares, and vice versa. The swap follows
// shares_out = net * reserve_out / (reserve_in + net), truncating.
//
// The only error is the 128-bit range guard on the grown reserve; slippage
// and invariant checks belong to the caller, in the order the settlement
// contract defines.
func quoteBuy(feeBps uint64, pool domain.Pool, outcome domain.Outcome, amount *uint256.Int) (buyQuote, error) {
	fee := feeOn(amount, feeBps)
	net := new(uint256.Int).Sub(amount, fee)

	reserveIn, reserveOut := pool.NoReserve, pool.YesReserve
	if outcome == domain.OutcomeNo {
		reserveIn, reserveOut = pool.YesReserve, pool.NoReserve
	}

	newIn := new(uint256.Int).Add(reserveIn, net)
	if !fitsReserve(newIn) {
		return buyQuote{}, fmt.Errorf("engine: buy would overflow reserve: %w", domain.ErrInvalidAmount)
	}

	sharesOut := new(uint256.Int).Mul(net, reserveOut)
	sharesOut.Div(sharesOut, newIn)
	newOut := new(uint256.Int).Sub(reserveOut, sharesOut)

	q := buyQuote{sharesOut: sharesOut, fee: fee}
	if outcome == domain.OutcomeYes {
		q.newYes, q.newNo = newOut, newIn
	} else {
		q.newYes, q.newNo = newIn, newOut
	}
	return q, nil
}

// sellQuote carries the computed outputs of a sell before commit.
type sellQuote struct {
	payoutGross *uint256.Int
	payoutNet   *uint256.Int
	fee         *uint256.Int
	newYes      *uint256.Int
	newNo       *uint256.Int
}

// quoteSell prices a sale of shares back into the pool.
//
// The sold outcome's reserve grows by the full share count while the other
// reserve shrinks by the GROSS payout; the fee is taken off the payout the
// seller receives but stays inside the pool. That asymmetry is what lets
// the reserve product grow on every trade; do not "simplify" it to the net
// payout.
func quoteSell(feeBps uint64, pool domain.Pool, outcome domain.Outcome, shares *uint256.Int) (sellQuote, error) {
	reserveIn, reserveOut := pool.YesReserve, pool.NoReserve
	if outcome == domain.OutcomeNo {
		reserveIn, reserveOut = pool.NoReserve, pool.YesReserve
	}

	newIn := new(uint256.Int).Add(reserveIn, shares)
	if !fitsReserve(newIn) {
		return sellQuote{}, fmt.Errorf("engine: sell would overflow reserve: %w", domain.ErrInvalidAmount)
	}

	payout := new(uint256.Int).Mul(shares, reserveOut)
	payout.Div(payout, newIn)

	fee := feeOn(payout, feeBps)
	net := new(uint256.Int).Sub(payout, fee)
	newOut := new(uint256.Int).Sub(reserveOut, payout)

	q := sellQuote{payoutGross: payout, payoutNet: net, fee: fee}
	if outcome == domain.OutcomeYes {
		q.newYes, q.newNo = newIn, newOut
	} else {
		q.newYes, q.newNo = newOut, newIn
	}
	return q, nil
}

// checkInvariant rejects any transition where the reserve product shrank.
// With a positive fee this is unreachable, but the settlement contract
// demands it be checked, not assumed.
func checkInvariant(oldYes, oldNo, newYes, newNo *uint256.Int) error {
	oldK := new(uint256.Int).Mul(oldYes, oldNo)
	newK := new(uint256.Int).Mul(newYes, newNo)
	if newK.Lt(oldK) {
		return domain.ErrInvariantViolation
	}
	return nil
}

// splitInitialLiquidity validates the seed amount of a new pool and returns
// the per-side reserve. Odd amounts are rejected rather than silently
// truncated, so no unit of liquidity goes unaccounted.
func splitInitialLiquidity(initial *uint256.Int, cap *uint256.Int) (*uint256.Int, error) {
	if initial == nil || initial.IsZero() {
		return nil, fmt.Errorf("engine: initial liquidity: %w", domain.ErrInvalidAmount)
	}
	if !fitsReserve(initial) {
		return nil, fmt.Errorf("engine: initial liquidity exceeds 128 bits: %w", domain.ErrInvalidAmount)
	}
	if initial[0]&1 != 0 {
		return nil, fmt.Errorf("engine: initial liquidity must be even: %w", domain.ErrInvalidAmount)
	}
	if cap != nil && !cap.IsZero() && initial.Gt(cap) {
		return nil, domain.ErrLiquidityCapExceeded
	}
	return new(uint256.Int).Rsh(initial, 1), nil
}

// computeOdds derives implied odds in basis points from a reserve pair.
// Odds are inversely proportional to a side's own reserve: the side with
// the larger reserve is the cheaper one. The truncation remainder is added
// to the larger side so the pair always sums to exactly 10000.
func computeOdds(yes, no *uint256.Int) domain.Odds {
	switch {
	case yes.IsZero() && no.IsZero():
		return domain.EvenOdds
	case yes.IsZero():
		return domain.Odds{Yes: 0, No: BpsDenominator}
	case no.IsZero():
		return domain.Odds{Yes: BpsDenominator, No: 0}
	}

	total := new(uint256.Int).Add(yes, no)

	yesOdds := new(uint256.Int).Mul(no, bpsDenom)
	yesOdds.Div(yesOdds, total)
	noOdds := new(uint256.Int).Mul(yes, bpsDenom)
	noOdds.Div(noOdds, total)

	y := uint32(yesOdds.Uint64())
	n := uint32(noOdds.Uint64())

	if rem := BpsDenominator - (y + n); rem != 0 {
		if y >= n {
			y += rem
		} else {
			n += rem
		}
	}
	return domain.Odds{Yes: y, No: n}
}
