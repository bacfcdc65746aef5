package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boxmeout/poolengine/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Insert appends one settled trade to the ledger.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trades (
			id, market_id, trader, side, outcome,
			amount_in, amount_out, fee, yes_reserve, no_reserve, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11
		)`,
		t.ID, t.MarketID.Bytes(), t.Trader, string(t.Side), int16(t.Outcome),
		t.AmountIn.Dec(), t.AmountOut.Dec(), t.Fee.Dec(),
		t.YesReserve.Dec(), t.NoReserve.Dec(), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", t.ID, err)
	}
	return nil
}

const tradeCols = `id, market_id, trader, side, outcome,
	amount_in::text, amount_out::text, fee::text,
	yes_reserve::text, no_reserve::text, created_at`

// scanTrade scans a single trade row.
func scanTrade(row pgx.Row) (domain.Trade, error) {
	var (
		t        domain.Trade
		marketID []byte
		side     string
		outcome  int16
		amounts  [5]string
	)
	err := row.Scan(
		&t.ID, &marketID, &t.Trader, &side, &outcome,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4],
		&t.CreatedAt,
	)
	if err != nil {
		return domain.Trade{}, err
	}

	if len(marketID) != domain.MarketIDLen {
		return domain.Trade{}, fmt.Errorf("market id has %d bytes", len(marketID))
	}
	copy(t.MarketID[:], marketID)
	t.Side = domain.TradeSide(side)
	t.Outcome = domain.Outcome(outcome)

	dsts := []**uint256.Int{&t.AmountIn, &t.AmountOut, &t.Fee, &t.YesReserve, &t.NoReserve}
	for i, dst := range dsts {
		v, err := uint256.FromDecimal(amounts[i])
		if err != nil {
			return domain.Trade{}, fmt.Errorf("decode amount %q: %w", amounts[i], err)
		}
		*dst = v
	}
	return t, nil
}

// ListByMarket returns the market's trades, newest first.
func (s *TradeStore) ListByMarket(ctx context.Context, id domain.MarketID, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeCols + ` FROM trades WHERE market_id = $1 ORDER BY created_at DESC`
	args := []any{id.Bytes()}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for %s: %w", id, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades rows: %w", err)
	}
	return trades, nil
}

// ListBefore returns all trades settled strictly before the cutoff, oldest
// first, for the archiver.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeCols+` FROM trades WHERE created_at < $1 ORDER BY created_at ASC`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades before rows: %w", err)
	}
	return trades, nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
