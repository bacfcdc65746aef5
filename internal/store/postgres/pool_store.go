package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boxmeout/poolengine/internal/domain"
)

// PoolStore implements domain.PoolStore using PostgreSQL. Reserves travel as
// decimal strings so the NUMERIC column round-trips 128-bit values exactly.
type PoolStore struct {
	pool *pgxpool.Pool
}

// NewPoolStore creates a PoolStore backed by the given connection pool.
func NewPoolStore(pool *pgxpool.Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Exists reports whether a pool row was created for the market.
func (s *PoolStore) Exists(ctx context.Context, id domain.MarketID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pools WHERE market_id = $1)", id.Bytes(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: pool exists %s: %w", id, err)
	}
	return exists, nil
}

// Get retrieves the pool for the market, or ErrPoolNotFound.
func (s *PoolStore) Get(ctx context.Context, id domain.MarketID) (domain.Pool, error) {
	var (
		yes, no string
		created time.Time
		updated time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT yes_reserve::text, no_reserve::text, created_at, updated_at
		FROM pools WHERE market_id = $1`, id.Bytes(),
	).Scan(&yes, &no, &created, &updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pool{}, domain.ErrPoolNotFound
		}
		return domain.Pool{}, fmt.Errorf("postgres: get pool %s: %w", id, err)
	}

	yesReserve, err := uint256.FromDecimal(yes)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("postgres: decode yes reserve %q: %w", yes, err)
	}
	noReserve, err := uint256.FromDecimal(no)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("postgres: decode no reserve %q: %w", no, err)
	}

	return domain.Pool{
		MarketID:   id,
		YesReserve: yesReserve,
		NoReserve:  noReserve,
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

// Create inserts a new pool row; ErrPoolAlreadyExists on a duplicate market.
func (s *PoolStore) Create(ctx context.Context, pool domain.Pool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (market_id, yes_reserve, no_reserve, created_at, updated_at)
		VALUES ($1, $2::numeric, $3::numeric, $4, $5)`,
		pool.MarketID.Bytes(),
		pool.YesReserve.Dec(), pool.NoReserve.Dec(),
		pool.CreatedAt, pool.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrPoolAlreadyExists
		}
		return fmt.Errorf("postgres: create pool %s: %w", pool.MarketID, err)
	}
	return nil
}

// Put overwrites both reserves of an existing pool row.
func (s *PoolStore) Put(ctx context.Context, pool domain.Pool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pools
		SET yes_reserve = $2::numeric, no_reserve = $3::numeric, updated_at = $4
		WHERE market_id = $1`,
		pool.MarketID.Bytes(),
		pool.YesReserve.Dec(), pool.NoReserve.Dec(),
		pool.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: put pool %s: %w", pool.MarketID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPoolNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.PoolStore = (*PoolStore)(nil)
