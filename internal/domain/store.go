package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// PoolStore owns the persisted reserve pair of every market. It performs no
// validation; the pricing engine enforces all invariants before calling Put.
type PoolStore interface {
	// Exists reports whether a pool has been created for the market.
	Exists(ctx context.Context, id MarketID) (bool, error)
	// Get returns the pool, or ErrPoolNotFound when none was created.
	Get(ctx context.Context, id MarketID) (Pool, error)
	// Create inserts a new pool; ErrPoolAlreadyExists on duplicate.
	Create(ctx context.Context, pool Pool) error
	// Put overwrites both reserves of an existing pool.
	Put(ctx context.Context, pool Pool) error
}

// TradeStore is the append-only settlement ledger.
type TradeStore interface {
	Insert(ctx context.Context, trade Trade) error
	ListByMarket(ctx context.Context, id MarketID, opts ListOpts) ([]Trade, error)
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
}

// PoolCache is a short-lived read cache for pool state snapshots.
type PoolCache interface {
	Get(ctx context.Context, id MarketID) (PoolState, error)
	Set(ctx context.Context, state PoolState) error
	Invalidate(ctx context.Context, id MarketID) error
}

// LockManager serializes mutation per market. Outside a ledger host there is
// no ambient transaction, so every buy/sell takes the market's lock for the
// read-compute-write window.
type LockManager interface {
	// Acquire returns an unlock function, or ErrLockHeld when another
	// holder owns the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// StreamMessage is a single entry read back from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus is the append-only event sink plus its ephemeral fan-out side.
// Publish pushes to a live channel for subscribers; StreamAppend persists to
// an ordered stream.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe subscribes to one or more channel patterns. The returned
	// close function tears down the subscription and closes the channel.
	Subscribe(ctx context.Context, patterns ...string) (<-chan []byte, func(), error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int64) ([]StreamMessage, error)
}

// BlobWriter uploads objects to blob storage, used by the ledger archiver.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
