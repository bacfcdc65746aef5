// Package memory provides map-backed store implementations. They carry the
// same contracts as the Postgres stores and back unit tests and local runs
// without a database.
package memory

import (
	"context"
	"sync"

	"github.com/boxmeout/poolengine/internal/domain"
)

// PoolStore implements domain.PoolStore with an in-process map.
type PoolStore struct {
	mu    sync.RWMutex
	pools map[domain.MarketID]domain.Pool
}

// NewPoolStore creates an empty PoolStore.
func NewPoolStore() *PoolStore {
	return &PoolStore{pools: make(map[domain.MarketID]domain.Pool)}
}

// Exists reports whether a pool was created for the market.
func (s *PoolStore) Exists(_ context.Context, id domain.MarketID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pools[id]
	return ok, nil
}

// Get returns a deep copy of the pool, or ErrPoolNotFound.
func (s *PoolStore) Get(_ context.Context, id domain.MarketID) (domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool, ok := s.pools[id]
	if !ok {
		return domain.Pool{}, domain.ErrPoolNotFound
	}
	return pool.Clone(), nil
}

// Create inserts a new pool; ErrPoolAlreadyExists on duplicate.
func (s *PoolStore) Create(_ context.Context, pool domain.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[pool.MarketID]; ok {
		return domain.ErrPoolAlreadyExists
	}
	s.pools[pool.MarketID] = pool.Clone()
	return nil
}

// Put overwrites the reserves of an existing pool.
func (s *PoolStore) Put(_ context.Context, pool domain.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[pool.MarketID]; !ok {
		return domain.ErrPoolNotFound
	}
	s.pools[pool.MarketID] = pool.Clone()
	return nil
}

// Compile-time interface check.
var _ domain.PoolStore = (*PoolStore)(nil)
