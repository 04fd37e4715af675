package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/cache"
)

// CacheSnapshotStore keeps the last good snapshot per pair and scope in a cache.Service
// (memory alone, or memory in front of Redis) so a new orchestrator can start from
// stale-but-available data.
type CacheSnapshotStore struct {
	cache cache.Service
	ttl   time.Duration
}

var _ domrepo.SnapshotStore = (*CacheSnapshotStore)(nil)

// NewCacheSnapshotStore creates a store whose entries live for ttl.
func NewCacheSnapshotStore(c cache.Service, ttl time.Duration) *CacheSnapshotStore {
	return &CacheSnapshotStore{cache: c, ttl: ttl}
}

func (s *CacheSnapshotStore) Name() string { return "cache" }

func (s *CacheSnapshotStore) Write(ctx context.Context, snap *models.Snapshot) error {
	if err := s.cache.Set(ctx, snapshotKey(snap.Pair, snap.Scope), snap, s.ttl); err != nil {
		return fmt.Errorf("cache snapshot %s: %w", snap.Pair, err)
	}
	return nil
}

func (s *CacheSnapshotStore) Load(ctx context.Context, pair, scope string) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := s.cache.Get(ctx, snapshotKey(pair, scope), &snap); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, domrepo.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("load snapshot %s: %w", pair, err)
	}
	return &snap, nil
}

func snapshotKey(pair, scope string) string {
	return cache.Key("snapshot", pair, scope)
}
