package cache

import (
	"context"

	"go.uber.org/zap"

	"scholars/api/internal/share"
)

// Snapshots is the cache contract CachedStore relies on.
type Snapshots interface {
	Get(ctx context.Context, slug string) (share.Snapshot, bool, error)
	Put(ctx context.Context, snapshot share.Snapshot) error
}

// CachedStore puts a read-through snapshot cache in front of a share.Store.
// Cache failures are logged and fall through to the backing store.
type CachedStore struct {
	share.Store
	cache  Snapshots
	logger *zap.Logger
}

func NewCachedStore(backing share.Store, cache Snapshots, logger *zap.Logger) *CachedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{Store: backing, cache: cache, logger: logger}
}

func (c *CachedStore) GetShare(ctx context.Context, slug string) (share.Snapshot, error) {
	cached, ok, err := c.cache.Get(ctx, slug)
	if err != nil {
		c.logger.Warn("share cache read failed", zap.String("slug", slug), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	snapshot, err := c.Store.GetShare(ctx, slug)
	if err != nil {
		return share.Snapshot{}, err
	}
	if err := c.cache.Put(ctx, snapshot); err != nil {
		c.logger.Warn("share cache write failed", zap.String("slug", slug), zap.Error(err))
	}
	return snapshot, nil
}

func (c *CachedStore) InsertShare(ctx context.Context, snapshot share.Snapshot) error {
	if err := c.Store.InsertShare(ctx, snapshot); err != nil {
		return err
	}
	if err := c.cache.Put(ctx, snapshot); err != nil {
		c.logger.Warn("share cache write failed", zap.String("slug", snapshot.Slug), zap.Error(err))
	}
	return nil
}
