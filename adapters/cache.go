package adapters

import (
	"context"
	"slices"
	"time"

	"github.com/brettbedarf/docfs"
	"github.com/brettbedarf/docfs/config"
	"github.com/brettbedarf/docfs/internal/util"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore is a read-through cache in front of another store. Writes go
// to the backend first and then invalidate the cached body.
type CachedStore struct {
	backend docfs.ContentStore
	cache   *expirable.LRU[string, []byte]
}

// NewCachedStore caches up to size bodies for ttl each
func NewCachedStore(backend docfs.ContentStore, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		backend: backend,
		cache:   expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

// WithCache wraps store in a [CachedStore] when cfg enables caching
func WithCache(store docfs.ContentStore, cfg *config.Config) docfs.ContentStore {
	if cfg == nil || cfg.CacheSize <= 0 {
		return store
	}
	return NewCachedStore(store, cfg.CacheSize, cfg.CacheTTL)
}

func (s *CachedStore) Get(ctx context.Context, contentID string) ([]byte, error) {
	logger := util.GetLogger("CachedStore.Get")

	if data, ok := s.cache.Get(contentID); ok {
		logger.Trace().Str("contentID", contentID).Msg("Cache hit")
		return slices.Clone(data), nil
	}
	data, err := s.backend.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	s.cache.Add(contentID, slices.Clone(data))
	logger.Trace().Str("contentID", contentID).Int("size", len(data)).Msg("Cached content")
	return data, nil
}

func (s *CachedStore) Put(ctx context.Context, contentID string, data []byte) error {
	defer s.cache.Remove(contentID)
	return s.backend.Put(ctx, contentID, data)
}

func (s *CachedStore) Delete(ctx context.Context, contentID string) error {
	defer s.cache.Remove(contentID)
	return s.backend.Delete(ctx, contentID)
}

// Cached returns the number of bodies currently cached
func (s *CachedStore) Cached() int {
	return s.cache.Len()
}

var _ docfs.ContentStore = (*CachedStore)(nil)
