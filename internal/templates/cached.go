package templates

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore keeps recently used templates in memory in front of another
// Store. List always goes to the underlying store.
type CachedStore struct {
	next  Store
	cache *lru.Cache[string, []byte]
}

// NewCachedStore wraps next with an LRU of size entries.
func NewCachedStore(next Store, size int) (*CachedStore, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create template cache: %w", err)
	}
	return &CachedStore{next: next, cache: cache}, nil
}

// Get returns the cached template or loads and caches it. Failed loads are
// not cached.
func (s *CachedStore) Get(ctx context.Context, name string) ([]byte, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	if data, ok := s.cache.Get(name); ok {
		return data, nil
	}

	data, err := s.next.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Add(name, data)
	return data, nil
}

// List returns the underlying store's templates.
func (s *CachedStore) List(ctx context.Context) ([]string, error) {
	return s.next.List(ctx)
}

// Invalidate drops one template from the cache.
func (s *CachedStore) Invalidate(name string) {
	if clean, err := CleanName(name); err == nil {
		s.cache.Remove(clean)
	}
}

// Purge empties the cache.
func (s *CachedStore) Purge() {
	s.cache.Purge()
}

// Len returns the number of cached templates.
func (s *CachedStore) Len() int {
	return s.cache.Len()
}
