package middleware

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/aretw0/webflow/pkg/ports"
)

type cacheMiddleware struct {
	next  ports.SnapshotStore
	cache *gocache.Cache
}

// NewCacheMiddleware keeps recently used snapshots in process memory.
// Writes go through to the wrapped store; deletes invalidate the entry.
// Only safe when this process is the sole writer of the wrapped store.
func NewCacheMiddleware(ttl time.Duration) Middleware {
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &cacheMiddleware{
			next:  next,
			cache: gocache.New(ttl, 2*ttl),
		}
	}
}

func (m *cacheMiddleware) Put(ctx context.Context, id string, data []byte) error {
	if err := m.next.Put(ctx, id, data); err != nil {
		m.cache.Delete(id)
		return err
	}
	m.cache.SetDefault(id, append([]byte(nil), data...))
	return nil
}

func (m *cacheMiddleware) Get(ctx context.Context, id string) ([]byte, error) {
	if cached, ok := m.cache.Get(id); ok {
		return append([]byte(nil), cached.([]byte)...), nil
	}
	data, err := m.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.cache.SetDefault(id, append([]byte(nil), data...))
	return data, nil
}

func (m *cacheMiddleware) Delete(ctx context.Context, id string) error {
	m.cache.Delete(id)
	return m.next.Delete(ctx, id)
}

func (m *cacheMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
