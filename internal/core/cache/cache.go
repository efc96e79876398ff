package cache

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrStale marks a result served from an invalidated entry because the
// refetch failed. The value returned alongside it is still usable.
var ErrStale = errors.New("cache: stale value served")

// Entry is one cached value. Stale entries are kept until refetched.
type Entry struct {
	Value []byte
	Stale bool
}

// Store 缓存后端：内存或 redis
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// MarkStale flags every key that starts with one of prefixes.
	MarkStale(ctx context.Context, prefixes ...string) error
	Delete(ctx context.Context, keys ...string) error
}

// Cache 读穿缓存：命中直接返回；缺失或已失效时 singleflight 合并回源
type Cache struct {
	store Store
	sf    singleflight.Group
	log   *zap.Logger
}

func New(store Store, l *zap.Logger) *Cache {
	if store == nil {
		store = NewMemory()
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Cache{store: store, log: l.Named("cache")}
}

// GetOrLoad returns the cached bytes for key, calling load on a miss or a
// stale entry. If load fails while a stale entry exists, the stale bytes are
// returned together with an error wrapping ErrStale and the load error.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, error) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		ok = false
	}
	if ok && !e.Stale {
		return e.Value, nil
	}

	// single flight 合并回源
	v, err, _ := c.sf.Do(key, func() (any, error) {
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if se := c.store.Set(ctx, key, b); se != nil {
			c.log.Warn("cache set failed", zap.String("key", key), zap.Error(se))
		}
		return b, nil
	})
	if err != nil {
		if ok {
			return e.Value, fmt.Errorf("%w: %w", ErrStale, err)
		}
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate marks every key under prefixes stale. Readers refetch on next use.
func (c *Cache) Invalidate(ctx context.Context, prefixes ...string) error {
	if err := c.store.MarkStale(ctx, prefixes...); err != nil {
		c.log.Warn("cache invalidate failed", zap.Strings("prefixes", prefixes), zap.Error(err))
		return err
	}
	return nil
}

// Forget drops keys outright, for entries whose old value must not be served
// again (a deleted record).
func (c *Cache) Forget(ctx context.Context, keys ...string) error {
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.log.Warn("cache forget failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}
