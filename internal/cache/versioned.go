package cache

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

type versioned[T any] struct {
	version uint64
	value   T
}

// Versioned is a read-through cache invalidated by Bump. Concurrent loads of
// the same key at the same version share one call.
type Versioned[T any] struct {
	version atomic.Uint64
	lru     *LRUCache[versioned[T]]
	group   singleflight.Group
}

func NewVersioned[T any](maxSize int, ttl time.Duration) *Versioned[T] {
	return &Versioned[T]{lru: NewLRUCache[versioned[T]](maxSize, ttl)}
}

// Version returns the current data version.
func (v *Versioned[T]) Version() uint64 {
	return v.version.Load()
}

// Bump marks every cached value stale.
func (v *Versioned[T]) Bump() uint64 {
	next := v.version.Add(1)
	v.lru.Purge()
	return next
}

// GetOrLoad returns the cached value for key when it was computed at the
// current version, otherwise calls load and caches its result. Load errors are
// not cached.
func (v *Versioned[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	current := v.version.Load()
	if e, ok := v.lru.Get(key); ok && e.version == current {
		return e.value, nil
	}

	res, err, _ := v.group.Do(key+"@"+strconv.FormatUint(current, 10), func() (interface{}, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		// a Bump during load leaves the result uncached
		if v.version.Load() == current {
			v.lru.Set(key, versioned[T]{version: current, value: value})
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// CleanExpired lets a Manager prune the underlying LRU.
func (v *Versioned[T]) CleanExpired() int {
	return v.lru.CleanExpired()
}

func (v *Versioned[T]) Size() int {
	return v.lru.Size()
}
