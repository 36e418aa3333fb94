// Package kv provides the durable key-value capability the snapshot cache
// persists into. Implementations must be safe for concurrent use.
package kv

import "context"

// Store is a minimal string-keyed byte store. Get reports presence
// separately from failure so a miss is never an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Prefixed returns a view of store with every key prefixed. It lets several
// per-user caches share one backing store without colliding.
func Prefixed(store Store, prefix string) Store {
	return &prefixed{store: store, prefix: prefix}
}

type prefixed struct {
	store  Store
	prefix string
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.store.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.store.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.store.Delete(ctx, p.prefix+key)
}
