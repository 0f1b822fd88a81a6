package tokenstore

import "context"

type storeKey struct{}

// WithStore binds a store to ctx. Scoped stores resolve to it.
func WithStore(ctx context.Context, store TokenStore) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// FromContext returns the store bound to ctx, if any.
func FromContext(ctx context.Context) (TokenStore, bool) {
	store, ok := ctx.Value(storeKey{}).(TokenStore)
	return store, ok && store != nil
}

// Scoped delegates every call to the store bound to the request context and
// falls back to a default store otherwise.
//
// It lets a single API client serve many browser sessions: the web site binds a
// per-request Memory store seeded from the token cookie.
type Scoped struct {
	fallback TokenStore
}

// NewScoped creates a Scoped store. A nil fallback behaves like an empty store.
func NewScoped(fallback TokenStore) *Scoped {
	if fallback == nil {
		fallback = NewMemory()
	}
	return &Scoped{fallback: fallback}
}

func (s *Scoped) resolve(ctx context.Context) TokenStore {
	if store, ok := FromContext(ctx); ok {
		return store
	}
	return s.fallback
}

// Get reads from the context store.
func (s *Scoped) Get(ctx context.Context) (string, error) {
	return s.resolve(ctx).Get(ctx)
}

// Set writes to the context store.
func (s *Scoped) Set(ctx context.Context, token string) error {
	return s.resolve(ctx).Set(ctx, token)
}

// Clear clears the context store.
func (s *Scoped) Clear(ctx context.Context) error {
	return s.resolve(ctx).Clear(ctx)
}
