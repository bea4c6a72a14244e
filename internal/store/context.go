package store

import "context"

// storeContextKey carries a *Store through request and command contexts.
type storeContextKey struct{}

// WithStore attaches s to ctx.
func WithStore(ctx context.Context, s *Store) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, storeContextKey{}, s)
}

// FromContext returns the store attached to ctx, if any.
func FromContext(ctx context.Context) (*Store, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(storeContextKey{}).(*Store)
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}

// MustFromContext returns the attached store and panics when none was attached.
// A missing store is a wiring bug, not a runtime condition.
func MustFromContext(ctx context.Context) *Store {
	s, ok := FromContext(ctx)
	if !ok {
		panic("store: no Store in context; attach one with store.WithStore")
	}
	return s
}
