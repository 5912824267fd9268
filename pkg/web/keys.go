package web

import "context"

type userIDKey struct{}

// WithUserID adds the authenticated user's ID to the context.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserID retrieves the authenticated user's ID from the context.
// Returns the ID and a boolean indicating whether it was found.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	return id, ok
}
