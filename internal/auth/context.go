// Package auth carries the acting user through request contexts and
// implements the parent PIN gate. Authentication itself (who the user is)
// is an external concern; callers hand us an already-authenticated
// identity.
package auth

import "context"

type contextKey struct{}

// Actor identifies who is performing a request: the authenticated user id
// and which screen mode they unlocked.
type Actor struct {
	UserID string
	Mode   string // "parent" or "child"
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}

// UserID returns the acting user's id, or "" when no actor is attached.
func UserID(ctx context.Context) string {
	a, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return a.UserID
}

// IsParent reports whether the request unlocked the parent screen mode.
func IsParent(ctx context.Context) bool {
	a, ok := FromContext(ctx)
	return ok && a.Mode == "parent"
}
