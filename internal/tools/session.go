package tools

import "context"

type sessionKey struct{}

// SessionUser is the authenticated user a conversation runs for.
type SessionUser struct {
	ID    int64
	Email string
}

func WithSessionUser(ctx context.Context, u SessionUser) context.Context {
	return context.WithValue(ctx, sessionKey{}, u)
}

func SessionUserFrom(ctx context.Context) (SessionUser, bool) {
	u, ok := ctx.Value(sessionKey{}).(SessionUser)
	return u, ok && u.ID > 0
}
