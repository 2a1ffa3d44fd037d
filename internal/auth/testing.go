package auth

import "context"

// ContextWithSession adds a session to the context.
// Exported so handlers in other packages can be tested without the middleware.
func ContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}
