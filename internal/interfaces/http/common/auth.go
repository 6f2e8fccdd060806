package common

import (
	"context"

	"github.com/beanscene/api/internal/public/domain"
)

type contextKey string

const sessionContextKey contextKey = "session"

// ContextWithSession stores the request's session into context.
func ContextWithSession(ctx context.Context, session domain.SessionContext) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext extracts the session. Requests that passed no auth
// middleware get an anonymous session and false.
func SessionFromContext(ctx context.Context) (domain.SessionContext, bool) {
	session, ok := ctx.Value(sessionContextKey).(domain.SessionContext)
	return session, ok
}
