package httpx

import (
	"context"

	domainauth "github.com/target/dispatch-api/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// SetSessionInContext returns a child context that carries the given session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetUserSessionFromContext returns the user session from context and a boolean indicating presence.
func GetUserSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	if session, ok := ctx.Value(sessionKey{}).(*domainauth.Session); ok && session != nil {
		return session, true
	}
	return nil, false
}

// ActorFromContext returns the actor behind the request. Requests without a
// session act as guests, which every role check rejects.
func ActorFromContext(ctx context.Context) domainauth.Actor {
	if s, ok := GetUserSessionFromContext(ctx); ok {
		return s.Actor()
	}
	return domainauth.Actor{Role: domainauth.RoleGuest}
}
