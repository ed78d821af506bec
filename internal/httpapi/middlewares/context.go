package middlewares

import (
	"context"

	"github.com/dropDatabas3/authkit/internal/auth"
)

type ctxKey string

const (
	ctxUserKey      ctxKey = "user"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithUser inyecta el usuario autenticado en el contexto.
func WithUser(ctx context.Context, u *auth.SafeUser) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

// UserFromContext recupera el usuario autenticado, si el middleware de
// authn corrió antes.
func UserFromContext(ctx context.Context) (*auth.SafeUser, bool) {
	u, ok := ctx.Value(ctxUserKey).(*auth.SafeUser)
	return u, ok
}

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, id)
}

// RequestIDFromContext recupera el request id.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestIDKey).(string)
	return id
}
