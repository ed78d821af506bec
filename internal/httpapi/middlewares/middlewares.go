// Package middlewares: la cadena estándar de la API (request log, recover,
// rate limit, authn).
package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authkit/internal/auth"
	"github.com/dropDatabas3/authkit/internal/httpapi/apperrors"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/rate"
)

type Middleware func(http.Handler) http.Handler

// WithRequestLog genera un request id, lo inyecta junto con un logger
// contextual y loguea el request completo al terminar.
func WithRequestLog() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-Id")
			if reqID == "" {
				reqID = uuid.NewString()
			}

			log := logger.L().With(logger.RequestID(reqID))
			ctx := setRequestID(r.Context(), reqID)
			ctx = logger.ToContext(ctx, log)

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			ww.Header().Set("X-Request-Id", reqID)

			next.ServeHTTP(ww, r.WithContext(ctx))

			log.Info("http_request",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.Status(ww.status),
				logger.Duration(time.Since(start)),
				logger.ClientIP(clientIP(r)),
			)
		})
	}
}

// WithRecover captura panics y responde 500 en vez de tumbar el proceso.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Op("recover"),
						logger.Any("panic", rec),
					)
					apperrors.WriteError(w, apperrors.ErrInternal.WithDetail("panic recovered"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WithRateLimit aplica el limiter por IP y por ruta: la misma IP no
// comparte ventana entre endpoints. Un limiter nil deshabilita el
// middleware (dev). Se monta por ruta sensible, no global.
func WithRateLimit(l rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), "ip:"+clientIP(r)+":"+r.URL.Path)
			if err != nil {
				// El limiter caído no bloquea el tráfico; queda en el log.
				logger.From(r.Context()).Error("rate limiter failed", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", formatSeconds(res.RetryAfter))
				}
				apperrors.WriteError(w, apperrors.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithAuth exige un access token Bearer válido y deja el SafeUser en el
// contexto para los handlers.
func WithAuth(svc *auth.Service) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				apperrors.WriteError(w, apperrors.ErrUnauthorized)
				return
			}
			u, err := svc.UserFromAccessToken(r.Context(), raw)
			if err != nil {
				apperrors.WriteError(w, apperrors.ErrTokenInvalid)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireAdmin corre después de WithAuth y exige rol admin.
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok || u.Role != "admin" {
				apperrors.WriteError(w, apperrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Chain aplica los middlewares en orden: el primero es el más externo.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func formatSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
