// Package httpapi arma el router y el servidor HTTP de authkit.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authkit/internal/auth"
	"github.com/dropDatabas3/authkit/internal/cache"
	"github.com/dropDatabas3/authkit/internal/config"
	"github.com/dropDatabas3/authkit/internal/httpapi/apperrors"
	"github.com/dropDatabas3/authkit/internal/httpapi/controllers"
	"github.com/dropDatabas3/authkit/internal/httpapi/middlewares"
	"github.com/dropDatabas3/authkit/internal/metrics"
	"github.com/dropDatabas3/authkit/internal/rate"
	"github.com/dropDatabas3/authkit/internal/verify"
)

// RouterDeps junta todo lo que el router necesita. Limiter puede ser nil
// (rate limiting apagado) y Cache también (healthz no chequea nada extra).
type RouterDeps struct {
	Auth    *auth.Service
	Verify  *verify.Service
	Session config.Session
	Limiter rate.Limiter
	Cache   cache.Client
}

// NewRouter monta la API v1:
//
//	POST /api/v1/auth/register
//	POST /api/v1/auth/login
//	POST /api/v1/auth/refresh
//	POST /api/v1/auth/logout
//	POST /api/v1/auth/forgot-password
//	POST /api/v1/auth/reset-password
//	GET  /api/v1/auth/me              (Bearer)
//	POST /api/v1/auth/logout-all      (Bearer)
//	POST /api/v1/auth/verify/request  (Bearer)
//	POST /api/v1/auth/verify/confirm  (Bearer)
//	GET  /healthz
//	GET  /metrics
func NewRouter(deps RouterDeps) http.Handler {
	authCtl := controllers.NewAuthController(deps.Auth, deps.Session)
	verifyCtl := controllers.NewVerifyController(deps.Verify)
	adminCtl := controllers.NewAdminController(deps.Auth)

	// idempotente: los tests levantan varios routers en el mismo proceso
	_ = metrics.Register(nil)

	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.WriteError(w, apperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.WriteError(w, apperrors.ErrBadRequest.WithDetail("método no permitido"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if deps.Cache != nil {
			if err := deps.Cache.Ping(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded","cache":"down"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	requireAuth := middlewares.WithAuth(deps.Auth)
	// Solo las rutas que cuestan algo (credenciales, emails, rotaciones)
	// pagan limiter; cada una con su propia ventana por IP.
	limited := middlewares.WithRateLimit(deps.Limiter)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(limited).Post("/register", authCtl.Register)
		r.With(limited).Post("/login", authCtl.Login)
		r.With(limited).Post("/refresh", authCtl.Refresh)
		r.Post("/logout", authCtl.Logout)
		r.With(limited).Post("/forgot-password", verifyCtl.ForgotPassword)
		r.With(limited).Post("/reset-password", verifyCtl.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authCtl.Me)
			r.Post("/logout-all", authCtl.LogoutAll)
			r.With(limited).Post("/verify/request", verifyCtl.RequestVerification)
			r.Post("/verify/confirm", verifyCtl.ConfirmVerification)
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(requireAuth, middlewares.RequireAdmin())
		r.Delete("/users/{id}", adminCtl.DeleteUser)
	})

	return middlewares.Chain(r,
		middlewares.WithRequestLog(),
		middlewares.WithRecover(),
	)
}
