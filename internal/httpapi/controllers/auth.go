// Package controllers adapta los casos de uso a HTTP: decodifica requests,
// mapea errores de dominio a AppError y maneja el transporte del refresh
// token (cookie httpOnly por defecto).
package controllers

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/authkit/internal/auth"
	"github.com/dropDatabas3/authkit/internal/config"
	"github.com/dropDatabas3/authkit/internal/httpapi/apperrors"
	"github.com/dropDatabas3/authkit/internal/httpapi/dto"
	"github.com/dropDatabas3/authkit/internal/httpapi/middlewares"
)

// AuthController expone register/login/refresh/logout/me.
type AuthController struct {
	svc  *auth.Service
	sess config.Session
}

func NewAuthController(svc *auth.Service, sess config.Session) *AuthController {
	return &AuthController{svc: svc, sess: sess}
}

// mapAuthErr traduce sentinelas del dominio a errores HTTP. Los que no
// reconoce caen en 500.
func mapAuthErr(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		return apperrors.ErrBadRequest.WithDetail("name, email y password son obligatorios")
	case errors.Is(err, auth.ErrWeakPassword):
		return apperrors.ErrWeakPassword.WithCause(err)
	case errors.Is(err, auth.ErrUserExists):
		return apperrors.ErrUserExists
	case errors.Is(err, auth.ErrUserNotFound):
		return apperrors.ErrUserNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperrors.ErrInvalidCredentials
	case errors.Is(err, auth.ErrRefreshRejected):
		return apperrors.ErrRefreshRejected
	case errors.Is(err, auth.ErrInvalidToken):
		return apperrors.ErrTokenInvalid
	default:
		return apperrors.ErrInternal.WithCause(err)
	}
}

func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := c.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(w, r, mapAuthErr(err))
		return
	}
	setRefreshCookie(w, c.sess, res.RefreshToken, res.RefreshExpiresAt)
	respond(w, r, http.StatusCreated, dto.NewTokenResponse(res, wantsRefreshInBody(r)))
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := c.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, mapAuthErr(err))
		return
	}
	setRefreshCookie(w, c.sess, res.RefreshToken, res.RefreshExpiresAt)
	respond(w, r, http.StatusOK, dto.NewTokenResponse(res, wantsRefreshInBody(r)))
}

// Refresh rota el refresh token. Un token reusado o desconocido limpia la
// cookie: la sesión del cliente quedó comprometida o ya no existe.
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := refreshFromRequest(r, c.sess)
	if raw == "" {
		respondError(w, r, apperrors.ErrRefreshRejected.WithDetail("no hay refresh token"))
		return
	}
	res, err := c.svc.Refresh(r.Context(), raw)
	if err != nil {
		clearRefreshCookie(w, c.sess)
		respondError(w, r, mapAuthErr(err))
		return
	}
	setRefreshCookie(w, c.sess, res.RefreshToken, res.RefreshExpiresAt)
	respond(w, r, http.StatusOK, dto.NewTokenResponse(res, wantsRefreshInBody(r)))
}

// Logout invalida el refresh actual y limpia la cookie. Idempotente: sin
// cookie o con token basura igual responde 200.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if raw := refreshFromRequest(r, c.sess); raw != "" {
		if err := c.svc.Logout(r.Context(), raw); err != nil {
			respondError(w, r, mapAuthErr(err))
			return
		}
	}
	clearRefreshCookie(w, c.sess)
	respond(w, r, http.StatusOK, dto.MessageResponse{Message: "sesión cerrada"})
}

// LogoutAll revoca todas las sesiones del usuario autenticado.
func (c *AuthController) LogoutAll(w http.ResponseWriter, r *http.Request) {
	u, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		respondError(w, r, apperrors.ErrUnauthorized)
		return
	}
	if err := c.svc.LogoutAll(r.Context(), u.ID); err != nil {
		respondError(w, r, mapAuthErr(err))
		return
	}
	clearRefreshCookie(w, c.sess)
	respond(w, r, http.StatusOK, dto.MessageResponse{Message: "todas las sesiones revocadas"})
}

// Me devuelve el usuario del access token.
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		respondError(w, r, apperrors.ErrUnauthorized)
		return
	}
	respond(w, r, http.StatusOK, u)
}
