package controllers

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/authkit/internal/httpapi/apperrors"
	"github.com/dropDatabas3/authkit/internal/httpapi/dto"
	"github.com/dropDatabas3/authkit/internal/httpapi/middlewares"
	"github.com/dropDatabas3/authkit/internal/verify"
)

// VerifyController expone los flujos de verificación de email y reseteo de
// contraseña.
type VerifyController struct {
	svc *verify.Service
}

func NewVerifyController(svc *verify.Service) *VerifyController {
	return &VerifyController{svc: svc}
}

func mapVerifyErr(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, verify.ErrUserNotFound):
		return apperrors.ErrUserNotFound
	case errors.Is(err, verify.ErrAlreadyVerified):
		return apperrors.ErrAlreadyVerified
	case errors.Is(err, verify.ErrThrottled):
		return apperrors.ErrThrottled
	case errors.Is(err, verify.ErrInvalidCode):
		return apperrors.ErrInvalidCode
	case errors.Is(err, verify.ErrCodeExpired):
		return apperrors.ErrCodeExpired
	case errors.Is(err, verify.ErrWeakPassword):
		return apperrors.ErrWeakPassword.WithCause(err)
	default:
		return apperrors.ErrInternal.WithCause(err)
	}
}

// RequestVerification emite un código para el usuario autenticado y lo manda
// por email.
func (c *VerifyController) RequestVerification(w http.ResponseWriter, r *http.Request) {
	u, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		respondError(w, r, apperrors.ErrUnauthorized)
		return
	}
	if err := c.svc.RequestVerification(r.Context(), u.ID); err != nil {
		respondError(w, r, mapVerifyErr(err))
		return
	}
	respond(w, r, http.StatusAccepted, dto.MessageResponse{Message: "código de verificación enviado"})
}

func (c *VerifyController) ConfirmVerification(w http.ResponseWriter, r *http.Request) {
	u, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		respondError(w, r, apperrors.ErrUnauthorized)
		return
	}
	var req dto.ConfirmVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := c.svc.ConfirmVerification(r.Context(), u.ID, req.Code); err != nil {
		respondError(w, r, mapVerifyErr(err))
		return
	}
	respond(w, r, http.StatusOK, dto.MessageResponse{Message: "email verificado"})
}

// ForgotPassword inicia el reseteo. Responde 202 aunque el email no exista:
// no le confirmamos a un atacante qué cuentas están registradas.
func (c *VerifyController) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	err := c.svc.RequestReset(r.Context(), req.Email)
	switch {
	case err == nil, errors.Is(err, verify.ErrUserNotFound):
		// mismo cuerpo en ambos casos
	case errors.Is(err, verify.ErrThrottled):
		respondError(w, r, apperrors.ErrThrottled)
		return
	default:
		respondError(w, r, mapVerifyErr(err))
		return
	}
	respond(w, r, http.StatusAccepted, dto.MessageResponse{Message: "si el email existe, se envió un código"})
}

// ResetPassword consume el código y fija la nueva contraseña. El caso de uso
// revoca todas las sesiones del usuario en la misma escritura.
func (c *VerifyController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := c.svc.ConfirmReset(r.Context(), req.Code, req.NewPassword); err != nil {
		respondError(w, r, mapVerifyErr(err))
		return
	}
	respond(w, r, http.StatusOK, dto.MessageResponse{Message: "contraseña actualizada"})
}
