// Package apperrors define el formato de error que sale por HTTP y el
// catálogo de errores conocidos. El transporte decide el status; los
// servicios solo hablan en sentinels.
package apperrors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError es el error estándar de la API.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa original, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail retorna una COPIA con detalle extra; nunca muta los globales.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithCause retorna una COPIA con la causa adjunta.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// FromError normaliza cualquier error a AppError.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError serializa el error al ResponseWriter.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// Catálogo
var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud es inválida.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrWeakPassword = &AppError{
		Code:       "WEAK_PASSWORD",
		Message:    "El password no cumple la política.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrInvalidCode = &AppError{
		Code:       "INVALID_CODE",
		Message:    "El código es inválido.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrCodeExpired = &AppError{
		Code:       "CODE_EXPIRED",
		Message:    "El código expiró, pedí uno nuevo.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "No autorizado. Se requiere autenticación.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Las credenciales proporcionadas son inválidas.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrTokenInvalid = &AppError{
		Code:       "TOKEN_INVALID",
		Message:    "El token es inválido o está malformado.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrRefreshRejected = &AppError{
		Code:       "REFRESH_REJECTED",
		Message:    "El refresh token fue rechazado, iniciá sesión de nuevo.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "No tiene permisos para realizar esta acción.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrUserNotFound = &AppError{
		Code:       "USER_NOT_FOUND",
		Message:    "El usuario especificado no existe.",
		HTTPStatus: http.StatusNotFound,
	}
	ErrRouteNotFound = &AppError{
		Code:       "ROUTE_NOT_FOUND",
		Message:    "La ruta solicitada no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrUserExists = &AppError{
		Code:       "USER_EXISTS",
		Message:    "Ya existe una cuenta con ese email.",
		HTTPStatus: http.StatusConflict,
	}
	ErrAlreadyVerified = &AppError{
		Code:       "ALREADY_VERIFIED",
		Message:    "El email ya está verificado.",
		HTTPStatus: http.StatusConflict,
	}

	ErrThrottled = &AppError{
		Code:       "THROTTLED",
		Message:    "Demasiadas solicitudes, esperá antes de reintentar.",
		HTTPStatus: http.StatusTooManyRequests,
	}
	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Límite de solicitudes excedido.",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "Ocurrió un error interno.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
