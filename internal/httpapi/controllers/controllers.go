package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dropDatabas3/authkit/internal/httpapi/apperrors"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.ErrBadRequest.WithDetail("cuerpo JSON inválido").WithCause(err)
	}
	return nil
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.From(r.Context()).Debug("encode response", logger.Err(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.ErrInternal.WithCause(err)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.From(r.Context()).Error("request failed", logger.Err(appErr))
	}
	apperrors.WriteError(w, appErr)
}
