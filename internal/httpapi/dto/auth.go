// Package dto define los cuerpos de request y response de la API.
package dto

import (
	"time"

	"github.com/dropDatabas3/authkit/internal/auth"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse es la respuesta de register/login/refresh. El refresh token
// viaja en cookie httpOnly; solo se repite en el body si la API se usa sin
// navegador (clientes que mandan Accept-Refresh-In-Body).
type TokenResponse struct {
	User         auth.SafeUser `json:"user"`
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	RefreshToken string        `json:"refresh_token,omitempty"`
}

func NewTokenResponse(r *auth.Result, includeRefresh bool) TokenResponse {
	out := TokenResponse{
		User:        r.User,
		AccessToken: r.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(r.AccessExpiresAt).Seconds()),
	}
	if includeRefresh {
		out.RefreshToken = r.RefreshToken
	}
	return out
}

type ConfirmVerificationRequest struct {
	Code string `json:"code"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
