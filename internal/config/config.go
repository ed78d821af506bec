// Package config define la configuración process-wide de authkit.
//
// La configuración se arma UNA vez al inicio del proceso: se parte de
// Default(), se superpone lo que venga del YAML y del entorno (merge campo a
// campo, nunca reemplazo del grupo entero) y se publica con Init(). Después
// de eso es de solo lectura.
package config

import (
	"fmt"
	"strings"
	"time"
)

// JWT configura la emisión de access tokens.
type JWT struct {
	Secret    string
	Algorithm string // HS256 | HS384 | HS512
	ExpiresIn time.Duration
}

// RefreshToken configura la emisión y rotación de refresh tokens.
type RefreshToken struct {
	Secret    string
	ExpiresIn time.Duration
	// Rotation: "strict" (cada refresh invalida el anterior) o "lax"
	// (el jti anterior sigue vivo hasta su expiry: ventana de reuso
	// limitada para clientes con reintentos).
	Rotation       string
	ReuseDetection bool
}

// PasswordPolicy define los requisitos mínimos de password.
type PasswordPolicy struct {
	MinLength               int
	RequireNumbers          bool
	RequireSymbols          bool
	RequireUppercase        bool
	RequireLowercase        bool
	DisallowCommonPasswords bool
}

// RateLimit configura el rate limiting de los endpoints sensibles.
type RateLimit struct {
	Window        time.Duration
	Max           int
	BlockDuration time.Duration
}

// Session configura el transporte cookie del refresh token.
type Session struct {
	CookieName     string
	CookieSecure   bool
	CookieSameSite string // lax | strict | none
}

// Config agrupa toda la configuración reconocida.
type Config struct {
	JWT            JWT
	RefreshToken   RefreshToken
	PasswordPolicy PasswordPolicy
	RateLimit      RateLimit
	Session        Session
}

// Default retorna la configuración base documentada.
// Todo campo no seteado por el caller cae en estos valores.
func Default() Config {
	return Config{
		JWT: JWT{
			Algorithm: "HS256",
			ExpiresIn: 15 * time.Minute,
		},
		RefreshToken: RefreshToken{
			ExpiresIn:      7 * 24 * time.Hour,
			Rotation:       "strict",
			ReuseDetection: true,
		},
		PasswordPolicy: PasswordPolicy{
			MinLength:               8,
			RequireNumbers:          true,
			RequireUppercase:        true,
			RequireLowercase:        true,
			DisallowCommonPasswords: true,
		},
		RateLimit: RateLimit{
			Window:        time.Minute,
			Max:           60,
			BlockDuration: 15 * time.Minute,
		},
		Session: Session{
			CookieName:     "refresh_token",
			CookieSameSite: "lax",
		},
	}
}

// Merge superpone override sobre base, campo a campo dentro de cada grupo.
// Un valor cero en override nunca pisa al de base; los booleanos que
// defaultean a true usan el grupo entero como señal (ver abajo).
func Merge(base, override Config) Config {
	out := base

	// jwt
	if override.JWT.Secret != "" {
		out.JWT.Secret = override.JWT.Secret
	}
	if override.JWT.Algorithm != "" {
		out.JWT.Algorithm = override.JWT.Algorithm
	}
	if override.JWT.ExpiresIn != 0 {
		out.JWT.ExpiresIn = override.JWT.ExpiresIn
	}

	// refreshToken
	if override.RefreshToken.Secret != "" {
		out.RefreshToken.Secret = override.RefreshToken.Secret
	}
	if override.RefreshToken.ExpiresIn != 0 {
		out.RefreshToken.ExpiresIn = override.RefreshToken.ExpiresIn
	}
	if override.RefreshToken.Rotation != "" {
		out.RefreshToken.Rotation = override.RefreshToken.Rotation
		// ReuseDetection solo se toma del override cuando el grupo fue
		// tocado explícitamente; de lo contrario queda el default (on).
		out.RefreshToken.ReuseDetection = override.RefreshToken.ReuseDetection
	}

	// passwordPolicy: campo a campo, nunca el grupo entero. Los booleanos
	// solo se encienden acá; apagar uno que defaultea en true requiere el
	// tri-estado del YAML (ver Load), igual que reuse_detection.
	if override.PasswordPolicy.MinLength != 0 {
		out.PasswordPolicy.MinLength = override.PasswordPolicy.MinLength
	}
	if override.PasswordPolicy.RequireNumbers {
		out.PasswordPolicy.RequireNumbers = true
	}
	if override.PasswordPolicy.RequireSymbols {
		out.PasswordPolicy.RequireSymbols = true
	}
	if override.PasswordPolicy.RequireUppercase {
		out.PasswordPolicy.RequireUppercase = true
	}
	if override.PasswordPolicy.RequireLowercase {
		out.PasswordPolicy.RequireLowercase = true
	}
	if override.PasswordPolicy.DisallowCommonPasswords {
		out.PasswordPolicy.DisallowCommonPasswords = true
	}

	// rateLimit
	if override.RateLimit.Window != 0 {
		out.RateLimit.Window = override.RateLimit.Window
	}
	if override.RateLimit.Max != 0 {
		out.RateLimit.Max = override.RateLimit.Max
	}
	if override.RateLimit.BlockDuration != 0 {
		out.RateLimit.BlockDuration = override.RateLimit.BlockDuration
	}

	// session
	if override.Session.CookieName != "" {
		out.Session.CookieName = override.Session.CookieName
	}
	if override.Session.CookieSecure {
		out.Session.CookieSecure = true
	}
	if override.Session.CookieSameSite != "" {
		out.Session.CookieSameSite = override.Session.CookieSameSite
	}

	return out
}

var validAlgorithms = map[string]bool{"HS256": true, "HS384": true, "HS512": true}

// Validate verifica que la configuración sea usable para arrancar.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	if strings.TrimSpace(c.RefreshToken.Secret) == "" {
		return fmt.Errorf("config: refreshToken.secret is required")
	}
	if c.JWT.Secret == c.RefreshToken.Secret {
		return fmt.Errorf("config: jwt.secret and refreshToken.secret must differ")
	}
	if !validAlgorithms[c.JWT.Algorithm] {
		return fmt.Errorf("config: unsupported jwt.algorithm %q", c.JWT.Algorithm)
	}
	switch c.RefreshToken.Rotation {
	case "strict", "lax":
	default:
		return fmt.Errorf("config: unknown refreshToken.rotation %q", c.RefreshToken.Rotation)
	}
	switch strings.ToLower(c.Session.CookieSameSite) {
	case "lax", "strict", "none":
	default:
		return fmt.Errorf("config: unknown session.cookieSameSite %q", c.Session.CookieSameSite)
	}
	return nil
}
