package store

import "time"

// Role del usuario. El chequeo de autorización es una comparación simple.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User es el registro persistido que el core referencia por ID.
//
// RefreshTokenIDs es el set de identificadores opacos (jti) vigentes para el
// usuario: un refresh token es válido sii su jti está acá Y la firma/expiry
// del token en sí pasan. El orden de inserción no importa.
//
// Invariante: a lo sumo un verification code y un reset code activos por
// usuario; un code consumido se limpia, no se marca usado.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`

	RefreshTokenIDs []string `json:"refresh_token_ids,omitempty"`

	VerificationCode       string    `json:"verification_code,omitempty"`
	VerificationCodeExpiry time.Time `json:"verification_code_expiry,omitempty"`
	ResetCode              string    `json:"reset_code,omitempty"`
	ResetCodeExpiry        time.Time `json:"reset_code_expiry,omitempty"`
}

// Clone devuelve una copia profunda (el slice de jtis no se comparte).
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.RefreshTokenIDs != nil {
		cp.RefreshTokenIDs = append([]string(nil), u.RefreshTokenIDs...)
	}
	return &cp
}

// HasRefreshTokenID reporta si jti está en el set activo.
func (u *User) HasRefreshTokenID(jti string) bool {
	for _, id := range u.RefreshTokenIDs {
		if id == jti {
			return true
		}
	}
	return false
}

// Patch describe una mutación parcial de un User. Los punteros nil significan
// "no tocar". Para el set de refresh tokens hay operaciones explícitas de
// set-difference-then-union que el adapter DEBE aplicar como una sola
// escritura atómica por registro: dos Rotate concurrentes sobre el mismo
// usuario no pueden partir del mismo estado pre-rotación.
type Patch struct {
	Name         *string
	PasswordHash *string
	Role         *Role
	IsVerified   *bool

	VerificationCode       *string // puntero a "" limpia el code
	VerificationCodeExpiry *time.Time
	ResetCode              *string
	ResetCodeExpiry        *time.Time

	AddRefreshTokenIDs    []string
	RemoveRefreshTokenIDs []string
	ClearRefreshTokenIDs  bool
}

// IsZero reporta si el patch no muta nada.
func (p Patch) IsZero() bool {
	return p.Name == nil && p.PasswordHash == nil && p.Role == nil &&
		p.IsVerified == nil && p.VerificationCode == nil &&
		p.VerificationCodeExpiry == nil && p.ResetCode == nil &&
		p.ResetCodeExpiry == nil && len(p.AddRefreshTokenIDs) == 0 &&
		len(p.RemoveRefreshTokenIDs) == 0 && !p.ClearRefreshTokenIDs
}
