package store

import "context"

// UserStore es el contrato de capacidades que el core consume. Las
// implementaciones varían (postgres, flat file, memoria) pero presentan
// semántica idéntica.
//
// Contrato de atomicidad: UpdateUser aplica el Patch completo como una
// operación atómica respecto de otros updates sobre el mismo id.
// Last-writer-wins NO alcanza para RefreshTokenIDs: el adapter aplica
// remove+add como un solo paso o serializa los updates por usuario.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByVerificationCode(ctx context.Context, code string) (*User, error)
	GetUserByResetCode(ctx context.Context, code string) (*User, error)

	// CreateUser persiste un usuario nuevo. Falla con ErrConflict si el
	// email ya existe.
	CreateUser(ctx context.Context, u *User) (*User, error)

	// UpdateUser aplica un patch atómico. Falla con ErrNotFound si el id
	// no existe. Retorna el registro resultante.
	UpdateUser(ctx context.Context, id string, p Patch) (*User, error)

	// DeleteUser elimina el registro. Retorna false si no existía.
	DeleteUser(ctx context.Context, id string) (bool, error)
}
