// Package pg implementa store.UserStore sobre postgres (pgx/v5).
package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authkit/internal/store"
)

type Store struct{ pool *pgxpool.Pool }

// Config de tuning opcional del pool.
type Config struct {
	MaxOpenConns    int
	MinConns        int
	ConnMaxLifetime time.Duration
}

func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 5
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (metrics/migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

var _ store.UserStore = (*Store)(nil)

const userColumns = `id, name, email, password_hash, role, is_verified,
	refresh_token_ids, verification_code, verification_code_expiry,
	reset_code, reset_code_expiry, created_at`

func scanUser(row pgx.Row) (*store.User, error) {
	var (
		u          store.User
		role       string
		verCode    *string
		verExpiry  *time.Time
		rstCode    *string
		rstExpiry  *time.Time
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role,
		&u.IsVerified, &u.RefreshTokenIDs, &verCode, &verExpiry,
		&rstCode, &rstExpiry, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	u.Role = store.Role(role)
	if verCode != nil {
		u.VerificationCode = *verCode
	}
	if verExpiry != nil {
		u.VerificationCodeExpiry = *verExpiry
	}
	if rstCode != nil {
		u.ResetCode = *rstCode
	}
	if rstExpiry != nil {
		u.ResetCodeExpiry = *rstExpiry
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(s.pool.QueryRow(ctx, q, strings.TrimSpace(email)))
}

func (s *Store) GetUserByVerificationCode(ctx context.Context, code string) (*store.User, error) {
	if code == "" {
		return nil, store.ErrNotFound
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE verification_code = $1`
	return scanUser(s.pool.QueryRow(ctx, q, code))
}

func (s *Store) GetUserByResetCode(ctx context.Context, code string) (*store.User, error) {
	if code == "" {
		return nil, store.ErrNotFound
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE reset_code = $1`
	return scanUser(s.pool.QueryRow(ctx, q, code))
}

func (s *Store) CreateUser(ctx context.Context, u *store.User) (*store.User, error) {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return nil, store.ErrInvalid
	}
	cp := u.Clone()
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.Role == "" {
		cp.Role = store.RoleUser
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	if cp.RefreshTokenIDs == nil {
		cp.RefreshTokenIDs = []string{}
	}

	const q = `
		INSERT INTO users (id, name, email, password_hash, role, is_verified,
			refresh_token_ids, verification_code, verification_code_expiry,
			reset_code, reset_code_expiry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8,''), $9, NULLIF($10,''), $11, $12)`

	_, err := s.pool.Exec(ctx, q, cp.ID, cp.Name, cp.Email, cp.PasswordHash,
		string(cp.Role), cp.IsVerified, cp.RefreshTokenIDs,
		cp.VerificationCode, nullTime(cp.VerificationCodeExpiry),
		cp.ResetCode, nullTime(cp.ResetCodeExpiry), cp.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return cp, nil
}

// UpdateUser arma un solo UPDATE con todos los campos del patch. Para el set
// de jtis la difference y la union se computan dentro de la misma sentencia:
// la fila se muta una sola vez, sin read-modify-write del lado del cliente.
func (s *Store) UpdateUser(ctx context.Context, id string, p store.Patch) (*store.User, error) {
	sets := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Name != nil {
		sets = append(sets, "name = "+arg(*p.Name))
	}
	if p.PasswordHash != nil {
		sets = append(sets, "password_hash = "+arg(*p.PasswordHash))
	}
	if p.Role != nil {
		sets = append(sets, "role = "+arg(string(*p.Role)))
	}
	if p.IsVerified != nil {
		sets = append(sets, "is_verified = "+arg(*p.IsVerified))
	}
	if p.VerificationCode != nil {
		sets = append(sets, "verification_code = NULLIF("+arg(*p.VerificationCode)+", '')")
	}
	if p.VerificationCodeExpiry != nil {
		sets = append(sets, "verification_code_expiry = "+arg(nullTime(*p.VerificationCodeExpiry)))
	}
	if p.ResetCode != nil {
		sets = append(sets, "reset_code = NULLIF("+arg(*p.ResetCode)+", '')")
	}
	if p.ResetCodeExpiry != nil {
		sets = append(sets, "reset_code_expiry = "+arg(nullTime(*p.ResetCodeExpiry)))
	}

	switch {
	case p.ClearRefreshTokenIDs:
		sets = append(sets, "refresh_token_ids = '{}'")
	case len(p.AddRefreshTokenIDs) > 0 || len(p.RemoveRefreshTokenIDs) > 0:
		add := p.AddRefreshTokenIDs
		if add == nil {
			add = []string{}
		}
		rem := p.RemoveRefreshTokenIDs
		if rem == nil {
			rem = []string{}
		}
		expr := fmt.Sprintf(`refresh_token_ids = (
			SELECT COALESCE(array_agg(DISTINCT x), '{}')
			FROM unnest(refresh_token_ids || %s::text[]) AS x
			WHERE NOT (x = ANY(%s::text[])))`, arg(add), arg(rem))
		sets = append(sets, expr)
	}

	if len(sets) == 0 {
		// patch vacío: devolver el registro tal cual
		return s.GetUserByID(ctx, id)
	}

	q := "UPDATE users SET " + strings.Join(sets, ", ") +
		" WHERE id = " + arg(id) + " RETURNING " + userColumns
	u, err := scanUser(s.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
