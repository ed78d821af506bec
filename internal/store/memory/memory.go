// Package memory implementa store.UserStore en memoria.
// Útil para desarrollo y testing; es la implementación de referencia de la
// semántica del contrato (en particular la atomicidad del Patch).
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authkit/internal/store"
)

type Store struct {
	mu    sync.RWMutex
	users map[string]*store.User // id -> user
}

func New() *Store {
	return &Store{users: make(map[string]*store.User)}
}

var _ store.UserStore = (*Store)(nil)

func (s *Store) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	email = normalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if normalizeEmail(u.Email) == email {
			return u.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByVerificationCode(ctx context.Context, code string) (*store.User, error) {
	if code == "" {
		return nil, store.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.VerificationCode == code {
			return u.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByResetCode(ctx context.Context, code string) (*store.User, error) {
	if code == "" {
		return nil, store.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ResetCode == code {
			return u.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(ctx context.Context, u *store.User) (*store.User, error) {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return nil, store.ErrInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(u.Email)
	for _, existing := range s.users {
		if normalizeEmail(existing.Email) == email {
			return nil, store.ErrConflict
		}
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
	s.users[cp.ID] = cp
	return cp.Clone(), nil
}

// UpdateUser aplica el patch bajo el lock de escritura: lectura, Apply y
// escritura son un solo paso respecto de cualquier otro update.
func (s *Store) UpdateUser(ctx context.Context, id string, p store.Patch) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	updated := store.Apply(u, p)
	s.users[id] = updated
	return updated.Clone(), nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false, nil
	}
	delete(s.users, id)
	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
