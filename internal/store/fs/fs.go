// Package fs implementa store.UserStore sobre un archivo JSON plano.
// Pensado para instalaciones chicas y para desarrollo sin base de datos.
//
// Todo el estado vive en un solo archivo (users.json) reescrito de forma
// atómica en cada mutación. Un solo mutex cubre lectura y escritura: la
// atomicidad del Patch sale gratis, a costa de throughput — para eso está
// el adapter de postgres.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authkit/internal/store"
	"github.com/dropDatabas3/authkit/internal/util/atomicwrite"
)

const usersFile = "users.json"

type Store struct {
	mu   sync.Mutex
	path string
}

// New abre (o crea) el directorio de datos y valida que el archivo sea
// parseable si ya existe.
func New(root string) (*Store, error) {
	if root == "" {
		root = "data"
	}
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(root, 0755); mkErr != nil {
				return nil, fmt.Errorf("fs: failed to create root path %s: %w", root, mkErr)
			}
		} else {
			return nil, fmt.Errorf("fs: root path error: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("fs: root path is not a directory: %s", root)
	}

	s := &Store{path: filepath.Join(root, usersFile)}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var _ store.UserStore = (*Store)(nil)

type fileDoc struct {
	Users []*store.User `json:"users"`
}

func (s *Store) load() (*fileDoc, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileDoc{}, nil
		}
		return nil, fmt.Errorf("fs: read %s: %w", s.path, err)
	}
	var doc fileDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("fs: parse %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *Store) save(doc *fileDoc) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("fs: marshal users: %w", err)
	}
	return atomicwrite.Write(s.path, b, 0600)
}

func (s *Store) find(doc *fileDoc, match func(*store.User) bool) *store.User {
	for _, u := range doc.Users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (s *Store) getBy(match func(*store.User) bool) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if u := s.find(doc, match); u != nil {
		return u.Clone(), nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.getBy(func(u *store.User) bool { return u.ID == id })
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	want := normalize(email)
	return s.getBy(func(u *store.User) bool { return normalize(u.Email) == want })
}

func (s *Store) GetUserByVerificationCode(ctx context.Context, code string) (*store.User, error) {
	if code == "" {
		return nil, store.ErrNotFound
	}
	return s.getBy(func(u *store.User) bool { return u.VerificationCode == code })
}

func (s *Store) GetUserByResetCode(ctx context.Context, code string) (*store.User, error) {
	if code == "" {
		return nil, store.ErrNotFound
	}
	return s.getBy(func(u *store.User) bool { return u.ResetCode == code })
}

func (s *Store) CreateUser(ctx context.Context, u *store.User) (*store.User, error) {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return nil, store.ErrInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	want := normalize(u.Email)
	if existing := s.find(doc, func(x *store.User) bool { return normalize(x.Email) == want }); existing != nil {
		return nil, store.ErrConflict
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
	doc.Users = append(doc.Users, cp)
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return cp.Clone(), nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, p store.Patch) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i, u := range doc.Users {
		if u.ID == id {
			updated := store.Apply(u, p)
			doc.Users[i] = updated
			if err := s.save(doc); err != nil {
				return nil, err
			}
			return updated.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) DeleteUser(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return false, err
	}
	for i, u := range doc.Users {
		if u.ID == id {
			doc.Users = append(doc.Users[:i], doc.Users[i+1:]...)
			if err := s.save(doc); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
