// Package auth orquesta los casos de uso de autenticación: register, login,
// refresh y logout. Es el único lugar donde el UserStore y el servicio de
// sesión se tocan juntos.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authkit/internal/audit"
	"github.com/dropDatabas3/authkit/internal/metrics"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/security/password"
	"github.com/dropDatabas3/authkit/internal/session"
	"github.com/dropDatabas3/authkit/internal/store"
)

// Errores de los casos de uso
var (
	ErrMissingFields      = fmt.Errorf("missing required fields")
	ErrUserExists         = fmt.Errorf("email already registered")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrWeakPassword       = fmt.Errorf("password does not meet policy")
	ErrInvalidToken       = fmt.Errorf("invalid token")
	// ErrRefreshRejected: cualquier falla del rotate sale con este error
	// hacia el caller. El detalle queda en los logs, no en la respuesta.
	ErrRefreshRejected = fmt.Errorf("refresh rejected")
)

// SafeUser es la vista del usuario que sale hacia los callers: nunca incluye
// hash, códigos ni el set de jtis.
type SafeUser struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       store.Role `json:"role"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  time.Time  `json:"created_at"`
}

func safeView(u *store.User) SafeUser {
	return SafeUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// Result es la salida de los casos de uso que emiten tokens. El transporte
// (cookie, header, body) lo decide el caller.
type Result struct {
	User             SafeUser
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Hooks son extension points invocados SOLO en éxito, sincrónicos y
// best-effort: un hook que falla o panickea no voltea el caso de uso.
type Hooks struct {
	OnRegister func(ctx context.Context, u SafeUser)
	OnLogin    func(ctx context.Context, u SafeUser)
	OnRefresh  func(ctx context.Context, u SafeUser)
	OnLogout   func(ctx context.Context)
}

func runHook(ctx context.Context, name string, fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.From(ctx).Error("auth hook panicked",
				logger.Layer("service"), logger.Component("auth"),
				zap.String("hook", name), zap.Any("panic", r))
		}
	}()
	fn()
}

// Deps contiene las dependencias del orquestador.
type Deps struct {
	Store    store.UserStore
	Sessions *session.Service
	Policy   password.Policy
	Hash     password.Params
	Hooks    Hooks
}

type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	if deps.Hash.KeyLen == 0 {
		deps.Hash = password.DefaultParams
	}
	return &Service{deps: deps}
}

func (s *Service) issuePair(ctx context.Context, u *store.User) (*Result, error) {
	access, accessExp, err := s.deps.Sessions.IssueAccessToken(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.deps.Sessions.IssueRefreshToken(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Result{
		User:             safeView(u),
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Register crea el usuario y emite el primer par de tokens.
func (s *Service) Register(ctx context.Context, name, emailAddr, plainPassword string) (*Result, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Register"),
	)

	name = strings.TrimSpace(name)
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if name == "" || emailAddr == "" || plainPassword == "" {
		return nil, ErrMissingFields
	}

	if ok, reasons := s.deps.Policy.Validate(plainPassword); !ok {
		log.Debug("password rejected by policy", zap.Strings("reasons", reasons))
		return nil, ErrWeakPassword
	}

	hash, err := password.Hash(s.deps.Hash, plainPassword)
	if err != nil {
		return nil, err
	}

	u, err := s.deps.Store.CreateUser(ctx, &store.User{
		Name:         name,
		Email:        emailAddr,
		PasswordHash: hash,
		Role:         store.RoleUser,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Debug("email already taken")
			return nil, ErrUserExists
		}
		return nil, err
	}
	log = log.With(logger.UserID(u.ID))

	res, err := s.issuePair(ctx, u)
	if err != nil {
		log.Error("failed to issue initial tokens", logger.Err(err))
		return nil, err
	}

	metrics.Registrations.Inc()
	audit.Log(ctx, audit.EventUserRegistered, logger.UserID(u.ID))
	if hook := s.deps.Hooks.OnRegister; hook != nil {
		runHook(ctx, "OnRegister", func() { hook(ctx, res.User) })
	}
	log.Info("user registered")
	return res, nil
}

// Login valida credenciales y emite un par de tokens nuevo. El hash compara
// en tiempo constante; que el error distinga "no existe" de "password mala"
// es un trade-off aceptado de usabilidad, no un descuido.
func (s *Service) Login(ctx context.Context, emailAddr, plainPassword string) (*Result, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Login"),
	)

	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if emailAddr == "" || plainPassword == "" {
		return nil, ErrMissingFields
	}

	u, err := s.deps.Store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.Logins.WithLabelValues("bad_credentials").Inc()
			log.Debug("user not found")
			return nil, ErrUserNotFound
		}
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, err
	}
	log = log.With(logger.UserID(u.ID))

	if !password.Verify(plainPassword, u.PasswordHash) {
		metrics.Logins.WithLabelValues("bad_credentials").Inc()
		audit.Log(ctx, audit.EventUserLoginFailed, logger.UserID(u.ID))
		log.Debug("password check failed")
		return nil, ErrInvalidCredentials
	}

	res, err := s.issuePair(ctx, u)
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		log.Error("failed to issue tokens", logger.Err(err))
		return nil, err
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	audit.Log(ctx, audit.EventUserLogin, logger.UserID(u.ID))
	if hook := s.deps.Hooks.OnLogin; hook != nil {
		runHook(ctx, "OnLogin", func() { hook(ctx, res.User) })
	}
	log.Info("login successful")
	return res, nil
}

// Refresh rota el refresh token y emite un access nuevo. Toda falla de la
// rotación colapsa en ErrRefreshRejected.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*Result, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Refresh"),
	)

	u, newRefresh, refreshExp, err := s.deps.Sessions.Rotate(ctx, rawRefresh)
	if err != nil {
		if errors.Is(err, session.ErrReuseOrUnknown) {
			audit.Log(ctx, audit.EventTokenReuseDetected)
		}
		log.Debug("rotation failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrRefreshRejected, err)
	}
	log = log.With(logger.UserID(u.ID))

	access, accessExp, err := s.deps.Sessions.IssueAccessToken(ctx, u.ID)
	if err != nil {
		log.Error("failed to issue access token", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrRefreshRejected, err)
	}

	res := &Result{
		User:             safeView(u),
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     newRefresh,
		RefreshExpiresAt: refreshExp,
	}
	audit.Log(ctx, audit.EventTokenRotated, logger.UserID(u.ID))
	if hook := s.deps.Hooks.OnRefresh; hook != nil {
		runHook(ctx, "OnRefresh", func() { hook(ctx, res.User) })
	}
	return res, nil
}

// Logout invalida el refresh presentado. Idempotente: tokens inválidos o ya
// invalidados responden igual que el primer logout.
func (s *Service) Logout(ctx context.Context, rawRefresh string) error {
	if err := s.deps.Sessions.Invalidate(ctx, rawRefresh); err != nil {
		return err
	}
	audit.Log(ctx, audit.EventUserLogout)
	if hook := s.deps.Hooks.OnLogout; hook != nil {
		runHook(ctx, "OnLogout", func() { hook(ctx) })
	}
	return nil
}

// LogoutAll mata todas las sesiones del usuario.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.deps.Sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	audit.Log(ctx, audit.EventSessionsRevoked, logger.UserID(userID))
	return nil
}

// DeleteUser elimina la cuenta. El registro se lleva su set de jtis, así
// que los refresh vivos quedan repudiados en el mismo acto. Operación de
// admin: la autorización es del caller.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	ok, err := s.deps.Store.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	audit.Log(ctx, audit.EventUserDeleted, logger.UserID(userID))
	return nil
}

// UserFromAccessToken resuelve el usuario detrás de un access token. Lo usa
// el middleware de authn y /me.
func (s *Service) UserFromAccessToken(ctx context.Context, rawAccess string) (*SafeUser, error) {
	uid, err := s.deps.Sessions.VerifyAccessToken(rawAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := s.deps.Store.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	sv := safeView(u)
	return &sv, nil
}
