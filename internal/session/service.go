// Package session es el dueño del ciclo de vida de los refresh tokens:
// emisión, rotación, invalidación y detección de reuso. El access token
// también se firma acá para que nadie más toque los codecs.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authkit/internal/metrics"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/store"
	"github.com/dropDatabas3/authkit/internal/token"
)

// Errores de sesión
var (
	// ErrInvalidToken cubre firma mala, expiry vencido o token malformado.
	ErrInvalidToken = fmt.Errorf("invalid token")
	// ErrReuseOrUnknown: el token verifica pero su jti no está en el set
	// activo del usuario. O ya fue rotado (replay) o fue revocado.
	ErrReuseOrUnknown = fmt.Errorf("reuse or unknown token")
)

// Deps contiene las dependencias del servicio de sesión.
type Deps struct {
	Store   store.UserStore
	Access  *token.Codec
	Refresh *token.Codec
	// Rotation: "strict" remueve el jti anterior en cada rotación; "lax"
	// deja el anterior vivo hasta su expiry (ventana de reuso limitada).
	Rotation string
	// ReuseDetection habilita el chequeo de membresía del jti. Apagarlo
	// deja los refresh validando solo por firma+expiry.
	ReuseDetection bool
}

type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	if deps.Rotation == "" {
		deps.Rotation = "strict"
	}
	return &Service{deps: deps}
}

// AccessTTL expone la vida del access token (para expires_in).
func (s *Service) AccessTTL() time.Duration { return s.deps.Access.TTL() }

// RefreshTTL expone la vida del refresh token (para cookies).
func (s *Service) RefreshTTL() time.Duration { return s.deps.Refresh.TTL() }

// IssueAccessToken firma un access token para el usuario. El jti del access
// no se persiste: su validez es puramente firma+expiry.
func (s *Service) IssueAccessToken(ctx context.Context, userID string) (string, time.Time, error) {
	return s.deps.Access.Sign(userID, uuid.NewString(), time.Now())
}

// VerifyAccessToken valida un access token y retorna el userID.
func (s *Service) VerifyAccessToken(raw string) (string, error) {
	cl, err := s.deps.Access.Verify(raw)
	if err != nil {
		return "", ErrInvalidToken
	}
	return cl.UserID, nil
}

// IssueRefreshToken genera un jti nuevo, lo registra en el set activo del
// usuario y recién entonces firma el token. Si el registro falla, el token
// nunca sale.
func (s *Service) IssueRefreshToken(ctx context.Context, userID string) (string, time.Time, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session"),
		logger.Op("IssueRefreshToken"),
		logger.UserID(userID),
	)

	jti := uuid.NewString()
	if _, err := s.deps.Store.UpdateUser(ctx, userID, store.Patch{AddRefreshTokenIDs: []string{jti}}); err != nil {
		log.Error("failed to register refresh token id", logger.Err(err))
		return "", time.Time{}, err
	}

	raw, exp, err := s.deps.Refresh.Sign(userID, jti, time.Now())
	if err != nil {
		// El jti quedó registrado pero el token no existe: inofensivo,
		// nadie puede presentarlo. Se limpia junto con el resto en logout.
		log.Error("failed to sign refresh token", logger.Err(err))
		return "", time.Time{}, err
	}
	return raw, exp, nil
}

// Rotate verifica el refresh entrante, chequea membresía del jti (ahí vive
// la detección de reuso: un token ya rotado o revocado no está en el set) y
// swapea identificador viejo por nuevo en un único update. Retorna el usuario
// y el refresh nuevo firmado.
func (s *Service) Rotate(ctx context.Context, raw string) (*store.User, string, time.Time, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session"),
		logger.Op("Rotate"),
	)

	cl, err := s.deps.Refresh.Verify(raw)
	if err != nil {
		log.Debug("refresh verification failed")
		return nil, "", time.Time{}, ErrInvalidToken
	}
	log = log.With(logger.UserID(cl.UserID), logger.TokenID(cl.ID))

	u, err := s.deps.Store.GetUserByID(ctx, cl.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Usuario borrado con tokens en vuelo: misma respuesta opaca
			// que un jti desconocido.
			log.Info("refresh for unknown user")
			return nil, "", time.Time{}, ErrReuseOrUnknown
		}
		return nil, "", time.Time{}, err
	}

	if s.deps.ReuseDetection && !u.HasRefreshTokenID(cl.ID) {
		metrics.RefreshReuseDetected.Inc()
		log.Warn("refresh token reuse detected")
		return nil, "", time.Time{}, ErrReuseOrUnknown
	}

	newJTI := uuid.NewString()
	patch := store.Patch{AddRefreshTokenIDs: []string{newJTI}}
	if s.deps.Rotation != "lax" {
		patch.RemoveRefreshTokenIDs = []string{cl.ID}
	}
	u, err = s.deps.Store.UpdateUser(ctx, u.ID, patch)
	if err != nil {
		log.Error("failed to swap refresh token id", logger.Err(err))
		return nil, "", time.Time{}, err
	}

	newRaw, exp, err := s.deps.Refresh.Sign(u.ID, newJTI, time.Now())
	if err != nil {
		log.Error("failed to sign rotated refresh token", logger.Err(err))
		return nil, "", time.Time{}, err
	}

	metrics.RefreshRotations.Inc()
	log.Debug("refresh token rotated")
	return u, newRaw, exp, nil
}

// Invalidate remueve el jti del token del set activo. Idempotente: un token
// inválido o ya removido no es error, el estado final es el mismo.
func (s *Service) Invalidate(ctx context.Context, raw string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session"),
		logger.Op("Invalidate"),
	)

	cl, err := s.deps.Refresh.Verify(raw)
	if err != nil {
		log.Debug("invalidate with unverifiable token, nothing to do")
		return nil
	}

	_, err = s.deps.Store.UpdateUser(ctx, cl.UserID, store.Patch{RemoveRefreshTokenIDs: []string{cl.ID}})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		log.Error("failed to remove refresh token id", logger.Err(err))
		return err
	}
	return nil
}

// IsValid es el chequeo de membresía puro, para short-circuit barato antes
// de operaciones caras.
func (s *Service) IsValid(ctx context.Context, userID, jti string) (bool, error) {
	u, err := s.deps.Store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.HasRefreshTokenID(jti), nil
}

// RevokeAll limpia el set entero de refresh token ids: mata todas las
// sesiones del usuario.
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	_, err := s.deps.Store.UpdateUser(ctx, userID, store.Patch{ClearRefreshTokenIDs: true})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}
