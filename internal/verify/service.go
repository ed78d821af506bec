// Package verify implementa las máquinas de estado de los códigos de un
// solo uso: verificación de email y reset de password. Un código vive
// atado a un usuario con un expiry absoluto y se quema al consumirse.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authkit/internal/audit"
	"github.com/dropDatabas3/authkit/internal/email"
	"github.com/dropDatabas3/authkit/internal/metrics"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/security/otp"
	"github.com/dropDatabas3/authkit/internal/security/password"
	"github.com/dropDatabas3/authkit/internal/store"
)

// Errores de verificación/reset
var (
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrAlreadyVerified = fmt.Errorf("email already verified")
	ErrThrottled       = fmt.Errorf("a code was issued too recently")
	ErrInvalidCode     = fmt.Errorf("invalid code")
	ErrCodeExpired     = fmt.Errorf("code expired")
	ErrWeakPassword    = fmt.Errorf("password does not meet policy")
)

// Deps contiene las dependencias del servicio.
type Deps struct {
	Store    store.UserStore
	Notifier email.Notifier
	Policy   password.Policy
	Hash     password.Params

	VerifyTTL      time.Duration // default 24h
	ResetTTL       time.Duration // default 10m
	ResendInterval time.Duration // default 60s
}

type Service struct {
	deps Deps
	now  func() time.Time
}

func NewService(deps Deps) *Service {
	if deps.VerifyTTL == 0 {
		deps.VerifyTTL = 24 * time.Hour
	}
	if deps.ResetTTL == 0 {
		deps.ResetTTL = 10 * time.Minute
	}
	if deps.ResendInterval == 0 {
		deps.ResendInterval = 60 * time.Second
	}
	if deps.Hash.KeyLen == 0 {
		deps.Hash = password.DefaultParams
	}
	return &Service{deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// codeExists chequea si un código está asignado a algún usuario, en
// cualquiera de los dos flujos. Los códigos comparten espacio: el lookup de
// confirmReset es por código solo, así que no puede haber ambigüedad.
func (s *Service) codeExists(ctx context.Context, code string) (bool, error) {
	if _, err := s.deps.Store.GetUserByVerificationCode(ctx, code); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if _, err := s.deps.Store.GetUserByResetCode(ctx, code); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	return false, nil
}

// RequestVerification emite un código de verificación de email y pide su
// entrega. No sabe cómo viaja el código, solo que se pidió mandarlo.
func (s *Service) RequestVerification(ctx context.Context, userID string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("verify"),
		logger.Op("RequestVerification"),
		logger.UserID(userID),
	)

	u, err := s.deps.Store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}

	now := s.now()
	// El momento de emisión se deriva del expiry guardado: issued = expiry - TTL.
	if u.VerificationCode != "" && u.VerificationCodeExpiry.After(now) {
		issued := u.VerificationCodeExpiry.Add(-s.deps.VerifyTTL)
		if now.Sub(issued) < s.deps.ResendInterval {
			log.Debug("verification resend throttled")
			return ErrThrottled
		}
	}

	code, err := otp.NewUnique(ctx, s.codeExists)
	if err != nil {
		return err
	}
	expiry := now.Add(s.deps.VerifyTTL)
	if _, err := s.deps.Store.UpdateUser(ctx, u.ID, store.Patch{
		VerificationCode:       &code,
		VerificationCodeExpiry: &expiry,
	}); err != nil {
		return err
	}

	if err := s.deps.Notifier.SendVerificationCode(ctx, u.Email, code, s.deps.VerifyTTL); err != nil {
		log.Error("verification delivery failed", logger.Err(err))
		return err
	}

	metrics.OTPIssued.WithLabelValues("verify").Inc()
	audit.Log(ctx, audit.EventVerifyRequested, logger.UserID(u.ID))
	return nil
}

// ConfirmVerification consume el código: transición unverified -> verified,
// una sola vez. El código y su expiry se limpian en el mismo update.
func (s *Service) ConfirmVerification(ctx context.Context, userID, code string) error {
	u, err := s.deps.Store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}
	if u.VerificationCode == "" || !otp.IsWellFormed(code) || u.VerificationCode != code {
		metrics.OTPConsumed.WithLabelValues("verify", "invalid").Inc()
		return ErrInvalidCode
	}
	if s.now().After(u.VerificationCodeExpiry) {
		metrics.OTPConsumed.WithLabelValues("verify", "expired").Inc()
		return ErrCodeExpired
	}

	verified := true
	empty := ""
	var zero time.Time
	if _, err := s.deps.Store.UpdateUser(ctx, u.ID, store.Patch{
		IsVerified:             &verified,
		VerificationCode:       &empty,
		VerificationCodeExpiry: &zero,
	}); err != nil {
		return err
	}

	metrics.OTPConsumed.WithLabelValues("verify", "ok").Inc()
	audit.Log(ctx, audit.EventVerifyConfirmed, logger.UserID(u.ID))
	return nil
}

// RequestReset emite un código de reset para el usuario dueño del email.
func (s *Service) RequestReset(ctx context.Context, emailAddr string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("verify"),
		logger.Op("RequestReset"),
	)

	u, err := s.deps.Store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	log = log.With(logger.UserID(u.ID))

	now := s.now()
	if u.ResetCode != "" && u.ResetCodeExpiry.After(now) {
		issued := u.ResetCodeExpiry.Add(-s.deps.ResetTTL)
		if now.Sub(issued) < s.deps.ResendInterval {
			log.Debug("reset resend throttled")
			return ErrThrottled
		}
	}

	code, err := otp.NewUnique(ctx, s.codeExists)
	if err != nil {
		return err
	}
	expiry := now.Add(s.deps.ResetTTL)
	if _, err := s.deps.Store.UpdateUser(ctx, u.ID, store.Patch{
		ResetCode:       &code,
		ResetCodeExpiry: &expiry,
	}); err != nil {
		return err
	}

	if err := s.deps.Notifier.SendResetCode(ctx, u.Email, code, s.deps.ResetTTL); err != nil {
		log.Error("reset delivery failed", logger.Err(err))
		return err
	}

	metrics.OTPIssued.WithLabelValues("reset").Inc()
	audit.Log(ctx, audit.EventResetRequested, logger.UserID(u.ID))
	return nil
}

// ConfirmReset busca al usuario POR el código (el código es la llave, por
// eso la unicidad global), valida la policy sobre el password nuevo y en un
// único update: pisa el hash, quema el código y vacía el set entero de
// refresh token ids. Un reset mata todas las sesiones, siempre.
func (s *Service) ConfirmReset(ctx context.Context, code, newPassword string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("verify"),
		logger.Op("ConfirmReset"),
	)

	if !otp.IsWellFormed(code) {
		metrics.OTPConsumed.WithLabelValues("reset", "invalid").Inc()
		return ErrInvalidCode
	}
	u, err := s.deps.Store.GetUserByResetCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.OTPConsumed.WithLabelValues("reset", "invalid").Inc()
			return ErrInvalidCode
		}
		return err
	}
	log = log.With(logger.UserID(u.ID))

	if s.now().After(u.ResetCodeExpiry) {
		metrics.OTPConsumed.WithLabelValues("reset", "expired").Inc()
		return ErrCodeExpired
	}

	if ok, reasons := s.deps.Policy.Validate(newPassword); !ok {
		log.Debug("new password rejected by policy", zap.Strings("reasons", reasons))
		return ErrWeakPassword
	}
	hash, err := password.Hash(s.deps.Hash, newPassword)
	if err != nil {
		return err
	}

	empty := ""
	var zero time.Time
	if _, err := s.deps.Store.UpdateUser(ctx, u.ID, store.Patch{
		PasswordHash:         &hash,
		ResetCode:            &empty,
		ResetCodeExpiry:      &zero,
		ClearRefreshTokenIDs: true,
	}); err != nil {
		return err
	}

	metrics.OTPConsumed.WithLabelValues("reset", "ok").Inc()
	audit.Log(ctx, audit.EventResetConfirmed, logger.UserID(u.ID))
	audit.Log(ctx, audit.EventSessionsRevoked, logger.UserID(u.ID))
	log.Info("password reset completed, all sessions revoked")
	return nil
}
