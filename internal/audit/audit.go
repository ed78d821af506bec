// Package audit deja un rastro estructurado de los eventos de seguridad:
// registros, logins, rotaciones, reuse detectado, resets. Hoy escribe al
// logger; a futuro puede colgarse un sink a DB o a un SIEM externo.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authkit/internal/observability/logger"
)

// Eventos conocidos. Los strings son parte del contrato de los logs.
const (
	EventUserRegistered     = "user.registered"
	EventUserLogin          = "user.login"
	EventUserLoginFailed    = "user.login_failed"
	EventUserLogout         = "user.logout"
	EventUserDeleted        = "user.deleted"
	EventTokenRotated       = "token.rotated"
	EventTokenReuseDetected = "token.reuse_detected"
	EventSessionsRevoked    = "session.revoked_all"
	EventVerifyRequested    = "verify.requested"
	EventVerifyConfirmed    = "verify.confirmed"
	EventResetRequested     = "reset.requested"
	EventResetConfirmed     = "reset.confirmed"
)

// Log escribe un evento de auditoría. Nunca falla hacia el caller.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all, zap.String("audit_event", event), logger.Layer("audit"))
	all = append(all, fields...)
	logger.From(ctx).Info("audit", all...)
}
