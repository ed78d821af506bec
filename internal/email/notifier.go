package email

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authkit/internal/observability/logger"
)

// Notifier es lo que los servicios de verificación consumen. No saben de
// SMTP ni de templates, sólo de "mandale este código a esta persona".
type Notifier interface {
	SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error
	SendResetCode(ctx context.Context, to, code string, ttl time.Duration) error
}

// TemplateNotifier renderiza los templates y despacha por un Sender.
type TemplateNotifier struct {
	AppName   string
	Sender    Sender
	Templates *Templates
}

func NewTemplateNotifier(appName string, s Sender, t *Templates) *TemplateNotifier {
	if t == nil {
		t = DefaultTemplates()
	}
	return &TemplateNotifier{AppName: appName, Sender: s, Templates: t}
}

func (n *TemplateNotifier) SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error {
	vars := CodeVars{AppName: n.AppName, UserEmail: to, Code: code, TTL: humanTTL(ttl)}

	var html, txt bytes.Buffer
	if err := n.Templates.VerifyHTML.Execute(&html, vars); err != nil {
		return fmt.Errorf("render verify html: %w", err)
	}
	if err := n.Templates.VerifyTXT.Execute(&txt, vars); err != nil {
		return fmt.Errorf("render verify txt: %w", err)
	}
	subject := fmt.Sprintf("%s: verificá tu email", n.AppName)
	return n.Sender.Send(to, subject, html.String(), txt.String())
}

func (n *TemplateNotifier) SendResetCode(ctx context.Context, to, code string, ttl time.Duration) error {
	vars := CodeVars{AppName: n.AppName, UserEmail: to, Code: code, TTL: humanTTL(ttl)}

	var html, txt bytes.Buffer
	if err := n.Templates.ResetHTML.Execute(&html, vars); err != nil {
		return fmt.Errorf("render reset html: %w", err)
	}
	if err := n.Templates.ResetTXT.Execute(&txt, vars); err != nil {
		return fmt.Errorf("render reset txt: %w", err)
	}
	subject := fmt.Sprintf("%s: restablecer password", n.AppName)
	return n.Sender.Send(to, subject, html.String(), txt.String())
}

func humanTTL(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%d horas", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutos", int(d.Minutes()))
}

// LogNotifier escribe el código al log en vez de mandar correo. Para
// desarrollo local sin SMTP.
type LogNotifier struct{}

func (LogNotifier) SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error {
	logger.From(ctx).Info("verification_code_issued",
		logger.Layer("email"), zap.String("to", to), zap.String("code", code))
	return nil
}

func (LogNotifier) SendResetCode(ctx context.Context, to, code string, ttl time.Duration) error {
	logger.From(ctx).Info("reset_code_issued",
		logger.Layer("email"), zap.String("to", to), zap.String("code", code))
	return nil
}
