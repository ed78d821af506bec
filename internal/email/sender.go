// Package email arma y despacha los correos de verificación y reset.
package email

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authkit/internal/observability/logger"
)

type Sender interface {
	Send(to string, subject string, htmlBody string, textBody string) error
}

type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		TLSMode: "auto",
	}
}

func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	log := logger.L().With(logger.Layer("email"), logger.Op("smtp.send"))
	log.Debug("smtp_send_try",
		zap.String("host", s.Host), zap.Int("port", s.Port),
		zap.String("to", to), zap.String("subject", subject),
		zap.String("tls_mode", s.TLSMode))

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	// Preferimos multipart/alternative (txt + html)
	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // sólo dev
	}

	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		log.Error("smtp_send_err", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Info("smtp_send_ok", zap.String("to", to))
	return nil
}
