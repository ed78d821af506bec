package email

import (
	"context"
	"strings"
	"testing"
	"time"
)

type captureSender struct {
	to, subject, html, text string
	calls                   int
}

func (c *captureSender) Send(to, subject, htmlBody, textBody string) error {
	c.calls++
	c.to, c.subject, c.html, c.text = to, subject, htmlBody, textBody
	return nil
}

func TestTemplateNotifier_Verification(t *testing.T) {
	t.Parallel()
	s := &captureSender{}
	n := NewTemplateNotifier("MiApp", s, nil)

	err := n.SendVerificationCode(context.Background(), "ana@example.com", "482913", 24*time.Hour)
	if err != nil {
		t.Fatalf("SendVerificationCode err: %v", err)
	}
	if s.calls != 1 || s.to != "ana@example.com" {
		t.Fatalf("sender not invoked as expected: %+v", s)
	}
	for _, body := range []string{s.html, s.text} {
		if !strings.Contains(body, "482913") {
			t.Fatalf("body missing code: %q", body)
		}
		if !strings.Contains(body, "MiApp") {
			t.Fatalf("body missing app name: %q", body)
		}
		if !strings.Contains(body, "24 horas") {
			t.Fatalf("body missing ttl: %q", body)
		}
	}
	if !strings.Contains(s.subject, "MiApp") {
		t.Fatalf("subject missing app name: %q", s.subject)
	}
}

func TestTemplateNotifier_Reset(t *testing.T) {
	t.Parallel()
	s := &captureSender{}
	n := NewTemplateNotifier("MiApp", s, nil)

	err := n.SendResetCode(context.Background(), "ana@example.com", "015733", 10*time.Minute)
	if err != nil {
		t.Fatalf("SendResetCode err: %v", err)
	}
	if !strings.Contains(s.text, "015733") {
		t.Fatalf("text missing code (leading zero must survive): %q", s.text)
	}
	if !strings.Contains(s.text, "10 minutos") {
		t.Fatalf("text missing ttl: %q", s.text)
	}
}

func TestHumanTTL(t *testing.T) {
	t.Parallel()
	if got := humanTTL(24 * time.Hour); got != "24 horas" {
		t.Fatalf("got %q", got)
	}
	if got := humanTTL(10 * time.Minute); got != "10 minutos" {
		t.Fatalf("got %q", got)
	}
	if got := humanTTL(90 * time.Minute); got != "90 minutos" {
		t.Fatalf("got %q", got)
	}
}
