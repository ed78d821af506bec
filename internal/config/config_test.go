package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	c := Default()
	c.JWT.Secret = "access-secret"
	c.RefreshToken.Secret = "refresh-secret"
	return c
}

func TestDefault(t *testing.T) {
	t.Parallel()
	d := Default()
	if d.JWT.Algorithm != "HS256" || d.JWT.ExpiresIn != 15*time.Minute {
		t.Fatalf("jwt defaults: %+v", d.JWT)
	}
	if d.RefreshToken.ExpiresIn != 7*24*time.Hour || d.RefreshToken.Rotation != "strict" || !d.RefreshToken.ReuseDetection {
		t.Fatalf("refresh defaults: %+v", d.RefreshToken)
	}
	if d.Session.CookieName != "refresh_token" || d.Session.CookieSameSite != "lax" {
		t.Fatalf("session defaults: %+v", d.Session)
	}
	if d.PasswordPolicy.MinLength != 8 {
		t.Fatalf("policy defaults: %+v", d.PasswordPolicy)
	}
}

func TestMerge_FieldByFieldNotWholesale(t *testing.T) {
	t.Parallel()
	base := Default()

	// El override toca UN campo del grupo jwt; el resto del grupo queda.
	override := Config{}
	override.JWT.ExpiresIn = 5 * time.Minute

	out := Merge(base, override)
	if out.JWT.ExpiresIn != 5*time.Minute {
		t.Fatalf("override lost: %v", out.JWT.ExpiresIn)
	}
	if out.JWT.Algorithm != "HS256" {
		t.Fatalf("sibling field was wiped: %+v", out.JWT)
	}
	// Grupos no tocados quedan enteros.
	if out.RefreshToken.ExpiresIn != base.RefreshToken.ExpiresIn || !out.RefreshToken.ReuseDetection {
		t.Fatalf("untouched group changed: %+v", out.RefreshToken)
	}
}

func TestMerge_PasswordPolicyFieldByField(t *testing.T) {
	t.Parallel()

	// Solo min_length: los requisitos que defaultean en true sobreviven.
	override := Config{}
	override.PasswordPolicy.MinLength = 12

	out := Merge(Default(), override)
	if out.PasswordPolicy.MinLength != 12 {
		t.Fatalf("override lost: %+v", out.PasswordPolicy)
	}
	if !out.PasswordPolicy.RequireNumbers || !out.PasswordPolicy.RequireUppercase ||
		!out.PasswordPolicy.RequireLowercase || !out.PasswordPolicy.DisallowCommonPasswords {
		t.Fatalf("policy group was wiped, not merged: %+v", out.PasswordPolicy)
	}

	// Encender el único requisito que defaultea en false no toca el resto.
	override = Config{}
	override.PasswordPolicy.RequireSymbols = true
	out = Merge(Default(), override)
	if !out.PasswordPolicy.RequireSymbols || out.PasswordPolicy.MinLength != 8 ||
		!out.PasswordPolicy.RequireNumbers {
		t.Fatalf("symbols-only override leaked: %+v", out.PasswordPolicy)
	}
}

func TestMerge_ZeroValuesDontOverride(t *testing.T) {
	t.Parallel()
	out := Merge(Default(), Config{})
	if out != Default() {
		t.Fatalf("empty override should be identity: %+v", out)
	}
}

func TestMerge_RefreshGroupCarriesReuseDetection(t *testing.T) {
	t.Parallel()
	override := Config{}
	override.RefreshToken.Rotation = "lax"
	override.RefreshToken.ReuseDetection = false

	out := Merge(Default(), override)
	if out.RefreshToken.Rotation != "lax" || out.RefreshToken.ReuseDetection {
		t.Fatalf("touched refresh group should carry both knobs: %+v", out.RefreshToken)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"missing jwt secret", func(c *Config) { c.JWT.Secret = "" }, "jwt.secret"},
		{"missing refresh secret", func(c *Config) { c.RefreshToken.Secret = " " }, "refreshToken.secret"},
		{"equal secrets", func(c *Config) { c.RefreshToken.Secret = c.JWT.Secret }, "must differ"},
		{"bad algorithm", func(c *Config) { c.JWT.Algorithm = "RS256" }, "algorithm"},
		{"bad rotation", func(c *Config) { c.RefreshToken.Rotation = "sometimes" }, "rotation"},
		{"bad samesite", func(c *Config) { c.Session.CookieSameSite = "maybe" }, "cookieSameSite"},
	}
	for _, tc := range cases {
		c := validConfig()
		tc.mutate(&c)
		err := c.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.wantSub) {
			t.Fatalf("%s: error %q missing %q", tc.name, err, tc.wantSub)
		}
	}
}
