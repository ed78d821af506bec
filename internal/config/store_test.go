package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_WriteOnce(t *testing.T) {
	// Sin t.Parallel(): estado global del store.
	UnsafeResetForTests()
	defer UnsafeResetForTests()

	if _, err := Get(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("pre-init Get: want ErrNotInitialized, got %v", err)
	}

	if err := Init(validConfig()); err != nil {
		t.Fatalf("Init err: %v", err)
	}
	got, err := Get()
	if err != nil || got.JWT.Secret != "access-secret" {
		t.Fatalf("Get: (%+v, %v)", got, err)
	}

	if err := Init(validConfig()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Init: want ErrAlreadyInitialized, got %v", err)
	}
}

func TestStore_InitValidates(t *testing.T) {
	UnsafeResetForTests()
	defer UnsafeResetForTests()

	bad := validConfig()
	bad.JWT.Secret = ""
	if err := Init(bad); err == nil {
		t.Fatalf("Init should validate")
	}
	// La config inválida no quedó publicada.
	if _, err := Get(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("want ErrNotInitialized, got %v", err)
	}
}

func TestMustGet_PanicsBeforeInit(t *testing.T) {
	UnsafeResetForTests()
	defer UnsafeResetForTests()

	defer func() {
		if recover() == nil {
			t.Fatalf("MustGet should panic before Init")
		}
	}()
	MustGet()
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	// Sin t.Parallel(): toca variables de entorno.
	dir := t.TempDir()
	path := filepath.Join(dir, "authkit.yaml")
	yaml := `
jwt:
  secret: file-access-secret
  expires_in: 5m
refresh_token:
  secret: file-refresh-secret
  rotation: lax
  reuse_detection: false
rate_limit:
  window: 30s
  max: 10
session:
  cookie_name: rt
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	os.Setenv("AUTHKIT_JWT_SECRET", "env-access-secret")
	defer os.Unsetenv("AUTHKIT_JWT_SECRET")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	// Env gana sobre archivo para secretos.
	if cfg.JWT.Secret != "env-access-secret" {
		t.Fatalf("env override lost: %q", cfg.JWT.Secret)
	}
	if cfg.RefreshToken.Secret != "file-refresh-secret" {
		t.Fatalf("file secret lost: %q", cfg.RefreshToken.Secret)
	}
	if cfg.JWT.ExpiresIn != 5*time.Minute {
		t.Fatalf("duration not parsed: %v", cfg.JWT.ExpiresIn)
	}
	// Campos no seteados caen al default.
	if cfg.JWT.Algorithm != "HS256" || cfg.RefreshToken.ExpiresIn != 7*24*time.Hour {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.RefreshToken.Rotation != "lax" || cfg.RefreshToken.ReuseDetection {
		t.Fatalf("refresh knobs: %+v", cfg.RefreshToken)
	}
	if cfg.RateLimit.Window != 30*time.Second || cfg.RateLimit.Max != 10 {
		t.Fatalf("rate limit: %+v", cfg.RateLimit)
	}
	if cfg.Session.CookieName != "rt" || cfg.Session.CookieSameSite != "lax" {
		t.Fatalf("session: %+v", cfg.Session)
	}
}

func TestLoad_PasswordPolicyPartialOverride(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	yaml := `
password_policy:
  min_length: 12
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	pp := cfg.PasswordPolicy
	if pp.MinLength != 12 {
		t.Fatalf("min_length lost: %+v", pp)
	}
	// Subir min_length NO puede apagar en silencio los otros requisitos.
	if !pp.RequireNumbers || !pp.RequireUppercase || !pp.RequireLowercase || !pp.DisallowCommonPasswords {
		t.Fatalf("boolean defaults wiped by partial policy: %+v", pp)
	}
	if pp.RequireSymbols {
		t.Fatalf("symbols should stay off by default: %+v", pp)
	}
}

func TestLoad_PasswordPolicyExplicitFalse(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	yaml := `
password_policy:
  require_uppercase: false
  require_symbols: true
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	pp := cfg.PasswordPolicy
	if pp.RequireUppercase {
		t.Fatalf("explicit false ignored: %+v", pp)
	}
	if !pp.RequireSymbols || !pp.RequireNumbers || !pp.RequireLowercase || pp.MinLength != 8 {
		t.Fatalf("siblings disturbed: %+v", pp)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("jwt:\n  expires_in: quince\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func TestLoad_NoFile(t *testing.T) {
	// Sin archivo: puros defaults (y env si está).
	os.Unsetenv("AUTHKIT_JWT_SECRET")
	os.Unsetenv("AUTHKIT_REFRESH_SECRET")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") err: %v", err)
	}
	if cfg.JWT.Algorithm != "HS256" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}
