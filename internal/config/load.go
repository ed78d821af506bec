package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig es el espejo YAML de Config. Los TTLs van como strings
// ("15m", "168h") y se parsean con time.ParseDuration.
type fileConfig struct {
	JWT struct {
		Secret    string `yaml:"secret"`
		Algorithm string `yaml:"algorithm"`
		ExpiresIn string `yaml:"expires_in"`
	} `yaml:"jwt"`

	RefreshToken struct {
		Secret         string `yaml:"secret"`
		ExpiresIn      string `yaml:"expires_in"`
		Rotation       string `yaml:"rotation"`
		ReuseDetection *bool  `yaml:"reuse_detection"`
	} `yaml:"refresh_token"`

	// Booleanos como *bool: distinguen "no vino en el YAML" (se queda el
	// default) de un false explícito (apaga el requisito).
	PasswordPolicy struct {
		MinLength               int   `yaml:"min_length"`
		RequireNumbers          *bool `yaml:"require_numbers"`
		RequireSymbols          *bool `yaml:"require_symbols"`
		RequireUppercase        *bool `yaml:"require_uppercase"`
		RequireLowercase        *bool `yaml:"require_lowercase"`
		DisallowCommonPasswords *bool `yaml:"disallow_common_passwords"`
	} `yaml:"password_policy"`

	RateLimit struct {
		Window        string `yaml:"window"`
		Max           int    `yaml:"max"`
		BlockDuration string `yaml:"block_duration"`
	} `yaml:"rate_limit"`

	Session struct {
		CookieName     string `yaml:"cookie_name"`
		CookieSecure   bool   `yaml:"cookie_secure"`
		CookieSameSite string `yaml:"cookie_samesite"`
	} `yaml:"session"`
}

// Load lee el YAML de path, lo mergea sobre Default() y aplica los
// overrides de entorno para los secretos. No publica nada: el caller decide
// cuándo llamar a Init().
func Load(path string) (Config, error) {
	override := Config{}
	var fc fileConfig

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		override, err = fc.toConfig()
		if err != nil {
			return Config{}, err
		}
	}

	cfg := Merge(Default(), override)

	// Tri-estado de los booleanos de policy: solo un valor presente en el
	// YAML pisa el default, y un false explícito sí apaga el requisito.
	pp := fc.PasswordPolicy
	if pp.RequireNumbers != nil {
		cfg.PasswordPolicy.RequireNumbers = *pp.RequireNumbers
	}
	if pp.RequireSymbols != nil {
		cfg.PasswordPolicy.RequireSymbols = *pp.RequireSymbols
	}
	if pp.RequireUppercase != nil {
		cfg.PasswordPolicy.RequireUppercase = *pp.RequireUppercase
	}
	if pp.RequireLowercase != nil {
		cfg.PasswordPolicy.RequireLowercase = *pp.RequireLowercase
	}
	if pp.DisallowCommonPasswords != nil {
		cfg.PasswordPolicy.DisallowCommonPasswords = *pp.DisallowCommonPasswords
	}

	// Secretos: el entorno siempre gana sobre el archivo.
	if v := os.Getenv("AUTHKIT_JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("AUTHKIT_REFRESH_SECRET"); v != "" {
		cfg.RefreshToken.Secret = v
	}

	return cfg, nil
}

func (fc fileConfig) toConfig() (Config, error) {
	var c Config

	parse := func(field, s string) (time.Duration, error) {
		if s == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("config: invalid duration %q for %s", s, field)
		}
		return d, nil
	}

	var err error
	c.JWT.Secret = fc.JWT.Secret
	c.JWT.Algorithm = fc.JWT.Algorithm
	if c.JWT.ExpiresIn, err = parse("jwt.expires_in", fc.JWT.ExpiresIn); err != nil {
		return Config{}, err
	}

	c.RefreshToken.Secret = fc.RefreshToken.Secret
	c.RefreshToken.Rotation = fc.RefreshToken.Rotation
	if c.RefreshToken.ExpiresIn, err = parse("refresh_token.expires_in", fc.RefreshToken.ExpiresIn); err != nil {
		return Config{}, err
	}
	if fc.RefreshToken.ReuseDetection != nil {
		// Marcar el grupo como tocado para que Merge respete el valor.
		if c.RefreshToken.Rotation == "" {
			c.RefreshToken.Rotation = "strict"
		}
		c.RefreshToken.ReuseDetection = *fc.RefreshToken.ReuseDetection
	} else if c.RefreshToken.Rotation != "" {
		c.RefreshToken.ReuseDetection = true
	}

	// Los booleanos de policy no viajan por acá: Load los aplica con su
	// tri-estado después del merge.
	c.PasswordPolicy.MinLength = fc.PasswordPolicy.MinLength

	if c.RateLimit.Window, err = parse("rate_limit.window", fc.RateLimit.Window); err != nil {
		return Config{}, err
	}
	c.RateLimit.Max = fc.RateLimit.Max
	if c.RateLimit.BlockDuration, err = parse("rate_limit.block_duration", fc.RateLimit.BlockDuration); err != nil {
		return Config{}, err
	}

	c.Session.CookieName = fc.Session.CookieName
	c.Session.CookieSecure = fc.Session.CookieSecure
	c.Session.CookieSameSite = fc.Session.CookieSameSite

	return c, nil
}
