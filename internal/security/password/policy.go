package password

import (
	"unicode"

	"github.com/dropDatabas3/authkit/internal/config"
)

type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSymbol  bool
	DisallowCommon bool
}

// FromConfig traduce el grupo password_policy de la config al validador.
func FromConfig(pp config.PasswordPolicy) Policy {
	return Policy{
		MinLength:      pp.MinLength,
		RequireUpper:   pp.RequireUppercase,
		RequireLower:   pp.RequireLowercase,
		RequireDigit:   pp.RequireNumbers,
		RequireSymbol:  pp.RequireSymbols,
		DisallowCommon: pp.DisallowCommonPasswords,
	}
}

func (p Policy) Validate(s string) (ok bool, reasons []string) {
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	if p.DisallowCommon && isCommon(s) {
		reasons = append(reasons, "too_common")
	}
	return len(reasons) == 0, reasons
}
