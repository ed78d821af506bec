package password

import (
	"testing"

	"github.com/dropDatabas3/authkit/internal/config"
)

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()
	p := Policy{MinLength: 8, RequireUpper: true, RequireLower: true, RequireDigit: true, RequireSymbol: true}

	if ok, reasons := p.Validate("Abcdef1!"); !ok {
		t.Fatalf("expected valid, got reasons %v", reasons)
	}

	cases := []struct {
		pwd    string
		reason string
	}{
		{"Ab1!", "too_short"},
		{"abcdefg1!", "missing_upper"},
		{"ABCDEFG1!", "missing_lower"},
		{"Abcdefgh!", "missing_digit"},
		{"Abcdefg1", "missing_symbol"},
	}
	for _, c := range cases {
		ok, reasons := p.Validate(c.pwd)
		if ok {
			t.Fatalf("%q: expected invalid", c.pwd)
		}
		found := false
		for _, r := range reasons {
			if r == c.reason {
				found = true
			}
		}
		if !found {
			t.Fatalf("%q: expected reason %q in %v", c.pwd, c.reason, reasons)
		}
	}
}

func TestPolicy_MinLengthCountsRunes(t *testing.T) {
	t.Parallel()
	p := Policy{MinLength: 6}
	// 6 runas multibyte; len(bytes) > 6 pero len(runes) == 6.
	if ok, reasons := p.Validate("ññññññ"); !ok {
		t.Fatalf("rune-count min length failed: %v", reasons)
	}
	if ok, _ := p.Validate("ñññññ"); ok {
		t.Fatalf("5 runes should fail MinLength 6")
	}
}

func TestPolicy_DisallowCommon(t *testing.T) {
	t.Parallel()
	p := Policy{MinLength: 6, DisallowCommon: true}
	ok, reasons := p.Validate("Password123")
	if ok {
		t.Fatalf("expected common password rejection")
	}
	found := false
	for _, r := range reasons {
		if r == "too_common" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected too_common in %v", reasons)
	}
	if ok, reasons := p.Validate("zx9!Kq27-plum"); !ok {
		t.Fatalf("uncommon password rejected: %v", reasons)
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()
	p := FromConfig(config.PasswordPolicy{
		MinLength:               10,
		RequireNumbers:          true,
		RequireUppercase:        true,
		DisallowCommonPasswords: true,
	})
	if p.MinLength != 10 || !p.RequireDigit || !p.RequireUpper || !p.DisallowCommon {
		t.Fatalf("mapping mismatch: %+v", p)
	}
	if p.RequireLower || p.RequireSymbol {
		t.Fatalf("unset fields should stay false: %+v", p)
	}
}
