package email

import (
	"html/template"
	"os"
	"path/filepath"
	texttpl "text/template"
)

type Templates struct {
	VerifyHTML *template.Template
	VerifyTXT  *texttpl.Template
	ResetHTML  *template.Template
	ResetTXT   *texttpl.Template
}

// CodeVars alimenta los cuatro templates. Code es el OTP de 6 dígitos.
type CodeVars struct {
	AppName   string
	UserEmail string
	Code      string
	TTL       string
}

const (
	defaultVerifyHTML = `<html><body>
<p>Hola,</p>
<p>Tu código de verificación para {{.AppName}} es:</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">{{.Code}}</p>
<p>El código vence en {{.TTL}}. Si no creaste una cuenta, ignorá este correo.</p>
</body></html>`

	defaultVerifyTXT = `Hola,

Tu código de verificación para {{.AppName}} es: {{.Code}}

El código vence en {{.TTL}}. Si no creaste una cuenta, ignorá este correo.`

	defaultResetHTML = `<html><body>
<p>Hola,</p>
<p>Recibimos un pedido para restablecer tu password de {{.AppName}}. Tu código es:</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">{{.Code}}</p>
<p>El código vence en {{.TTL}}. Si no fuiste vos, ignorá este correo; tu password no cambia.</p>
</body></html>`

	defaultResetTXT = `Hola,

Recibimos un pedido para restablecer tu password de {{.AppName}}. Tu código es: {{.Code}}

El código vence en {{.TTL}}. Si no fuiste vos, ignorá este correo; tu password no cambia.`
)

// DefaultTemplates parsea los templates embebidos. Panic sólo si los strings
// de arriba están rotos, que es un bug de compilación nuestro.
func DefaultTemplates() *Templates {
	return &Templates{
		VerifyHTML: template.Must(template.New("verify_html").Parse(defaultVerifyHTML)),
		VerifyTXT:  texttpl.Must(texttpl.New("verify_txt").Parse(defaultVerifyTXT)),
		ResetHTML:  template.Must(template.New("reset_html").Parse(defaultResetHTML)),
		ResetTXT:   texttpl.Must(texttpl.New("reset_txt").Parse(defaultResetTXT)),
	}
}

// LoadTemplates lee overrides desde dir (verify_email.{html,txt},
// reset_password.{html,txt}). Todos los archivos deben existir.
func LoadTemplates(dir string) (*Templates, error) {
	read := func(name string) (string, error) {
		b, err := os.ReadFile(filepath.Join(dir, name))
		return string(b), err
	}
	vh, err := read("verify_email.html")
	if err != nil {
		return nil, err
	}
	vt, err := read("verify_email.txt")
	if err != nil {
		return nil, err
	}
	rh, err := read("reset_password.html")
	if err != nil {
		return nil, err
	}
	rt, err := read("reset_password.txt")
	if err != nil {
		return nil, err
	}

	vhT, err := template.New("verify_html").Parse(vh)
	if err != nil {
		return nil, err
	}
	vtT, err := texttpl.New("verify_txt").Parse(vt)
	if err != nil {
		return nil, err
	}
	rhT, err := template.New("reset_html").Parse(rh)
	if err != nil {
		return nil, err
	}
	rtT, err := texttpl.New("reset_txt").Parse(rt)
	if err != nil {
		return nil, err
	}

	return &Templates{vhT, vtT, rhT, rtT}, nil
}
