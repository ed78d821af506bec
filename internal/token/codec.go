// Package token firma y verifica los JWT de acceso y refresh. Cada Codec
// lleva su propio secreto y TTL, así access y refresh nunca se validan
// cruzados.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ErrInvalid cubre cualquier token rechazado: firma mala, expirado,
// malformado, claims faltantes. Un solo error hacia afuera para no regalar
// un oráculo de por qué falló.
var ErrInvalid = errors.New("token: invalid")

var methods = map[string]jwtv5.SigningMethod{
	"HS256": jwtv5.SigningMethodHS256,
	"HS384": jwtv5.SigningMethodHS384,
	"HS512": jwtv5.SigningMethodHS512,
}

// Claims es lo que un token verificado entrega hacia arriba.
type Claims struct {
	UserID    string
	ID        string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Codec struct {
	secret []byte
	method jwtv5.SigningMethod
	alg    string
	issuer string
	ttl    time.Duration
}

func NewCodec(secret, alg, issuer string, ttl time.Duration) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token: empty secret")
	}
	m, ok := methods[strings.ToUpper(alg)]
	if !ok {
		return nil, fmt.Errorf("token: unsupported algorithm %q", alg)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token: non-positive ttl")
	}
	return &Codec{
		secret: []byte(secret),
		method: m,
		alg:    strings.ToUpper(alg),
		issuer: issuer,
		ttl:    ttl,
	}, nil
}

// TTL expone la vida configurada (para cookies, respuestas expires_in, etc).
func (c *Codec) TTL() time.Duration { return c.ttl }

// Sign emite un JWT con sub=userID y jti. El jti lo elige el caller para que
// la capa de sesión pueda registrarlo antes de entregar el token.
func (c *Codec) Sign(userID, jti string, now time.Time) (string, time.Time, error) {
	if userID == "" || jti == "" {
		return "", time.Time{}, fmt.Errorf("token: empty subject or jti")
	}
	now = now.UTC()
	exp := now.Add(c.ttl)
	claims := jwtv5.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   userID,
		ID:        jti,
		IssuedAt:  jwtv5.NewNumericDate(now),
		NotBefore: jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(exp),
	}
	tk := jwtv5.NewWithClaims(c.method, claims)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify valida firma, exp/nbf e issuer y devuelve las claims. Cualquier
// rechazo mapea a ErrInvalid.
func (c *Codec) Verify(raw string) (Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return Claims{}, ErrInvalid
	}
	keyfunc := func(t *jwtv5.Token) (any, error) { return c.secret, nil }
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{c.alg}),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithLeeway(30 * time.Second),
	}
	if c.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(c.issuer))
	}

	var rc jwtv5.RegisteredClaims
	tok, err := jwtv5.ParseWithClaims(raw, &rc, keyfunc, opts...)
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalid
	}
	if rc.Subject == "" || rc.ID == "" {
		return Claims{}, ErrInvalid
	}

	out := Claims{UserID: rc.Subject, ID: rc.ID}
	if rc.IssuedAt != nil {
		out.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		out.ExpiresAt = rc.ExpiresAt.Time
	}
	return out, nil
}
