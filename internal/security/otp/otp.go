// Package otp genera códigos numéricos de un solo uso para verificación de
// email y reset de password. No es TOTP: el código vive en el store junto a
// su expiry y se quema al consumirse.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const Digits = 6

var codeRe = regexp.MustCompile(`^[0-9]{6}$`)

// ErrExhausted indica que no se pudo generar un código libre tras varios
// intentos. Con 10^6 códigos posibles esto solo pasa si el espacio está
// casi lleno o el lookup falla de forma rara.
var ErrExhausted = fmt.Errorf("otp: could not generate a unique code")

// Generate retorna un código de 6 dígitos con crypto/rand, zero-padded.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// IsWellFormed valida el shape antes de tocar el store.
func IsWellFormed(code string) bool {
	return codeRe.MatchString(code)
}

// NewUnique genera códigos hasta encontrar uno que exists reporte como libre.
// exists debe retornar true si el código ya está asignado a algún usuario
// (de cualquier flujo, los espacios de verify y reset se comparten).
func NewUnique(ctx context.Context, exists func(ctx context.Context, code string) (bool, error)) (string, error) {
	const maxAttempts = 10
	for i := 0; i < maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := Generate()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}
