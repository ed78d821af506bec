package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/authkit/internal/config"
)

func sameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// setRefreshCookie deja el refresh token en una cookie httpOnly. El access
// token nunca viaja en cookie: va en el body y el cliente lo manda Bearer.
func setRefreshCookie(w http.ResponseWriter, sess config.Session, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sess.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   sess.CookieSecure,
		SameSite: sameSite(sess.CookieSameSite),
	})
}

func clearRefreshCookie(w http.ResponseWriter, sess config.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sess.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sess.CookieSecure,
		SameSite: sameSite(sess.CookieSameSite),
	})
}

// refreshFromRequest saca el refresh token de la cookie o, si no hay, del
// header X-Refresh-Token (clientes sin navegador).
func refreshFromRequest(r *http.Request, sess config.Session) string {
	if c, err := r.Cookie(sess.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(r.Header.Get("X-Refresh-Token"))
}

// wantsRefreshInBody reporta si el cliente pidió el refresh en el body
// (clientes sin cookie jar).
func wantsRefreshInBody(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Accept-Refresh-In-Body"), "true")
}
