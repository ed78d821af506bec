package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authkit/internal/auth"
	"github.com/dropDatabas3/authkit/internal/config"
	"github.com/dropDatabas3/authkit/internal/httpapi"
	"github.com/dropDatabas3/authkit/internal/rate"
	"github.com/dropDatabas3/authkit/internal/security/password"
	"github.com/dropDatabas3/authkit/internal/session"
	"github.com/dropDatabas3/authkit/internal/store"
	"github.com/dropDatabas3/authkit/internal/store/memory"
	"github.com/dropDatabas3/authkit/internal/token"
	"github.com/dropDatabas3/authkit/internal/verify"
)

// capturingNotifier guarda el último código "enviado" por flujo.
type capturingNotifier struct {
	mu         sync.Mutex
	verifyCode string
	resetCode  string
}

func (n *capturingNotifier) SendVerificationCode(_ context.Context, _, code string, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifyCode = code
	return nil
}

func (n *capturingNotifier) SendResetCode(_ context.Context, _, code string, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetCode = code
	return nil
}

func (n *capturingNotifier) lastReset() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resetCode
}

func (n *capturingNotifier) lastVerify() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verifyCode
}

// params débiles para que los tests no quemen CPU en argon2.
var testHash = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func newTestAPI(t *testing.T) (*httptest.Server, *http.Client, *capturingNotifier) {
	t.Helper()
	srv, client, notifier, _ := newTestAPIFull(t, nil)
	return srv, client, notifier
}

func newTestAPIFull(t *testing.T, limiter rate.Limiter) (*httptest.Server, *http.Client, *capturingNotifier, *memory.Store) {
	t.Helper()

	st := memory.New()
	access, err := token.NewCodec("access-secret-test", "HS256", "authkit-test", 15*time.Minute)
	require.NoError(t, err)
	refresh, err := token.NewCodec("refresh-secret-test", "HS256", "authkit-test", 7*24*time.Hour)
	require.NoError(t, err)

	sessions := session.NewService(session.Deps{
		Store:          st,
		Access:         access,
		Refresh:        refresh,
		Rotation:       "strict",
		ReuseDetection: true,
	})
	policy := password.FromConfig(config.Default().PasswordPolicy)
	authSvc := auth.NewService(auth.Deps{
		Store:    st,
		Sessions: sessions,
		Policy:   policy,
		Hash:     testHash,
	})
	notifier := &capturingNotifier{}
	verifySvc := verify.NewService(verify.Deps{
		Store:    st,
		Notifier: notifier,
		Policy:   policy,
		Hash:     testHash,
	})

	h := httpapi.NewRouter(httpapi.RouterDeps{
		Auth:    authSvc,
		Verify:  verifySvc,
		Session: config.Default().Session,
		Limiter: limiter,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}
	return srv, client, notifier, st
}

func postJSON(t *testing.T, client *http.Client, url string, body any, bearer string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type tokenBody struct {
	User struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		IsVerified bool   `json:"is_verified"`
	} `json:"user"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func TestAuthFlow_RegisterLoginRefreshLogout(t *testing.T) {
	srv, client, _ := newTestAPI(t)

	// register
	resp := postJSON(t, client, srv.URL+"/api/v1/auth/register", map[string]string{
		"name": "Ana", "email": "Ana@Example.com", "password": "Sup3rSegura!",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reg tokenBody
	decodeBody(t, resp, &reg)
	require.Equal(t, "ana@example.com", reg.User.Email)
	require.Equal(t, "Bearer", reg.TokenType)
	require.NotEmpty(t, reg.AccessToken)
	require.Empty(t, reg.RefreshToken) // va en cookie, no en body

	// la cookie de refresh quedó en el jar
	require.NotEmpty(t, client.Jar.Cookies(mustURL(t, srv.URL)))

	// me
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+reg.AccessToken)
	meResp, err := client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, meResp.StatusCode)
	meResp.Body.Close()

	// refresh rota la cookie
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/refresh", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ref tokenBody
	decodeBody(t, resp, &ref)
	require.NotEmpty(t, ref.AccessToken)

	// logout limpia y es idempotente
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// sin cookie, refresh rechaza
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/refresh", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRefresh_ReplayRejected(t *testing.T) {
	srv, client, _ := newTestAPI(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/auth/register", map[string]string{
		"name": "Beto", "email": "beto@example.com", "password": "Sup3rSegura!",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// guardamos el refresh emitido antes de rotar
	base := mustURL(t, srv.URL)
	var oldRefresh string
	for _, c := range client.Jar.Cookies(base) {
		if c.Name == "refresh_token" {
			oldRefresh = c.Value
		}
	}
	require.NotEmpty(t, oldRefresh)

	// primera rotación (vía cookie) funciona
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/refresh", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// replay del refresh viejo vía header: rechazado
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/refresh", nil)
	req.Header.Set("X-Refresh-Token", oldRefresh)
	noCookies := &http.Client{} // sin jar: que no viaje la cookie nueva
	replay, err := noCookies.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, replay.StatusCode)
	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, replay, &body)
	require.Equal(t, "REFRESH_REJECTED", body.Code)
}

func TestVerifyAndResetFlow(t *testing.T) {
	srv, client, notifier := newTestAPI(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/auth/register", map[string]string{
		"name": "Caro", "email": "caro@example.com", "password": "Sup3rSegura!",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reg tokenBody
	decodeBody(t, resp, &reg)
	require.False(t, reg.User.IsVerified)

	// pedir y confirmar verificación
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/verify/request", nil, reg.AccessToken)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
	code := notifier.lastVerify()
	require.Len(t, code, 6)

	resp = postJSON(t, client, srv.URL+"/api/v1/auth/verify/confirm", map[string]string{"code": code}, reg.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// segundo confirm: ya verificado
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/verify/confirm", map[string]string{"code": code}, reg.AccessToken)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// forgot no delata si el email existe
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/forgot-password", map[string]string{"email": "nadie@example.com"}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, client, srv.URL+"/api/v1/auth/forgot-password", map[string]string{"email": "caro@example.com"}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
	resetCode := notifier.lastReset()
	require.Len(t, resetCode, 6)

	// reset con código malo
	badCode := "000000"
	if resetCode == badCode {
		badCode = "000001"
	}
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/reset-password", map[string]string{
		"code": badCode, "new_password": "Otr4Segura!",
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// reset real
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/reset-password", map[string]string{
		"code": resetCode, "new_password": "Otr4Segura!",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// el refresh anterior murió con el reset: rotar falla
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/refresh", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// login con la contraseña nueva
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/login", map[string]string{
		"email": "caro@example.com", "password": "Otr4Segura!",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// la vieja ya no sirve
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/login", map[string]string{
		"email": "caro@example.com", "password": "Sup3rSegura!",
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRoutes_NotFoundAndHealth(t *testing.T) {
	srv, client, _ := newTestAPI(t)

	resp, err := client.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/no-such-route")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// me sin token
	resp, err = client.Get(srv.URL + "/api/v1/auth/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminDeleteUser(t *testing.T) {
	srv, client, _, st := newTestAPIFull(t, nil)

	// la cuenta a borrar
	resp := postJSON(t, client, srv.URL+"/api/v1/auth/register", map[string]string{
		"name": "Dani", "email": "dani@example.com", "password": "Sup3rSegura!",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var target tokenBody
	decodeBody(t, resp, &target)

	// un usuario común no pasa el guard
	operator := &http.Client{}
	resp = postJSON(t, operator, srv.URL+"/api/v1/auth/register", map[string]string{
		"name": "Eva", "email": "eva@example.com", "password": "Sup3rSegura!",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var op tokenBody
	decodeBody(t, resp, &op)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/admin/users/"+target.User.ID, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+op.AccessToken)
	denied, err := operator.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, denied.StatusCode)
	denied.Body.Close()

	// promovido a admin, el borrado pasa (el rol se lee del store en cada
	// request, no del token)
	role := store.RoleAdmin
	_, err = st.UpdateUser(context.Background(), op.User.ID, store.Patch{Role: &role})
	require.NoError(t, err)

	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/admin/users/"+target.User.ID, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+op.AccessToken)
	ok, err := operator.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, ok.StatusCode)
	ok.Body.Close()

	// la cuenta borrada pierde su access token junto con todo lo demás
	req, err = http.NewRequest(http.MethodGet, srv.URL+"/api/v1/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+target.AccessToken)
	gone, err := operator.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, gone.StatusCode)
	gone.Body.Close()

	// borrar dos veces: 404
	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/admin/users/"+target.User.ID, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+op.AccessToken)
	again, err := operator.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, again.StatusCode)
	again.Body.Close()
}

func TestRateLimit_PerEndpoint(t *testing.T) {
	limiter := rate.NewMemoryLimiter(rate.Config{Max: 2, Window: time.Hour})
	srv, client, _, _ := newTestAPIFull(t, limiter)

	login := func() *http.Response {
		return postJSON(t, client, srv.URL+"/api/v1/auth/login", map[string]string{
			"email": "nadie@example.com", "password": "loquesea",
		}, "")
	}

	// dos intentos entran (fallan por credenciales, no por limiter)
	for i := 0; i < 2; i++ {
		resp := login()
		require.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode)
		resp.Body.Close()
	}
	resp := login()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()

	// la ventana es por endpoint: register sigue abierto para la misma IP
	resp = postJSON(t, client, srv.URL+"/api/v1/auth/register", map[string]string{
		"name": "Fede", "email": "fede@example.com", "password": "Sup3rSegura!",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// y las rutas baratas no pagan limiter
	for i := 0; i < 5; i++ {
		h, err := client.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, h.StatusCode)
		h.Body.Close()
	}
}
