package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
	"github.com/jobassist/jobassist/internal/api/service"
	"github.com/jobassist/jobassist/internal/api/store/drivers/sqlite"
	"github.com/jobassist/jobassist/pkg/cryptox"
	"github.com/jobassist/jobassist/pkg/httpx"
	"github.com/jobassist/jobassist/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type mailbox struct {
	mu     sync.Mutex
	bodies []string
}

func (m *mailbox) Send(_ context.Context, _, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *mailbox) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.bodies)
	body := m.bodies[len(m.bodies)-1]
	i := strings.Index(body, "token=")
	require.GreaterOrEqual(t, i, 0)
	tok := body[i+len("token="):]
	if j := strings.IndexAny(tok, " \n"); j >= 0 {
		tok = tok[:j]
	}
	return tok
}

type stubProvider struct {
	identity domain.FederatedIdentity
}

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (p *stubProvider) Exchange(_ context.Context, code string) (domain.FederatedIdentity, error) {
	if code != "good-code" {
		return domain.FederatedIdentity{}, io.ErrUnexpectedEOF
	}
	return p.identity, nil
}

type stubExtractor struct{}

func (stubExtractor) PDFText([]byte) (string, error) { return "Alice Example, Go engineer", nil }

func (stubExtractor) ImageText(context.Context, []byte, string) (string, error) {
	return "Alice Example, Go engineer", nil
}

type stubEnricher struct{}

func (stubEnricher) Enrich(context.Context, string) (domain.CVParseResult, error) {
	return domain.CVParseResult{
		IsCV: true,
		Data: domain.CVDocument{FullName: "Alice Example", Skills: []string{"go"}},
	}, nil
}

type testAPI struct {
	srv  *httptest.Server
	mail *mailbox
}

func newTestAPI(t *testing.T, federated bool) *testAPI {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens, err := service.NewTokenIssuer(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("router-test-hash-key"),
		"jobassist-test", 15*time.Minute, 24*time.Hour,
	)
	require.NoError(t, err)

	hasher := cryptox.NewPasswordHasher("test-pepper")
	mail := &mailbox{}
	metrics := service.NewMetrics(prometheus.NewRegistry())

	sessions := &service.SessionManager{Store: st, Tokens: tokens, Hasher: hasher, Metrics: metrics}
	creds := &service.CredentialService{
		Store:       st,
		Hasher:      hasher,
		Notifier:    mail,
		FrontendURL: "https://app.example.com",
	}

	r := NewRouter(tokens.AccessVerifier(), "test", st, slogx.Discard())
	r.Sessions = sessions
	r.Credentials = creds
	r.CVs = &service.CVService{Store: st, Extractor: stubExtractor{}, Enricher: stubEnricher{}, Metrics: metrics}
	if federated {
		r.Federated = &service.FederatedLoginService{
			Store: st,
			Provider: &stubProvider{identity: domain.FederatedIdentity{
				Subject: "google-sub-1", Email: "gina@example.com", Name: "Gina", EmailVerified: true,
			}},
			Sessions: sessions,
		}
	}
	generous := httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
	r.Limits = httpx.RateLimitProfiles{Strict: generous, Moderate: generous, Lenient: generous}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, mail: mail}
}

func (a *testAPI) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testAPI) do(t *testing.T, c *http.Client, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func (a *testAPI) newRequest(t *testing.T, method, path string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	require.NoError(t, err)
	return req
}

func (a *testAPI) postJSON(t *testing.T, c *http.Client, path, bearer string, v any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req := a.newRequest(t, http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return a.do(t, c, req)
}

func (a *testAPI) get(t *testing.T, c *http.Client, path, bearer string) (*http.Response, []byte) {
	t.Helper()
	req := a.newRequest(t, http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (a *testAPI) login(t *testing.T, c *http.Client, email, password, deviceID string) (*http.Response, map[string]any) {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := a.newRequest(t, http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if deviceID != "" {
		req.Header.Set(headerDeviceID, deviceID)
	}
	return a.do(t, c, req)
}

func (a *testAPI) refresh(t *testing.T, c *http.Client) (*http.Response, map[string]any) {
	t.Helper()
	return a.do(t, c, a.newRequest(t, http.MethodPost, "/auth/refresh", nil))
}

func (a *testAPI) cookie(t *testing.T, c *http.Client, name string) string {
	t.Helper()
	u, err := url.Parse(a.srv.URL)
	require.NoError(t, err)
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// registerAndActivate runs the email flow and returns a jar-backed client.
func (a *testAPI) registerAndActivate(t *testing.T, email, password string) *http.Client {
	t.Helper()
	c := a.client(t)

	resp, _ := a.postJSON(t, c, "/users/", "", RegisterRequest{Email: email, FullName: "Alice", Password: password})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = a.get(t, c, "/users/activate?token="+url.QueryEscape(a.mail.lastToken(t)), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return c
}

func TestAliceSessionLifecycle(t *testing.T) {
	api := newTestAPI(t, false)
	c := api.registerAndActivate(t, "alice@example.com", "correct horse")

	resp, body := api.login(t, c, "alice@example.com", "correct horse", "laptop-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "bearer", body["token_type"])
	require.EqualValues(t, 900, body["expires_in"])
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	access := body["access_token"].(string)

	original := api.cookie(t, c, refreshCookie)
	require.NotEmpty(t, original)
	require.Equal(t, "laptop-1", api.cookie(t, c, deviceIDCookie))

	resp, raw := api.get(t, c, "/auth/sessions", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessions []domain.SessionView
	require.NoError(t, json.Unmarshal(raw, &sessions))
	require.Len(t, sessions, 1)
	require.Equal(t, "laptop-1", sessions[0].DeviceID)

	// Rotate twice.
	resp, body = api.refresh(t, c)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["access_token"])
	require.NotEqual(t, original, api.cookie(t, c, refreshCookie))

	resp, _ = api.refresh(t, c)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Replaying the first token revokes everything.
	replay := api.newRequest(t, http.MethodPost, "/auth/refresh", nil)
	replay.AddCookie(&http.Cookie{Name: refreshCookie, Value: original})
	replay.AddCookie(&http.Cookie{Name: deviceIDCookie, Value: "laptop-1"})
	resp, body = api.do(t, &http.Client{}, replay)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_token", body["error"])

	resp, _ = api.refresh(t, c)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw = api.get(t, c, "/auth/sessions", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, "[]", string(raw))
}

func TestLoginErrors(t *testing.T) {
	api := newTestAPI(t, false)
	c := api.client(t)

	resp, _ := api.postJSON(t, c, "/users/", "", RegisterRequest{Email: "bob@example.com", Password: "correct horse"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, body := api.login(t, c, "bob@example.com", "correct horse", "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "account_not_activated", body["error"])

	resp, body = api.login(t, c, "bob@example.com", "wrong password", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_credentials", body["error"])

	resp, body = api.login(t, c, "nobody@example.com", "whatever1", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_credentials", body["error"])

	req := api.newRequest(t, http.MethodPost, "/auth/token", strings.NewReader(`{"username":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = api.do(t, c, req)
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRegisterIsUniform(t *testing.T) {
	api := newTestAPI(t, false)
	c := api.client(t)

	first, firstBody := api.postJSON(t, c, "/users", "", RegisterRequest{Email: "carol@example.com", Password: "correct horse"})
	second, secondBody := api.postJSON(t, c, "/users/", "", RegisterRequest{Email: "Carol@Example.com", Password: "other horse"})
	require.Equal(t, http.StatusAccepted, first.StatusCode)
	require.Equal(t, first.StatusCode, second.StatusCode)
	require.Equal(t, firstBody, secondBody)

	resp, body := api.postJSON(t, c, "/users/", "", RegisterRequest{Email: "dave@example.com", Password: "short"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "weak_password", body["error"])

	resp, _ = api.get(t, c, "/users/activate?token=nope", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefreshDeviceMismatch(t *testing.T) {
	api := newTestAPI(t, false)
	c := api.registerAndActivate(t, "alice@example.com", "correct horse")

	resp, _ := api.login(t, c, "alice@example.com", "correct horse", "laptop-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := api.cookie(t, c, refreshCookie)

	form := url.Values{"refresh_token": {token}, "device_id": {"phone-9"}}
	req := api.newRequest(t, http.MethodPost, "/auth/refresh", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, body := api.do(t, &http.Client{}, req)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "device_mismatch", body["error"])

	// The legitimate device is unaffected.
	resp, _ = api.refresh(t, c)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = api.do(t, &http.Client{}, api.newRequest(t, http.MethodPost, "/auth/refresh", nil))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_token", body["error"])
}

func TestLogout(t *testing.T) {
	api := newTestAPI(t, false)
	c := api.registerAndActivate(t, "alice@example.com", "correct horse")

	_, body := api.login(t, c, "alice@example.com", "correct horse", "laptop-1")
	access := body["access_token"].(string)
	phone := api.client(t)
	resp, _ := api.login(t, phone, "alice@example.com", "correct horse", "phone-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for range 2 {
		resp, body = api.do(t, c, api.newRequest(t, http.MethodPost, "/auth/logout", nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "Logged out", body["message"])
	}
	require.Empty(t, api.cookie(t, c, refreshCookie))

	resp, body = api.postJSON(t, c, "/auth/logout/all", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["revoked"])

	resp, _ = api.refresh(t, phone)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = api.postJSON(t, c, "/auth/logout/all", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordEndpoints(t *testing.T) {
	api := newTestAPI(t, false)
	c := api.registerAndActivate(t, "alice@example.com", "correct horse")
	_, body := api.login(t, c, "alice@example.com", "correct horse", "laptop-1")
	access := body["access_token"].(string)

	resp, body := api.postJSON(t, c, "/auth/change_password", access, ChangePasswordRequest{OldPassword: "wrong one", NewPassword: "battery staple"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_credentials", body["error"])

	resp, _ = api.postJSON(t, c, "/auth/change_password", access, ChangePasswordRequest{OldPassword: "correct horse", NewPassword: "battery staple"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	unknown, unknownBody := api.postJSON(t, c, "/auth/forgot_password", "", ForgotPasswordRequest{Email: "ghost@example.com"})
	known, knownBody := api.postJSON(t, c, "/auth/forgot_password", "", ForgotPasswordRequest{Email: "alice@example.com"})
	require.Equal(t, http.StatusOK, unknown.StatusCode)
	require.Equal(t, unknown.StatusCode, known.StatusCode)
	require.Equal(t, unknownBody, knownBody)

	token := api.mail.lastToken(t)
	resp, _ = api.postJSON(t, c, "/auth/reset_password", "", ResetPasswordRequest{Token: token, NewPassword: "new password 1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = api.postJSON(t, c, "/auth/reset_password", "", ResetPasswordRequest{Token: token, NewPassword: "new password 2"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_token", body["error"])

	// Reset signed every device out.
	resp, _ = api.refresh(t, c)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = api.login(t, c, "alice@example.com", "new password 1", "laptop-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetUser(t *testing.T) {
	api := newTestAPI(t, false)
	c := api.registerAndActivate(t, "alice@example.com", "correct horse")
	_, body := api.login(t, c, "alice@example.com", "correct horse", "laptop-1")
	access := body["access_token"].(string)

	resp, raw := api.get(t, c, "/users/me", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me UserResponse
	require.NoError(t, json.Unmarshal(raw, &me))
	require.Equal(t, "alice@example.com", me.Email)
	require.True(t, me.IsActive)
	require.True(t, me.HasPassword)

	resp, _ = api.get(t, c, "/users/"+me.ID, access)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = api.get(t, c, "/users/someone-else", access)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = api.get(t, c, "/users/"+me.ID, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCVEndpoints(t *testing.T) {
	api := newTestAPI(t, false)
	c := api.registerAndActivate(t, "alice@example.com", "correct horse")
	_, body := api.login(t, c, "alice@example.com", "correct horse", "laptop-1")
	access := body["access_token"].(string)

	resp, _ := api.get(t, c, "/cvs/me/latest", access)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = api.postJSON(t, c, "/cvs/manual", access, domain.CVDocument{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "empty_cv", body["error"])

	resp, body = api.postJSON(t, c, "/cvs/manual", access, domain.CVDocument{FullName: "Alice", Summary: "Engineer"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.EqualValues(t, 1, body["version"])
	require.Equal(t, "manual", body["source"])

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cv.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := api.newRequest(t, http.MethodPost, "/cvs/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+access)
	resp, body = api.do(t, c, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["is_cv"])
	cv := body["cv"].(map[string]any)
	require.EqualValues(t, 2, cv["version"])
	require.Equal(t, "ai", cv["source"])
	require.Equal(t, "alice@example.com", cv["data"].(map[string]any)["email"])

	resp, raw := api.get(t, c, "/cvs/me", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []CVResponse
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 2)
	require.Equal(t, 2, list[0].Version)
	require.Equal(t, 1, list[1].Version)

	resp, raw = api.get(t, c, "/cvs/me/latest", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var latest CVResponse
	require.NoError(t, json.Unmarshal(raw, &latest))
	require.Equal(t, 2, latest.Version)

	buf.Reset()
	mw = multipart.NewWriter(&buf)
	fw, err = mw.CreateFormFile("file", "cv.docx")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("nope"))
	require.NoError(t, mw.Close())
	req = api.newRequest(t, http.MethodPost, "/cvs/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+access)
	resp, body = api.do(t, c, req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "unsupported_file", body["error"])
}

func TestGoogleFlow(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		api := newTestAPI(t, false)
		resp, _ := api.get(t, api.client(t), "/auth/google/login", "")
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("round trip", func(t *testing.T) {
		api := newTestAPI(t, true)
		c := api.client(t)

		resp, _ := api.get(t, c, "/auth/google/login", "")
		require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		state := loc.Query().Get("state")
		require.NotEmpty(t, state)
		require.Equal(t, state, api.cookie(t, c, stateCookie))

		resp, raw := api.get(t, c, "/auth/google/callback?code=good-code&state="+url.QueryEscape(state), "")
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
		require.NotEmpty(t, api.cookie(t, c, refreshCookie))
		require.NotEmpty(t, api.cookie(t, c, deviceIDCookie))
		require.Empty(t, api.cookie(t, c, stateCookie))
	})

	t.Run("state mismatch", func(t *testing.T) {
		api := newTestAPI(t, true)
		c := api.client(t)

		resp, _ := api.get(t, c, "/auth/google/login", "")
		require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

		resp, _ = api.get(t, c, "/auth/google/callback?code=good-code&state=forged", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Empty(t, api.cookie(t, c, refreshCookie))
	})
}

func TestSystemEndpoints(t *testing.T) {
	api := newTestAPI(t, false)
	c := api.client(t)

	for _, path := range []string{"/", "/livez", "/readyz"} {
		resp, raw := api.get(t, c, path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		var h HealthResponse
		require.NoError(t, json.Unmarshal(raw, &h))
		require.Equal(t, "ok", h.Status)
		require.Equal(t, "test", h.Version)
	}

	resp, _ := api.get(t, c, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = api.get(t, c, "/nope", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
