package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/jobassist/jobassist/internal/api/service"
	"github.com/jobassist/jobassist/pkg/cryptox"
	"github.com/jobassist/jobassist/pkg/httpx"
	"github.com/jobassist/jobassist/pkg/slogx"
)

// GoogleHandler drives the browser round-trip to Google. A nil Federated
// service means google login is not configured.
type GoogleHandler struct {
	Federated *service.FederatedLoginService
	Cookies   CookieConfig
}

// HandleLogin godoc
//
//	@Summary		Start google sign-in
//	@Description	Redirects to Google's consent screen. A state cookie protects the round-trip.
//	@Tags			Auth
//	@Success		307
//	@Failure		503	{object}	ErrorResponse	"google login not configured"
//	@Router			/auth/google/login [get].
func (h *GoogleHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.Federated == nil {
		ErrFederatedDisabled.WriteError(w)
		return
	}

	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		writeServiceError(w, r, "google login", err)
		return
	}
	h.Cookies.setState(w, state)
	httpx.NoCache(w)
	http.Redirect(w, r, h.Federated.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback godoc
//
//	@Summary		Complete google sign-in
//	@Description	Exchanges the authorization code, links or provisions the account and opens a session.
//	@Tags			Auth
//	@Produce		json
//	@Param			code	query		string	true	"Authorization code"
//	@Param			state	query		string	true	"State echoed by Google"
//	@Success		200		{object}	TokenResponse
//	@Failure		401		{object}	ErrorResponse	"federated_auth_failure"
//	@Router			/auth/google/callback [get].
func (h *GoogleHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if h.Federated == nil {
		ErrFederatedDisabled.WriteError(w)
		return
	}

	q := r.URL.Query()
	state := strings.TrimSpace(q.Get("state"))
	expected := cookieValue(r, stateCookie)
	h.Cookies.clearState(w)
	if state == "" || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		slogx.FromContext(r.Context()).Warn("google callback state mismatch")
		ErrFederatedFailure.WriteError(w)
		return
	}
	if e := q.Get("error"); e != "" {
		slogx.FromContext(r.Context()).Info("google sign-in declined", "error", e)
		ErrFederatedFailure.WriteError(w)
		return
	}

	pair, err := h.Federated.Callback(r.Context(), q.Get("code"), deviceFromRequest(r))
	if err != nil {
		writeServiceError(w, r, "google callback", err)
		return
	}

	h.Cookies.setSession(w, pair)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}
