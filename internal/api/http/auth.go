package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jobassist/jobassist/internal/api/service"
	"github.com/jobassist/jobassist/pkg/httpx"
	"github.com/jobassist/jobassist/pkg/slogx"
)

// AuthHandler serves the /auth endpoints that deal with sessions and
// passwords.
type AuthHandler struct {
	Sessions    *service.SessionManager
	Credentials *service.CredentialService
	Cookies     CookieConfig
}

// HandleToken godoc
//
//	@Summary		Password login
//	@Description	Verifies email and password and opens a session for the calling device.
//	@Description	The refresh token is set as an HttpOnly cookie together with the device id.
//	@Tags			Auth
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			username		formData	string			true	"Email address"
//	@Param			password		formData	string			true	"Password"
//	@Param			X-Device-ID		header		string			false	"Device id for clients without cookies"
//	@Param			X-Device-Name	header		string			false	"Human readable device name"
//	@Success		200				{object}	TokenResponse
//	@Failure		400				{object}	ErrorResponse	"invalid_credentials"
//	@Failure		403				{object}	ErrorResponse	"account_not_activated"
//	@Header			200				{string}	Set-Cookie		"refresh_token, device_id"
//	@Router			/auth/token [post].
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Sessions.Login(r.Context(), username, password, deviceFromRequest(r))
	if err != nil {
		writeServiceError(w, r, "login", err)
		return
	}

	h.Cookies.setSession(w, pair)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

// HandleRefresh godoc
//
//	@Summary		Rotate refresh token
//	@Description	Exchanges the refresh token for a new pair bound to the same device.
//	@Description	Presenting a token that was already rotated revokes every session of the user.
//	@Tags			Auth
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			refresh_token	formData	string			false	"Refresh token when no cookie is available"
//	@Param			device_id		formData	string			false	"Device id when no cookie is available"
//	@Success		200				{object}	TokenResponse
//	@Failure		401				{object}	ErrorResponse	"invalid_token or device_mismatch"
//	@Router			/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := firstNonEmpty(cookieValue(r, refreshCookie), r.PostFormValue("refresh_token"))
	deviceID := deviceFromRequest(r).ID
	if raw == "" || deviceID == "" {
		ErrMissingCredentials.WriteError(w)
		return
	}

	pair, err := h.Sessions.Rotate(r.Context(), raw, deviceID)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			h.Cookies.clearRefresh(w)
		}
		writeServiceError(w, r, "refresh", err)
		return
	}

	h.Cookies.setSession(w, pair)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

// HandleLogout godoc
//
//	@Summary		Log out this device
//	@Description	Revokes the session behind the refresh cookie, if any, and clears the cookie.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	MessageResponse
//	@Router			/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	raw := firstNonEmpty(cookieValue(r, refreshCookie), r.PostFormValue("refresh_token"))
	if err := h.Sessions.Logout(r.Context(), raw); err != nil {
		writeServiceError(w, r, "logout", err)
		return
	}
	h.Cookies.clearRefresh(w)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// HandleLogoutAll godoc
//
//	@Summary		Log out every device
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	LogoutAllResponse
//	@Failure		401	{object}	ErrorResponse
//	@Router			/auth/logout/all [post].
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	n, err := h.Sessions.LogoutAll(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "logout all", err)
		return
	}
	h.Cookies.clearRefresh(w)
	httpx.WriteJSON(w, http.StatusOK, LogoutAllResponse{
		Message: "Logged out from all devices",
		Revoked: n,
	})
}

// HandleSessions godoc
//
//	@Summary		List active sessions
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		domain.SessionView
//	@Failure		401	{object}	ErrorResponse
//	@Router			/auth/sessions [get].
func (h *AuthHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	sessions, err := h.Sessions.ListSessions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "list sessions", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessions)
}

// HandleForgotPassword godoc
//
//	@Summary		Request a password reset email
//	@Description	Always answers the same way whether or not the address is registered.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ForgotPasswordRequest	true	"Account email"
//	@Success		200		{object}	MessageResponse
//	@Router			/auth/forgot_password [post].
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}

	err := h.Credentials.ForgotPassword(r.Context(), req.Email)
	if err != nil && !errors.Is(err, service.ErrInvalidEmail) {
		writeServiceError(w, r, "forgot password", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: "If an account exists, a reset email has been sent",
	})
}

// HandleResetPassword godoc
//
//	@Summary		Reset a password with an emailed token
//	@Description	Consumes the token, sets the new password and signs out every device.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ResetPasswordRequest	true	"Token and new password"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse	"invalid_token, token_expired or weak_password"
//	@Router			/auth/reset_password [post].
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Credentials.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			ErrActionToken.WriteError(w)
			return
		}
		writeServiceError(w, r, "reset password", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset successfully"})
}

// HandleChangePassword godoc
//
//	@Summary		Change the current password
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		ChangePasswordRequest	true	"Old and new password"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Router			/auth/change_password [post].
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	var req ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}

	err := h.Credentials.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		slogx.FromContext(r.Context()).Info("password change rejected", slog.String("reason", "old password mismatch"))
		ErrWrongOldPassword.WriteError(w)
		return
	default:
		writeServiceError(w, r, "change password", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}
