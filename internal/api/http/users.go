package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jobassist/jobassist/internal/api/service"
	"github.com/jobassist/jobassist/pkg/httpx"
)

type UsersHandler struct {
	Credentials *service.CredentialService
}

// HandleRegister godoc
//
//	@Summary		Register an account
//	@Description	Creates an inactive account and emails an activation link.
//	@Description	The response is identical when the address is already registered.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"Email, full name and password"
//	@Success		202		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse	"invalid_email or weak_password"
//	@Router			/users/ [post].
func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Credentials.Register(r.Context(), req.Email, req.FullName, req.Password); err != nil {
		writeServiceError(w, r, "register", err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, MessageResponse{
		Message: "Check your inbox to activate your account",
	})
}

// HandleActivate godoc
//
//	@Summary		Activate an account
//	@Tags			Users
//	@Produce		json
//	@Param			token	query		string	true	"Activation token from the email"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse	"invalid_token or token_expired"
//	@Router			/users/activate [get].
func (h *UsersHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Credentials.Activate(r.Context(), token); err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			ErrActionToken.WriteError(w)
			return
		}
		writeServiceError(w, r, "activate", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Account activated"})
}

// HandleGet godoc
//
//	@Summary		Get an account
//	@Description	Users can only read their own account.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User id"
//	@Success		200	{object}	UserResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	id := r.PathValue("id")
	if id == "me" {
		id = userID
	}
	if id != userID {
		ErrForbidden.WriteError(w)
		return
	}

	u, err := h.Credentials.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get user", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newUserResponse(u))
}
