package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jobassist/jobassist/internal/api/service"
	"github.com/jobassist/jobassist/pkg/httpx"
	"github.com/jobassist/jobassist/pkg/slogx"
)

// APIError is the JSON error envelope every handler writes.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// ErrorResponse documents the envelope for swag.
type ErrorResponse struct {
	Error            string `json:"error" example:"invalid_token"`
	ErrorDescription string `json:"error_description" example:"refresh token is invalid or expired"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes e with no-cache headers.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

func NewAPIError(status int, code, description string) *APIError {
	return &APIError{StatusCode: status, Code: code, Description: description}
}

var (
	ErrInvalidRequest     = NewAPIError(http.StatusBadRequest, "invalid_request", "the request is malformed or missing required parameters")
	ErrInvalidContentType = NewAPIError(http.StatusUnsupportedMediaType, "invalid_request", "unsupported content type")
	ErrInvalidCredentials = NewAPIError(http.StatusBadRequest, "invalid_credentials", "incorrect username or password")
	ErrNotActivated       = NewAPIError(http.StatusForbidden, "account_not_activated", "account not activated")
	ErrInvalidToken       = NewAPIError(http.StatusUnauthorized, "invalid_token", "refresh token is invalid or expired")
	ErrMissingCredentials = NewAPIError(http.StatusUnauthorized, "invalid_token", "missing refresh token or device id")
	ErrDeviceMismatch     = NewAPIError(http.StatusUnauthorized, "device_mismatch", "refresh token is bound to another device")
	ErrFederatedFailure   = NewAPIError(http.StatusUnauthorized, "federated_auth_failure", "google authentication failed")
	ErrFederatedDisabled  = NewAPIError(http.StatusServiceUnavailable, "federated_auth_unavailable", "google login is not configured")
	ErrActionToken        = NewAPIError(http.StatusBadRequest, "invalid_token", "invalid token")
	ErrActionTokenExpired = NewAPIError(http.StatusBadRequest, "token_expired", "token expired")
	ErrInvalidEmail       = NewAPIError(http.StatusBadRequest, "invalid_email", "email address is not valid")
	ErrWeakPassword       = NewAPIError(http.StatusBadRequest, "weak_password", fmt.Sprintf("password must be at least %d characters", service.MinPasswordLength))
	ErrPasswordUnset      = NewAPIError(http.StatusBadRequest, "password_not_set", "account has no password; sign in with google or reset it")
	ErrWrongOldPassword   = NewAPIError(http.StatusBadRequest, "invalid_credentials", "old password is incorrect")
	ErrUserNotFound       = NewAPIError(http.StatusNotFound, "not_found", "user not found")
	ErrForbidden          = NewAPIError(http.StatusForbidden, "forbidden", "not allowed to access this resource")
	ErrUnsupportedFile    = NewAPIError(http.StatusBadRequest, "unsupported_file", "only .pdf, .jpg, .jpeg and .png files are accepted")
	ErrFileTooLarge       = NewAPIError(http.StatusRequestEntityTooLarge, "file_too_large", "uploaded file is too large")
	ErrEmptyCV            = NewAPIError(http.StatusBadRequest, "empty_cv", "cv has no content")
	ErrInvalidCV          = NewAPIError(http.StatusBadRequest, "invalid_cv", "cv could not be read or is malformed")
	ErrNoCV               = NewAPIError(http.StatusNotFound, "not_found", "no cv found")
	ErrEnrichment         = NewAPIError(http.StatusServiceUnavailable, "enrichment_unavailable", "cv analysis is temporarily unavailable")
	ErrServerError        = NewAPIError(http.StatusInternalServerError, "server_error", "the server encountered an unexpected condition")
)

// writeServiceError maps a service sentinel onto its APIError. Anything
// unrecognised is logged and reported as server_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, service.ErrInvalidCredentials):
		apiErr = ErrInvalidCredentials
	case errors.Is(err, service.ErrAccountNotActivated):
		apiErr = ErrNotActivated
	case errors.Is(err, service.ErrDeviceMismatch):
		apiErr = ErrDeviceMismatch
	case errors.Is(err, service.ErrFederatedAuthFailure):
		apiErr = ErrFederatedFailure
	case errors.Is(err, service.ErrTokenExpired):
		apiErr = ErrActionTokenExpired
	case errors.Is(err, service.ErrTokenInvalid):
		apiErr = ErrInvalidToken
	case errors.Is(err, service.ErrInvalidEmail):
		apiErr = ErrInvalidEmail
	case errors.Is(err, service.ErrWeakPassword):
		apiErr = ErrWeakPassword
	case errors.Is(err, service.ErrPasswordUnset):
		apiErr = ErrPasswordUnset
	case errors.Is(err, service.ErrUserNotFound):
		apiErr = ErrUserNotFound
	case errors.Is(err, service.ErrUnsupportedFile):
		apiErr = ErrUnsupportedFile
	case errors.Is(err, service.ErrFileTooLarge):
		apiErr = ErrFileTooLarge
	case errors.Is(err, service.ErrEmptyCV):
		apiErr = ErrEmptyCV
	case errors.Is(err, service.ErrInvalidCV):
		apiErr = ErrInvalidCV
	case errors.Is(err, service.ErrNoCV):
		apiErr = ErrNoCV
	case errors.Is(err, service.ErrEnrichmentUnavailable):
		apiErr = ErrEnrichment
	default:
		slogx.FromContext(r.Context()).Error(op+" failed", slog.Any("error", err))
		apiErr = ErrServerError
	}
	apiErr.WriteError(w)
}
