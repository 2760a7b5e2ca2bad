package http

import (
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
)

// TokenResponse is returned by login, the google callback and refresh. The
// refresh token itself only travels in its HttpOnly cookie.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"bearer"`
	ExpiresIn   int    `json:"expires_in" example:"900"`
}

func newTokenResponse(pair *domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   int(pair.ExpiresIn.Seconds()),
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LogoutAllResponse struct {
	Message string `json:"message"`
	Revoked int64  `json:"revoked"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	HasPassword  bool      `json:"has_password"`
	GoogleLinked bool      `json:"google_linked"`
	CreatedAt    time.Time `json:"created_at"`
}

func newUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
		HasPassword:  u.HasPassword(),
		GoogleLinked: u.GoogleID != nil,
		CreatedAt:    u.CreatedAt,
	}
}

type CVResponse struct {
	ID        string            `json:"id"`
	Version   int               `json:"version"`
	Source    string            `json:"source" example:"manual"`
	Data      domain.CVDocument `json:"data"`
	CreatedAt time.Time         `json:"created_at"`
}

func newCVResponse(cv domain.CV) CVResponse {
	return CVResponse{
		ID:        cv.ID,
		Version:   cv.Version,
		Source:    string(cv.Source),
		Data:      cv.Data.Normalize(),
		CreatedAt: cv.CreatedAt,
	}
}

// UploadResponse reports whether the uploaded file was recognised as a CV.
// CV is set only when a new version was stored.
type UploadResponse struct {
	IsCV   bool        `json:"is_cv"`
	Reason string      `json:"reason,omitempty"`
	CV     *CVResponse `json:"cv,omitempty"`
}

// HealthResponse is served by /, /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}
