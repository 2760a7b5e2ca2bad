package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrAccountNotActivated  = errors.New("account_not_activated")
	ErrFederatedAuthFailure = errors.New("federated_auth_failure")
	ErrTokenInvalid         = errors.New("invalid_token")
	ErrTokenExpired         = errors.New("token_expired")
	ErrDeviceMismatch       = errors.New("device_mismatch")

	// ErrTokenReused is reported to clients as ErrTokenInvalid. By the time
	// it is returned every session of the subject has been revoked.
	ErrTokenReused = fmt.Errorf("%w: refresh token reused", ErrTokenInvalid)

	ErrInvalidEmail  = errors.New("invalid_email")
	ErrWeakPassword  = errors.New("weak_password")
	ErrUserNotFound  = errors.New("user_not_found")
	ErrPasswordUnset = errors.New("password_not_set")
)

// MinPasswordLength is enforced on registration, reset and change.
const MinPasswordLength = 8
