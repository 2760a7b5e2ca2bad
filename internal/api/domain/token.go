package domain

import "time"

// TokenPair is the result of a login or rotation. The raw refresh token is
// returned exactly once and never stored.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string // "bearer"
	ExpiresIn        time.Duration
	RefreshExpiresAt time.Time
	DeviceID         string
	UserID           string
}
