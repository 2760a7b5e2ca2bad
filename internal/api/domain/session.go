package domain

import "time"

// RefreshSession is the ledger row backing one refresh token. There is at
// most one row per (UserID, DeviceID).
type RefreshSession struct {
	ID         string
	UserID     string
	TokenHash  string // HMAC-SHA256 of the raw refresh token
	DeviceID   string
	DeviceName string
	ExpiresAt  time.Time
	Revoked    bool
	CreatedAt  time.Time // sign-in time of the device; kept across rotations
	LastUsedAt time.Time
}

// Device identifies the client a session is bound to.
type Device struct {
	ID   string
	Name string
}

// SessionView is what a user sees when listing their sessions.
type SessionView struct {
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// View strips the token hash and revocation state.
func (s RefreshSession) View() SessionView {
	return SessionView{
		DeviceID:   s.DeviceID,
		DeviceName: s.DeviceName,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.LastUsedAt,
		ExpiresAt:  s.ExpiresAt,
	}
}
