package domain

import "time"

// TokenPurpose says what a single-use action token unlocks.
type TokenPurpose string

const (
	PurposeActivation TokenPurpose = "activation"
	PurposeReset      TokenPurpose = "reset"
)

// ActionToken is the one outstanding activation or reset token of a user.
// Only the SHA-256 fingerprint is stored.
type ActionToken struct {
	Purpose   TokenPurpose
	Hash      string
	ExpiresAt time.Time
}

type User struct {
	ID           string
	Email        string // lower-cased, unique
	FullName     string
	PasswordHash string  // argon2 encoded, empty only for federated accounts
	GoogleID     *string // Google "sub", unique when set
	IsActive     bool
	IsVerified   bool
	ActionToken  *ActionToken
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the user can sign in with a password.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

// FederatedIdentity is what an external identity provider vouches for.
type FederatedIdentity struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}
