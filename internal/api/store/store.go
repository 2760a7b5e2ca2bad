package store

import (
	"context"
	"errors"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are methods so that a Tx-scoped store hands
// out repositories bound to the same transaction.
type Store interface {
	Users() Users
	Sessions() Sessions
	CVs() CVs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user. Returns ErrAlreadyExists when the email
	// or Google id is taken.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	GetUserByGoogleID(ctx context.Context, googleID string) (domain.User, error)

	// LinkGoogleID attaches a Google identity and, when verified is true,
	// marks the account active and verified. Verifying an account that was
	// never verified also drops its password hash and pending action token:
	// nobody proved they own them.
	LinkGoogleID(ctx context.Context, userID, googleID string, verified bool) error

	// SetActionToken replaces whatever action token the user had.
	SetActionToken(ctx context.Context, userID string, t domain.ActionToken) error

	// GetUserByActionToken finds the user holding the token hash for purpose,
	// regardless of expiry. Callers check ExpiresAt themselves.
	GetUserByActionToken(ctx context.Context, purpose domain.TokenPurpose, hash string) (domain.User, error)

	// ClearActionToken consumes the token. It returns ErrNotFound when the
	// user no longer holds hash, so two concurrent consumers cannot both win.
	ClearActionToken(ctx context.Context, userID, hash string) error

	// Activate sets is_active and is_verified.
	Activate(ctx context.Context, userID string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// DeleteExpiredActionTokens clears action tokens that expired before now.
	DeleteExpiredActionTokens(ctx context.Context, now time.Time) (int64, error)
}

// Sessions is the refresh session ledger.
type Sessions interface {
	// UpsertSession writes s as the only session for (s.UserID, s.DeviceID),
	// replacing any previous row in one statement. Every column, created_at
	// included, is taken from s.
	UpsertSession(ctx context.Context, s domain.RefreshSession) error

	// FindValidSession returns the non-revoked, non-expired session with the
	// given hash and touches its last_used_at.
	FindValidSession(ctx context.Context, hash string, now time.Time) (domain.RefreshSession, error)

	// ConsumeSession revokes the session only if it is still valid. It
	// returns ErrNotFound when another caller got there first.
	ConsumeSession(ctx context.Context, hash string, now time.Time) error

	// RevokeSession revokes by hash. Unknown or already revoked hashes are
	// not an error.
	RevokeSession(ctx context.Context, hash string) (bool, error)

	// RevokeAllSessions revokes every session of the user and returns how
	// many were still active.
	RevokeAllSessions(ctx context.Context, userID string) (int64, error)

	// ListActiveSessions returns the user's valid sessions, most recently
	// used first.
	ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]domain.RefreshSession, error)

	// PurgeSessions deletes sessions that are revoked or expired.
	PurgeSessions(ctx context.Context, now time.Time) (int64, error)
}

type CVs interface {
	// CreateNextVersion stores cv as version max+1 for its user and returns
	// the stored row. cv.Version is ignored.
	CreateNextVersion(ctx context.Context, cv domain.CV) (domain.CV, error)

	// GetLatestCV returns the highest version, or ErrNotFound.
	GetLatestCV(ctx context.Context, userID string) (domain.CV, error)

	// ListCVs returns every version, newest first.
	ListCVs(ctx context.Context, userID string) ([]domain.CV, error)
}
