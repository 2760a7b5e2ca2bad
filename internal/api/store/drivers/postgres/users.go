package postgres

import (
	"context"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, full_name, password_hash, google_id, is_active, is_verified,
	action_token_hash, action_token_purpose, action_token_expires_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u            domain.User
		tokenHash    *string
		purpose      *string
		tokenExpires *time.Time
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.GoogleID, &u.IsActive, &u.IsVerified,
		&tokenHash, &purpose, &tokenExpires, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	if tokenHash != nil && purpose != nil && tokenExpires != nil {
		u.ActionToken = &domain.ActionToken{
			Purpose:   domain.TokenPurpose(*purpose),
			Hash:      *tokenHash,
			ExpiresAt: tokenExpires.UTC(),
		}
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	var tokenHash, purpose *string
	var tokenExpires *time.Time
	if t := u.ActionToken; t != nil {
		p := string(t.Purpose)
		tokenHash, purpose, tokenExpires = &t.Hash, &p, &t.ExpiresAt
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Email, u.FullName, u.PasswordHash, u.GoogleID, u.IsActive, u.IsVerified,
		tokenHash, purpose, tokenExpires, u.CreatedAt, u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *usersRepo) GetUserByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
}

func (r *usersRepo) LinkGoogleID(ctx context.Context, userID, googleID string, verified bool) error {
	// SET expressions read the row as it was before the update.
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET google_id               = $1,
		    password_hash           = CASE WHEN $2::boolean AND NOT is_verified THEN '' ELSE password_hash END,
		    action_token_hash       = CASE WHEN $2::boolean AND NOT is_verified THEN NULL ELSE action_token_hash END,
		    action_token_purpose    = CASE WHEN $2::boolean AND NOT is_verified THEN NULL ELSE action_token_purpose END,
		    action_token_expires_at = CASE WHEN $2::boolean AND NOT is_verified THEN NULL ELSE action_token_expires_at END,
		    is_active               = is_active OR $2::boolean,
		    is_verified             = is_verified OR $2::boolean,
		    updated_at              = $3
		WHERE id = $4`,
		googleID, verified, time.Now(), userID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(tag)
}

func (r *usersRepo) SetActionToken(ctx context.Context, userID string, t domain.ActionToken) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET action_token_hash = $1, action_token_purpose = $2, action_token_expires_at = $3, updated_at = $4
		WHERE id = $5`,
		t.Hash, string(t.Purpose), t.ExpiresAt, time.Now(), userID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(tag)
}

func (r *usersRepo) GetUserByActionToken(
	ctx context.Context,
	purpose domain.TokenPurpose,
	hash string,
) (domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE action_token_hash = $1 AND action_token_purpose = $2`,
		hash, string(purpose),
	))
}

func (r *usersRepo) ClearActionToken(ctx context.Context, userID, hash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET action_token_hash = NULL, action_token_purpose = NULL, action_token_expires_at = NULL, updated_at = $1
		WHERE id = $2 AND action_token_hash = $3`,
		time.Now(), userID, hash,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *usersRepo) Activate(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET is_active = TRUE, is_verified = TRUE, updated_at = $1 WHERE id = $2`,
		time.Now(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		newHash, time.Now(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *usersRepo) DeleteExpiredActionTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET action_token_hash = NULL, action_token_purpose = NULL, action_token_expires_at = NULL
		WHERE action_token_expires_at IS NOT NULL AND action_token_expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
