package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
	"github.com/jobassist/jobassist/internal/api/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, full_name, password_hash, google_id, is_active, is_verified,
	action_token_hash, action_token_purpose, action_token_expires_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u                    domain.User
		googleID             sql.NullString
		tokenHash, purpose   sql.NullString
		tokenExpires         sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &googleID, &u.IsActive, &u.IsVerified,
		&tokenHash, &purpose, &tokenExpires, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.GoogleID = mapNullStringPtr(googleID)
	if tokenHash.Valid && purpose.Valid && tokenExpires.Valid {
		u.ActionToken = &domain.ActionToken{
			Purpose:   domain.TokenPurpose(purpose.String),
			Hash:      tokenHash.String,
			ExpiresAt: fromMillis(tokenExpires.Int64),
		}
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	var tokenHash, purpose sql.NullString
	var tokenExpires sql.NullInt64
	if t := u.ActionToken; t != nil {
		tokenHash = sql.NullString{String: t.Hash, Valid: true}
		purpose = sql.NullString{String: string(t.Purpose), Valid: true}
		tokenExpires = sql.NullInt64{Int64: toMillis(t.ExpiresAt), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, u.PasswordHash, mapStringNull(u.GoogleID), u.IsActive, u.IsVerified,
		tokenHash, purpose, tokenExpires, toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	// email is declared COLLATE NOCASE
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) GetUserByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID))
}

func (r *usersRepo) LinkGoogleID(ctx context.Context, userID, googleID string, verified bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET google_id               = ?1,
		    password_hash           = CASE WHEN ?2 AND is_verified = 0 THEN '' ELSE password_hash END,
		    action_token_hash       = CASE WHEN ?2 AND is_verified = 0 THEN NULL ELSE action_token_hash END,
		    action_token_purpose    = CASE WHEN ?2 AND is_verified = 0 THEN NULL ELSE action_token_purpose END,
		    action_token_expires_at = CASE WHEN ?2 AND is_verified = 0 THEN NULL ELSE action_token_expires_at END,
		    is_active               = CASE WHEN ?2 THEN 1 ELSE is_active END,
		    is_verified             = CASE WHEN ?2 THEN 1 ELSE is_verified END,
		    updated_at              = ?3
		WHERE id = ?4`,
		googleID, verified, toMillis(time.Now()), userID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *usersRepo) SetActionToken(ctx context.Context, userID string, t domain.ActionToken) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET action_token_hash = ?, action_token_purpose = ?, action_token_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		t.Hash, string(t.Purpose), toMillis(t.ExpiresAt), toMillis(time.Now()), userID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *usersRepo) GetUserByActionToken(
	ctx context.Context,
	purpose domain.TokenPurpose,
	hash string,
) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE action_token_hash = ? AND action_token_purpose = ?`,
		hash, string(purpose),
	))
}

func (r *usersRepo) ClearActionToken(ctx context.Context, userID, hash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET action_token_hash = NULL, action_token_purpose = NULL, action_token_expires_at = NULL, updated_at = ?
		WHERE id = ? AND action_token_hash = ?`,
		toMillis(time.Now()), userID, hash,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) Activate(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = 1, is_verified = 1, updated_at = ? WHERE id = ?`,
		toMillis(time.Now()), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, toMillis(time.Now()), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) DeleteExpiredActionTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET action_token_hash = NULL, action_token_purpose = NULL, action_token_expires_at = NULL
		WHERE action_token_expires_at IS NOT NULL AND action_token_expires_at <= ?`,
		toMillis(now),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
