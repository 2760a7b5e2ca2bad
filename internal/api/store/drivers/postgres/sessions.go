package postgres

import (
	"context"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, user_id, token_hash, device_id, device_name, expires_at, revoked, created_at, last_used_at`

func scanSession(row interface{ Scan(...any) error }) (domain.RefreshSession, error) {
	var s domain.RefreshSession
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.DeviceID, &s.DeviceName,
		&s.ExpiresAt, &s.Revoked, &s.CreatedAt, &s.LastUsedAt)
	if err != nil {
		return domain.RefreshSession{}, mapNotFound(err)
	}
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.LastUsedAt = s.LastUsedAt.UTC()
	return s, nil
}

func (r *sessionsRepo) UpsertSession(ctx context.Context, s domain.RefreshSession) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO refresh_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			id           = EXCLUDED.id,
			token_hash   = EXCLUDED.token_hash,
			device_name  = EXCLUDED.device_name,
			expires_at   = EXCLUDED.expires_at,
			revoked      = FALSE,
			created_at   = EXCLUDED.created_at,
			last_used_at = EXCLUDED.last_used_at`,
		s.ID, s.UserID, s.TokenHash, s.DeviceID, s.DeviceName,
		s.ExpiresAt, s.CreatedAt, s.LastUsedAt,
	)
	return mapConstraint(err)
}

// FindValidSession takes the row lock for the rest of the transaction. A
// concurrent rotation of the same token blocks here and then sees the row
// as revoked.
func (r *sessionsRepo) FindValidSession(ctx context.Context, hash string, now time.Time) (domain.RefreshSession, error) {
	return scanSession(r.db.QueryRow(ctx, `
		UPDATE refresh_sessions
		SET last_used_at = $1
		WHERE token_hash = $2 AND NOT revoked AND expires_at > $1
		RETURNING `+sessionColumns,
		now, hash,
	))
}

func (r *sessionsRepo) ConsumeSession(ctx context.Context, hash string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE refresh_sessions
		SET revoked = TRUE
		WHERE token_hash = $1 AND NOT revoked AND expires_at > $2`,
		hash, now,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, hash string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE refresh_sessions SET revoked = TRUE WHERE token_hash = $1 AND NOT revoked`, hash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *sessionsRepo) RevokeAllSessions(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE refresh_sessions SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *sessionsRepo) ListActiveSessions(
	ctx context.Context,
	userID string,
	now time.Time,
) ([]domain.RefreshSession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM refresh_sessions
		WHERE user_id = $1 AND NOT revoked AND expires_at > $2
		ORDER BY last_used_at DESC, created_at DESC`,
		userID, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RefreshSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) PurgeSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM refresh_sessions WHERE revoked OR expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
