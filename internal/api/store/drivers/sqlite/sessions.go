package sqlite

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
	var (
		s                             domain.RefreshSession
		expiresAt, createdAt, lastUse int64
	)
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.DeviceID, &s.DeviceName,
		&expiresAt, &s.Revoked, &createdAt, &lastUse)
	if err != nil {
		return domain.RefreshSession{}, mapNotFound(err)
	}
	s.ExpiresAt = fromMillis(expiresAt)
	s.CreatedAt = fromMillis(createdAt)
	s.LastUsedAt = fromMillis(lastUse)
	return s, nil
}

func (r *sessionsRepo) UpsertSession(ctx context.Context, s domain.RefreshSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			id           = excluded.id,
			token_hash   = excluded.token_hash,
			device_name  = excluded.device_name,
			expires_at   = excluded.expires_at,
			revoked      = 0,
			created_at   = excluded.created_at,
			last_used_at = excluded.last_used_at`,
		s.ID, s.UserID, s.TokenHash, s.DeviceID, s.DeviceName,
		toMillis(s.ExpiresAt), toMillis(s.CreatedAt), toMillis(s.LastUsedAt),
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) FindValidSession(ctx context.Context, hash string, now time.Time) (domain.RefreshSession, error) {
	return scanSession(r.db.QueryRowContext(ctx, `
		UPDATE refresh_sessions
		SET last_used_at = ?
		WHERE token_hash = ? AND revoked = 0 AND expires_at > ?
		RETURNING `+sessionColumns,
		toMillis(now), hash, toMillis(now),
	))
}

func (r *sessionsRepo) ConsumeSession(ctx context.Context, hash string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_sessions
		SET revoked = 1
		WHERE token_hash = ? AND revoked = 0 AND expires_at > ?`,
		hash, toMillis(now),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_sessions SET revoked = 1 WHERE token_hash = ? AND revoked = 0`, hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *sessionsRepo) RevokeAllSessions(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_sessions SET revoked = 1 WHERE user_id = ? AND revoked = 0`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) ListActiveSessions(
	ctx context.Context,
	userID string,
	now time.Time,
) ([]domain.RefreshSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM refresh_sessions
		WHERE user_id = ? AND revoked = 0 AND expires_at > ?
		ORDER BY last_used_at DESC, created_at DESC`,
		userID, toMillis(now),
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
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_sessions WHERE revoked = 1 OR expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
