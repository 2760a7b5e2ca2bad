package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jobassist/jobassist/internal/api/domain"
)

type cvsRepo struct {
	db dbtx
}

const cvColumns = `id, user_id, version, source, data, created_at`

func scanCV(row interface{ Scan(...any) error }) (domain.CV, error) {
	var (
		cv        domain.CV
		source    string
		data      string
		createdAt int64
	)
	if err := row.Scan(&cv.ID, &cv.UserID, &cv.Version, &source, &data, &createdAt); err != nil {
		return domain.CV{}, mapNotFound(err)
	}
	if err := json.Unmarshal([]byte(data), &cv.Data); err != nil {
		return domain.CV{}, fmt.Errorf("decode cv %s: %w", cv.ID, err)
	}
	cv.Source = domain.CVSource(source)
	cv.CreatedAt = fromMillis(createdAt)
	return cv, nil
}

func (r *cvsRepo) CreateNextVersion(ctx context.Context, cv domain.CV) (domain.CV, error) {
	data, err := json.Marshal(cv.Data.Normalize())
	if err != nil {
		return domain.CV{}, err
	}

	// The version is computed inside the INSERT so two concurrent writers
	// collide on UNIQUE (user_id, version) rather than sharing a number.
	stored, err := scanCV(r.db.QueryRowContext(ctx, `
		INSERT INTO cvs (`+cvColumns+`)
		SELECT ?, ?, COALESCE(MAX(version), 0) + 1, ?, ?, ?
		FROM cvs WHERE user_id = ?
		RETURNING `+cvColumns,
		cv.ID, cv.UserID, string(cv.Source), string(data), toMillis(cv.CreatedAt), cv.UserID,
	))
	if err != nil {
		return domain.CV{}, mapConstraint(err)
	}
	return stored, nil
}

func (r *cvsRepo) GetLatestCV(ctx context.Context, userID string) (domain.CV, error) {
	return scanCV(r.db.QueryRowContext(ctx,
		`SELECT `+cvColumns+` FROM cvs WHERE user_id = ? ORDER BY version DESC LIMIT 1`, userID))
}

func (r *cvsRepo) ListCVs(ctx context.Context, userID string) ([]domain.CV, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cvColumns+` FROM cvs WHERE user_id = ? ORDER BY version DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CV
	for rows.Next() {
		cv, err := scanCV(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}
