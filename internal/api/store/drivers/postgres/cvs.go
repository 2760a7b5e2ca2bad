package postgres

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
		cv     domain.CV
		source string
		data   []byte
	)
	if err := row.Scan(&cv.ID, &cv.UserID, &cv.Version, &source, &data, &cv.CreatedAt); err != nil {
		return domain.CV{}, mapNotFound(err)
	}
	if err := json.Unmarshal(data, &cv.Data); err != nil {
		return domain.CV{}, fmt.Errorf("decode cv %s: %w", cv.ID, err)
	}
	cv.Source = domain.CVSource(source)
	cv.CreatedAt = cv.CreatedAt.UTC()
	return cv, nil
}

func (r *cvsRepo) CreateNextVersion(ctx context.Context, cv domain.CV) (domain.CV, error) {
	data, err := json.Marshal(cv.Data.Normalize())
	if err != nil {
		return domain.CV{}, err
	}

	stored, err := scanCV(r.db.QueryRow(ctx, `
		INSERT INTO cvs (`+cvColumns+`)
		SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4::jsonb, $5
		FROM cvs WHERE user_id = $2
		RETURNING `+cvColumns,
		cv.ID, cv.UserID, string(cv.Source), data, cv.CreatedAt,
	))
	if err != nil {
		return domain.CV{}, mapConstraint(err)
	}
	return stored, nil
}

func (r *cvsRepo) GetLatestCV(ctx context.Context, userID string) (domain.CV, error) {
	return scanCV(r.db.QueryRow(ctx,
		`SELECT `+cvColumns+` FROM cvs WHERE user_id = $1 ORDER BY version DESC LIMIT 1`, userID))
}

func (r *cvsRepo) ListCVs(ctx context.Context, userID string) ([]domain.CV, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+cvColumns+` FROM cvs WHERE user_id = $1 ORDER BY version DESC`, userID)
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
