package portfolios

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a portfolio record.
func (r *PGRepo) Create(ctx context.Context, portfolio Portfolio) error {
	const query = `
INSERT INTO portfolios (
    id, user_id, workflow_id, storage_key, mime_type, size_bytes, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		portfolio.ID,
		portfolio.UserID,
		portfolio.WorkflowID,
		portfolio.StorageKey,
		portfolio.MimeType,
		portfolio.SizeBytes,
		portfolio.CreatedAt,
	)
	return err
}

// GetByID returns a portfolio by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, portfolioID string) (Portfolio, error) {
	const query = `
SELECT id, user_id, workflow_id, storage_key, mime_type, size_bytes, created_at
FROM portfolios
WHERE id = $1 AND deleted_at IS NULL
LIMIT 1`
	var portfolio Portfolio
	err := r.DB.QueryRowContext(ctx, query, portfolioID).Scan(
		&portfolio.ID,
		&portfolio.UserID,
		&portfolio.WorkflowID,
		&portfolio.StorageKey,
		&portfolio.MimeType,
		&portfolio.SizeBytes,
		&portfolio.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Portfolio{}, ErrNotFound
		}
		return Portfolio{}, err
	}
	if portfolio.UserID != userID {
		return Portfolio{}, ErrForbidden
	}
	return portfolio, nil
}

// ListByUser lists portfolios ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Portfolio, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, user_id, workflow_id, storage_key, mime_type, size_bytes, created_at
FROM portfolios
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Portfolio
	for rows.Next() {
		var portfolio Portfolio
		if err := rows.Scan(
			&portfolio.ID,
			&portfolio.UserID,
			&portfolio.WorkflowID,
			&portfolio.StorageKey,
			&portfolio.MimeType,
			&portfolio.SizeBytes,
			&portfolio.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, portfolio)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
