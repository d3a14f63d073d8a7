package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrimitra/agrimitra/internal/model"
)

// DiagnosisRepository persists and reads pest diagnoses.
type DiagnosisRepository struct {
	pool *pgxpool.Pool
}

// NewDiagnosisRepository returns a DiagnosisRepository using the given pool.
func NewDiagnosisRepository(pool *pgxpool.Pool) *DiagnosisRepository {
	return &DiagnosisRepository{pool: pool}
}

// CreateWithActivity inserts the diagnosis and its audit entry in one
// transaction.
func (r *DiagnosisRepository) CreateWithActivity(ctx context.Context, d *model.Diagnosis, act *model.Activity) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if act.ID == uuid.Nil {
		act.ID = uuid.New()
	}
	act.ReferenceID = d.ID

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO diagnoses (id, user_id, image_url, crop_type, result, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		d.ID,
		d.UserID,
		d.ImageURL,
		d.CropType,
		d.Result,
		d.Status,
	).Scan(&d.CreatedAt)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO activities (id, user_id, kind, title, description, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		act.ID,
		act.UserID,
		act.Kind,
		act.Title,
		act.Description,
		act.ReferenceID,
	).Scan(&act.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListByUser returns the user's diagnoses ordered by created_at descending.
func (r *DiagnosisRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Diagnosis, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, image_url, crop_type, result, status, created_at
		FROM diagnoses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Diagnosis
	for rows.Next() {
		var d model.Diagnosis
		if err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.ImageURL,
			&d.CropType,
			&d.Result,
			&d.Status,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
