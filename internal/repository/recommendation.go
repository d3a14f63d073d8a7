package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrimitra/agrimitra/internal/model"
)

// RecommendationRepository persists and reads crop recommendations.
type RecommendationRepository struct {
	pool *pgxpool.Pool
}

// NewRecommendationRepository returns a RecommendationRepository using the given pool.
func NewRecommendationRepository(pool *pgxpool.Pool) *RecommendationRepository {
	return &RecommendationRepository{pool: pool}
}

// CreateWithActivity inserts the recommendation and its audit entry in
// one transaction. A failing audit write rolls the record back; the pair
// either lands together or not at all.
func (r *RecommendationRepository) CreateWithActivity(ctx context.Context, rec *model.Recommendation, act *model.Activity) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if act.ID == uuid.Nil {
		act.ID = uuid.New()
	}
	act.ReferenceID = rec.ID

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO recommendations (id, user_id, soil_type, season, location, preferences, latitude, longitude, result, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		rec.ID,
		rec.UserID,
		rec.SoilType,
		rec.Season,
		rec.Location,
		rec.Preferences,
		rec.Latitude,
		rec.Longitude,
		rec.Result,
		rec.Status,
	).Scan(&rec.CreatedAt)
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

// ListByUser returns the user's recommendations ordered by created_at descending.
func (r *RecommendationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Recommendation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, soil_type, season, location, preferences, latitude, longitude, result, status, created_at
		FROM recommendations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Recommendation
	for rows.Next() {
		var rec model.Recommendation
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.SoilType,
			&rec.Season,
			&rec.Location,
			&rec.Preferences,
			&rec.Latitude,
			&rec.Longitude,
			&rec.Result,
			&rec.Status,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
