package handler

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/auth"
	"github.com/agrimitra/agrimitra/internal/model"
	"github.com/agrimitra/agrimitra/internal/response"
)

// RecommendationLister reads a user's saved recommendations.
type RecommendationLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Recommendation, error)
}

// DiagnosisLister reads a user's saved diagnoses.
type DiagnosisLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Diagnosis, error)
}

// ActivityLister reads a user's audit trail.
type ActivityLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Activity, error)
}

// HistoryHandler serves the read-only history routes. All of them run
// behind the auth middleware and only return the caller's own rows.
type HistoryHandler struct {
	Recommendations RecommendationLister
	Diagnoses       DiagnosisLister
	Activities      ActivityLister
	Logger          zerolog.Logger
}

// ListRecommendations returns the caller's recommendations (GET /api/recommendations).
func (h *HistoryHandler) ListRecommendations(c echo.Context) error {
	list, err := h.Recommendations.ListByUser(c.Request().Context(), auth.Principal(c), limitParam(c))
	if err != nil {
		h.Logger.Error().Err(err).Msg("list recommendations failed")
		return response.InternalError(c, "could not list recommendations", "persistence_failure")
	}
	return response.OK(c, map[string]any{"recommendations": list}, "")
}

// ListDiagnoses returns the caller's diagnoses (GET /api/diagnoses).
func (h *HistoryHandler) ListDiagnoses(c echo.Context) error {
	list, err := h.Diagnoses.ListByUser(c.Request().Context(), auth.Principal(c), limitParam(c))
	if err != nil {
		h.Logger.Error().Err(err).Msg("list diagnoses failed")
		return response.InternalError(c, "could not list diagnoses", "persistence_failure")
	}
	return response.OK(c, map[string]any{"diagnoses": list}, "")
}

// ListActivities returns the caller's audit trail (GET /api/activities).
func (h *HistoryHandler) ListActivities(c echo.Context) error {
	list, err := h.Activities.ListByUser(c.Request().Context(), auth.Principal(c), limitParam(c))
	if err != nil {
		h.Logger.Error().Err(err).Msg("list activities failed")
		return response.InternalError(c, "could not list activities", "persistence_failure")
	}
	return response.OK(c, map[string]any{"activities": list}, "")
}

func limitParam(c echo.Context) int {
	n, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || n <= 0 || n > 200 {
		return 50
	}
	return n
}
