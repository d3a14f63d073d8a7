package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/ai"
	"github.com/agrimitra/agrimitra/internal/apperr"
	"github.com/agrimitra/agrimitra/internal/auth"
	"github.com/agrimitra/agrimitra/internal/model"
	"github.com/agrimitra/agrimitra/internal/response"
)

// CropHandler produces crop recommendations and persists them.
type CropHandler struct {
	AI     JSONCompleter
	Model  string
	Store  RecommendationStore
	Logger zerolog.Logger
}

type cropRequest struct {
	SoilType    string   `json:"soilType" validate:"required,max=100"`
	Season      string   `json:"season" validate:"required,max=100"`
	Location    string   `json:"location" validate:"required,max=200"`
	Preferences string   `json:"preferences" validate:"omitempty,max=500"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type cropResponse struct {
	ID              string             `json:"id"`
	Recommendations []model.CropAdvice `json:"recommendations"`
}

// Handle serves POST /api/crop-recommendation.
func (h *CropHandler) Handle(c echo.Context) error {
	var req cropRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	if err := validate.Struct(&req); err != nil {
		return response.FromAppError(c, apperr.Wrap(apperr.InvalidInput, "invalid recommendation input", err))
	}

	ctx := c.Request().Context()
	raw, err := h.AI.CompleteJSON(ctx, h.Model, []ai.Message{
		ai.TextMessage(model.RoleSystem, cropSystemPrompt),
		ai.TextMessage(model.RoleUser, buildCropPrompt(req)),
	})
	if err != nil {
		return h.fail(c, "upstream", err)
	}

	advice, err := remapCropAdvice(raw)
	if err != nil {
		return h.fail(c, "remap", err)
	}

	resultJSON, err := json.Marshal(advice)
	if err != nil {
		return h.fail(c, "remap", apperr.Wrap(apperr.UpstreamFailure, "encode recommendations", err))
	}

	rec := &model.Recommendation{
		UserID:      auth.Principal(c),
		SoilType:    req.SoilType,
		Season:      req.Season,
		Location:    req.Location,
		Preferences: req.Preferences,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Result:      resultJSON,
		Status:      model.RecordStatusCompleted,
	}
	act := &model.Activity{
		UserID:      rec.UserID,
		Kind:        model.ActivityKindRecommendation,
		Title:       "Crop recommendation",
		Description: fmt.Sprintf("%s soil, %s, %s", req.SoilType, req.Season, req.Location),
	}
	if err := h.Store.CreateWithActivity(ctx, rec, act); err != nil {
		return h.fail(c, "persist", apperr.Wrap(apperr.PersistenceFailure, "could not save recommendation", err))
	}

	return response.OK(c, cropResponse{ID: rec.ID.String(), Recommendations: advice}, "")
}

const cropSystemPrompt = "You are an agronomist. Respond only with a JSON object of the form " +
	`{"recommendations":[...]} where each entry describes one crop with its name, suitability, ` +
	"planting timing, expected yield, care instructions, water needs, market demand and risks."

func buildCropPrompt(req cropRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommend 3 to 5 crops for a farm with %s soil during the %s season near %s.",
		req.SoilType, req.Season, req.Location)
	if req.Latitude != nil && req.Longitude != nil {
		fmt.Fprintf(&b, " The farm is at latitude %.4f, longitude %.4f.", *req.Latitude, *req.Longitude)
	}
	if req.Preferences != "" {
		fmt.Fprintf(&b, " The farmer prefers: %s.", req.Preferences)
	}
	b.WriteString(" For each crop give name, suitability, timing, expected yield and care instructions.")
	return b.String()
}

// remapCropAdvice converts the provider's loosely-typed JSON into the
// handler's result shape. Field names vary run to run; each public field
// is picked from its known aliases.
func remapCropAdvice(raw json.RawMessage) ([]model.CropAdvice, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "decode recommendation payload", err)
	}

	var items []map[string]any
	for _, key := range []string{"recommendations", "crops", "results"} {
		if v, ok := envelope[key]; ok {
			if err := json.Unmarshal(v, &items); err == nil {
				break
			}
		}
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.UpstreamFailure, "recommendation payload has no crop list")
	}

	advice := make([]model.CropAdvice, 0, len(items))
	for _, item := range items {
		a := model.CropAdvice{
			Name:             pickString(item, "name", "crop", "cropName", "crop_name"),
			Suitability:      pickString(item, "suitability", "suitabilityScore", "suitability_score", "score"),
			Timing:           pickString(item, "timing", "plantingTime", "planting_time", "sowingTime", "sowing_time"),
			ExpectedYield:    pickString(item, "expectedYield", "expected_yield", "yield"),
			CareInstructions: pickString(item, "careInstructions", "care_instructions", "care", "instructions"),
			WaterNeeds:       pickString(item, "waterNeeds", "water_needs", "waterRequirement", "water_requirement"),
			MarketDemand:     pickString(item, "marketDemand", "market_demand", "demand"),
			Risks:            pickStrings(item, "risks", "challenges"),
		}
		if a.Name == "" {
			continue
		}
		advice = append(advice, a)
	}
	if len(advice) == 0 {
		return nil, apperr.New(apperr.UpstreamFailure, "recommendation payload had no usable entries")
	}
	return advice, nil
}

func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

func pickStrings(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		arr, ok := m[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(arr))
		for _, v := range arr {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (h *CropHandler) fail(c echo.Context, stage string, err error) error {
	h.Logger.Error().Err(err).Str("stage", stage).Msg("crop recommendation failed")
	var aerr *apperr.Error
	if !errors.As(err, &aerr) {
		aerr = apperr.Wrap(apperr.UpstreamFailure, "crop recommendation failed", err)
	}
	return response.FromAppError(c, aerr)
}
