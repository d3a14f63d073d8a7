package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/ai"
	"github.com/agrimitra/agrimitra/internal/apperr"
	"github.com/agrimitra/agrimitra/internal/auth"
	"github.com/agrimitra/agrimitra/internal/model"
	"github.com/agrimitra/agrimitra/internal/response"
)

// PestHandler runs the two-phase pest diagnosis: a cheap relevance check
// on the photo, then the full diagnostic call only if the check passes.
// A single-phase prompt hallucinated plausible diagnoses for portraits
// and food photos; the pre-check bounds that failure mode.
type PestHandler struct {
	AI     JSONCompleter
	Model  string
	Store  DiagnosisStore
	Logger zerolog.Logger
}

type pestRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,url,max=2048"`
	CropType string `json:"cropType" validate:"omitempty,max=100"`
}

type pestResponse struct {
	ID        string           `json:"id"`
	Diagnosis model.PestReport `json:"diagnosis"`
}

// relevanceCheck is the phase-1 verdict: Rejected(reason) or Accepted.
type relevanceCheck struct {
	IsValid bool   `json:"isValid"`
	Reason  string `json:"reason"`
}

// Handle serves POST /api/pest-diagnosis.
func (h *PestHandler) Handle(c echo.Context) error {
	var req pestRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	if err := validate.Struct(&req); err != nil {
		return response.FromAppError(c, apperr.Wrap(apperr.InvalidInput, "invalid diagnosis input", err))
	}

	ctx := c.Request().Context()

	check, err := h.checkRelevance(ctx, req.ImageURL)
	if err != nil {
		return h.fail(c, "precheck", err)
	}
	if !check.IsValid {
		// Rejected branch: no phase 2, no persistence.
		aerr := apperr.New(apperr.InvalidInput, "Invalid photo").WithReason(check.Reason)
		h.Logger.Info().Str("reason", check.Reason).Msg("pest photo rejected by relevance check")
		return response.FromAppError(c, aerr)
	}

	report, err := h.diagnose(ctx, req)
	if err != nil {
		return h.fail(c, "upstream", err)
	}

	resultJSON, err := json.Marshal(report)
	if err != nil {
		return h.fail(c, "remap", apperr.Wrap(apperr.UpstreamFailure, "encode diagnosis", err))
	}

	d := &model.Diagnosis{
		UserID:   auth.Principal(c),
		ImageURL: req.ImageURL,
		CropType: req.CropType,
		Result:   resultJSON,
		Status:   model.RecordStatusCompleted,
	}
	act := &model.Activity{
		UserID:      d.UserID,
		Kind:        model.ActivityKindDiagnosis,
		Title:       "Pest diagnosis",
		Description: describeDiagnosis(report, req.CropType),
	}
	if err := h.Store.CreateWithActivity(ctx, d, act); err != nil {
		return h.fail(c, "persist", apperr.Wrap(apperr.PersistenceFailure, "could not save diagnosis", err))
	}

	return response.OK(c, pestResponse{ID: d.ID.String(), Diagnosis: *report}, "")
}

const relevancePrompt = "Look at this photo and answer only whether it shows agricultural content " +
	"relevant to pest or plant-disease diagnosis (a plant, leaf, crop, field or a pest itself). " +
	`Respond only with JSON: {"isValid": true|false, "reason": "<short reason>"}.`

func (h *PestHandler) checkRelevance(ctx context.Context, imageURL string) (*relevanceCheck, error) {
	raw, err := h.AI.CompleteJSON(ctx, h.Model, []ai.Message{
		ai.ImageMessage(relevancePrompt, imageURL),
	})
	if err != nil {
		return nil, err
	}
	var check relevanceCheck
	if err := json.Unmarshal(raw, &check); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "decode relevance check", err)
	}
	return &check, nil
}

const diagnosisPrompt = "You are a plant pathologist. Diagnose the pest or disease in this photo%s. " +
	"Respond only with a JSON object containing: pest (name), confidence (0-1), severity (low|medium|high), " +
	"description, symptoms (array), causes (array), treatments (array of {method, description, timing, precautions}), " +
	"preventiveMeasures (array), affectedParts (array), spreadRisk (low|medium|high)."

func (h *PestHandler) diagnose(ctx context.Context, req pestRequest) (*model.PestReport, error) {
	hint := ""
	if req.CropType != "" {
		hint = fmt.Sprintf(" (the farmer says the crop is %s)", req.CropType)
	}
	raw, err := h.AI.CompleteJSON(ctx, h.Model, []ai.Message{
		ai.ImageMessage(fmt.Sprintf(diagnosisPrompt, hint), req.ImageURL),
	})
	if err != nil {
		return nil, err
	}
	return remapPestReport(raw)
}

// remapPestReport converts the provider's JSON into the public report
// shape, tolerating the field-name drift of JSON-mode output.
func remapPestReport(raw json.RawMessage) (*model.PestReport, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "decode diagnosis payload", err)
	}

	report := &model.PestReport{
		Pest:               pickString(m, "pest", "pestName", "pest_name", "identifiedPest", "identified_pest", "name"),
		Severity:           pickString(m, "severity"),
		Description:        pickString(m, "description", "summary"),
		Symptoms:           pickStrings(m, "symptoms"),
		Causes:             pickStrings(m, "causes"),
		PreventiveMeasures: pickStrings(m, "preventiveMeasures", "preventive_measures", "prevention"),
		AffectedParts:      pickStrings(m, "affectedParts", "affected_parts", "affectedPlantParts"),
		SpreadRisk:         pickString(m, "spreadRisk", "spread_risk"),
	}
	switch v := m["confidence"].(type) {
	case float64:
		if v > 1 {
			v = v / 100 // some models answer in percent
		}
		report.Confidence = v
	}
	for _, key := range []string{"treatments", "treatmentRecommendations", "treatment_recommendations"} {
		arr, ok := m[key].([]any)
		if !ok {
			continue
		}
		for _, it := range arr {
			tm, ok := it.(map[string]any)
			if !ok {
				continue
			}
			report.Treatments = append(report.Treatments, model.Treatment{
				Method:      pickString(tm, "method", "name"),
				Description: pickString(tm, "description"),
				Timing:      pickString(tm, "timing", "when"),
				Precautions: pickString(tm, "precautions", "precaution"),
			})
		}
		break
	}

	if report.Pest == "" {
		return nil, apperr.New(apperr.UpstreamFailure, "diagnosis payload named no pest")
	}
	return report, nil
}

func describeDiagnosis(report *model.PestReport, cropType string) string {
	if cropType != "" {
		return fmt.Sprintf("%s on %s", report.Pest, cropType)
	}
	return report.Pest
}

func (h *PestHandler) fail(c echo.Context, stage string, err error) error {
	h.Logger.Error().Err(err).Str("stage", stage).Msg("pest diagnosis failed")
	var aerr *apperr.Error
	if !errors.As(err, &aerr) {
		aerr = apperr.Wrap(apperr.UpstreamFailure, "pest diagnosis failed", err)
	}
	return response.FromAppError(c, aerr)
}
