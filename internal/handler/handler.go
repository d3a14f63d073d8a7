// Package handler implements the advisory request handlers. Each request
// runs the same sequential pipeline: the auth middleware resolves the
// principal, the handler validates input, calls exactly one upstream
// provider (two sequential calls for pest diagnosis), persists where the
// contract says so, and shapes the response. Any failing stage
// short-circuits to a classified error; nothing retries.
package handler

import (
	"context"
	"encoding/json"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/agrimitra/agrimitra/internal/ai"
	"github.com/agrimitra/agrimitra/internal/model"
)

// JSONCompleter is the AI gateway surface used by the non-streaming
// handlers.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, model string, msgs []ai.Message) (json.RawMessage, error)
}

// ChatStreamer is the AI gateway surface used by the chat handler.
type ChatStreamer interface {
	StreamChat(ctx context.Context, model string, msgs []ai.Message) (io.ReadCloser, error)
}

// RecommendationStore persists a recommendation plus its audit entry.
type RecommendationStore interface {
	CreateWithActivity(ctx context.Context, rec *model.Recommendation, act *model.Activity) error
}

// DiagnosisStore persists a diagnosis plus its audit entry.
type DiagnosisStore interface {
	CreateWithActivity(ctx context.Context, d *model.Diagnosis, act *model.Activity) error
}

// WeatherProvider is the weather/geocoding surface used by the weather
// handler. Payloads pass through un-remapped.
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (json.RawMessage, error)
	Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error)
	Alerts(ctx context.Context, lat, lon float64) (json.RawMessage, error)
	Geocode(ctx context.Context, query string) (json.RawMessage, error)
	Reverse(ctx context.Context, lat, lon float64) (json.RawMessage, error)
}

// validate is the shared request validator. Struct tags carry the bound
// checks (latitude/longitude ranges, lengths, enums).
var validate = validator.New()
