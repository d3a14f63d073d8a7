package handler

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/apperr"
	"github.com/agrimitra/agrimitra/internal/response"
)

// WeatherHandler dispatches weather sub-operations to the provider.
// Whether the route requires a credential is decided at wiring time, not
// here.
type WeatherHandler struct {
	Provider WeatherProvider
	Logger   zerolog.Logger
}

type weatherRequest struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
	Type      string   `json:"type" validate:"required,oneof=current forecast alerts geocode reverse"`
	Query     string   `json:"query" validate:"omitempty,min=1,max=200"`
}

// Handle serves POST /api/weather. The provider payload is returned
// un-remapped; callers know the third-party shape.
func (h *WeatherHandler) Handle(c echo.Context) error {
	var req weatherRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	if err := validate.Struct(&req); err != nil {
		return response.FromAppError(c, apperr.Wrap(apperr.InvalidInput, "invalid weather input", err))
	}

	ctx := c.Request().Context()

	if req.Type == "geocode" {
		if req.Query == "" {
			return response.FromAppError(c, apperr.New(apperr.InvalidInput, "query is required for geocode"))
		}
		payload, err := h.Provider.Geocode(ctx, req.Query)
		if err != nil {
			return h.fail(c, err)
		}
		return response.OK(c, payload, "")
	}

	if req.Latitude == nil || req.Longitude == nil {
		return response.FromAppError(c, apperr.New(apperr.InvalidInput, "latitude and longitude are required"))
	}
	lat, lon := *req.Latitude, *req.Longitude

	var (
		payload any
		err     error
	)
	switch req.Type {
	case "current":
		payload, err = h.Provider.Current(ctx, lat, lon)
	case "forecast":
		payload, err = h.Provider.Forecast(ctx, lat, lon)
	case "alerts":
		payload, err = h.Provider.Alerts(ctx, lat, lon)
	case "reverse":
		payload, err = h.Provider.Reverse(ctx, lat, lon)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, payload, "")
}

func (h *WeatherHandler) fail(c echo.Context, err error) error {
	h.Logger.Error().Err(err).Msg("weather lookup failed")
	var aerr *apperr.Error
	if !errors.As(err, &aerr) {
		aerr = apperr.Wrap(apperr.UpstreamFailure, "weather lookup failed", err)
	}
	return response.FromAppError(c, aerr)
}
