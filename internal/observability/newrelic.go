// Package observability wires the New Relic agent. When no license key
// is configured everything here is a no-op and handlers run untouched.
package observability

import (
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/config"
)

// NewApplication starts the agent, or returns nil when disabled.
func NewApplication(cfg *config.ObservabilityConfig, logger zerolog.Logger) *newrelic.Application {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.ServiceName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("new relic disabled: could not start agent")
		return nil
	}
	return app
}

// Middleware records one transaction per request. Passing a nil app
// yields a pass-through middleware.
func Middleware(app *newrelic.Application) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if app == nil {
				return next(c)
			}
			txn := app.StartTransaction(c.Request().Method + " " + c.Path())
			defer txn.End()
			txn.SetWebRequestHTTP(c.Request())
			c.Response().Writer = txn.SetWebResponse(c.Response().Writer)
			c.SetRequest(c.Request().WithContext(newrelic.NewContext(c.Request().Context(), txn)))
			err := next(c)
			if err != nil {
				txn.NoticeError(err)
			}
			return err
		}
	}
}
