package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/ai"
	"github.com/agrimitra/agrimitra/internal/auth"
	"github.com/agrimitra/agrimitra/internal/config"
	"github.com/agrimitra/agrimitra/internal/handler"
	"github.com/agrimitra/agrimitra/internal/observability"
	"github.com/agrimitra/agrimitra/internal/repository"
	"github.com/agrimitra/agrimitra/internal/response"
	"github.com/agrimitra/agrimitra/internal/weather"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New builds the Echo server and registers routes.
// Caller must provide a non-nil pool.
func New(cfg *config.Config, pool *pgxpool.Pool, nrApp *newrelic.Application, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	e.Use(observability.Middleware(nrApp))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		MaxAge:       300,
	}))

	aiClient := ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey,
		time.Duration(cfg.AI.TimeoutSec)*time.Second, logger)
	weatherClient := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey,
		time.Duration(cfg.Weather.TimeoutSec)*time.Second, logger)

	recRepo := repository.NewRecommendationRepository(pool)
	diagRepo := repository.NewDiagnosisRepository(pool)
	actRepo := repository.NewActivityRepository(pool)

	chatH := &handler.ChatHandler{AI: aiClient, Model: cfg.AI.ChatModel, Logger: logger}
	cropH := &handler.CropHandler{AI: aiClient, Model: cfg.AI.JSONModel, Store: recRepo, Logger: logger}
	pestH := &handler.PestHandler{AI: aiClient, Model: cfg.AI.JSONModel, Store: diagRepo, Logger: logger}
	weatherH := &handler.WeatherHandler{Provider: weatherClient, Logger: logger}
	historyH := &handler.HistoryHandler{
		Recommendations: recRepo,
		Diagnoses:       diagRepo,
		Activities:      actRepo,
		Logger:          logger,
	}

	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	requireAuth := auth.Middleware(verifier)

	e.GET("/healthz", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return response.InternalError(c, "database unreachable", err.Error())
		}
		return response.OK(c, map[string]string{"status": "ok"}, "")
	})

	api := e.Group("/api")
	api.POST("/chat", chatH.Handle, requireAuth)
	api.POST("/crop-recommendation", cropH.Handle, requireAuth)
	api.POST("/pest-diagnosis", pestH.Handle, requireAuth)

	// Weather auth is a deployment policy, not a handler concern.
	if cfg.WeatherIsPublic() {
		api.POST("/weather", weatherH.Handle)
	} else {
		api.POST("/weather", weatherH.Handle, requireAuth)
	}

	api.GET("/recommendations", historyH.ListRecommendations, requireAuth)
	api.GET("/diagnoses", historyH.ListDiagnoses, requireAuth)
	api.GET("/activities", historyH.ListActivities, requireAuth)

	return &Server{Echo: e, Config: cfg, pool: pool, logger: logger}
}

// requestLogger logs one line per completed request through zerolog.
func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := logger.Info()
			if v.Status >= http.StatusInternalServerError {
				evt = logger.Error()
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Err(v.Error).
				Msg("request")
			return nil
		},
	})
}

// Start starts the HTTP server. Blocks until the context is cancelled or
// the server fails. On context cancel, Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	s.Echo.Server.ReadTimeout = time.Duration(s.Config.Server.ReadTimeout) * time.Second
	s.Echo.Server.WriteTimeout = time.Duration(s.Config.Server.WriteTimeout) * time.Second
	s.Echo.Server.IdleTimeout = time.Duration(s.Config.Server.IdleTimeout) * time.Second
	addr := ":" + s.Config.Server.Port
	return s.Echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
