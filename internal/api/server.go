package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/config"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/crunchyroll"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/mappings"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/resolver"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/scheduler"
)

// Server handles HTTP requests for the resolver API.
type Server struct {
	echo   *echo.Echo
	logger zerolog.Logger
	cfg    *config.Config

	catalog   crunchyroll.API
	resolverS *resolver.Service
	store     *mappings.Store
	sched     *scheduler.Scheduler
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, catalog crunchyroll.API, resolverService *resolver.Service, store *mappings.Store, sched *scheduler.Scheduler, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		logger:    logger.With().Str("component", "api").Logger(),
		cfg:       cfg,
		catalog:   catalog,
		resolverS: resolverService,
		store:     store,
		sched:     sched,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID
	s.echo.Use(middleware.RequestID())

	// Request body size limit
	s.echo.Use(middleware.BodyLimit("1M"))

	// Request logging
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Status >= 500 {
				event = s.logger.Error()
			} else if v.Status >= 400 {
				event = s.logger.Warn()
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Err(v.Error).
				Msg("request")
			return nil
		},
	}))
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api/v1")

	api.GET("/health", s.handleHealth)

	api.POST("/resolve", s.handleResolve)
	api.GET("/search", s.handleSearch)
	api.GET("/series/:id", s.handleGetSeries)
	api.GET("/series/:id/seasons", s.handleGetSeasons)

	api.GET("/mappings", s.handleListMappings)
	api.DELETE("/mappings/:id", s.handleDeleteMapping)

	api.GET("/jellyfin/series", s.handleJellyfinSeries)

	api.GET("/scheduler/tasks", s.handleListTasks)
	api.POST("/scheduler/tasks/:id/run", s.handleRunTask)
}
