// Package server exposes the webhook, sensor, action and event stream
// endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/s0up4200/seerrbridge/dispatch"
	"github.com/s0up4200/seerrbridge/scheduler"
	"github.com/s0up4200/seerrbridge/sensor"
	"github.com/s0up4200/seerrbridge/stream"
	"github.com/s0up4200/seerrbridge/webhook"
)

// Dispatcher runs user actions
type Dispatcher interface {
	Dispatch(ctx context.Context, call dispatch.Call) dispatch.Outcome
}

// Tasks exposes the background scheduler
type Tasks interface {
	RunNow(taskID string) error
	ListTasks() []scheduler.TaskInfo
	GetTask(taskID string) (*scheduler.TaskInfo, error)
}

// Options wires the components served over HTTP. Webhook, Stream and Tasks
// are optional.
type Options struct {
	Sensors    *sensor.Set
	Dispatcher Dispatcher
	Webhook    *webhook.Receiver
	Stream     *stream.Hub
	Tasks      Tasks
	// PollTaskID is the task POST /api/sensors/refresh triggers
	PollTaskID string
	Version    string
}

// Server is the HTTP surface of the bridge
type Server struct {
	echo   *echo.Echo
	opts   Options
	logger zerolog.Logger
}

// New creates the server and registers all routes
func New(opts Options, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		opts:   opts,
		logger: logger.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.healthCheck)

	api := s.echo.Group("/api")

	if s.opts.Webhook != nil {
		s.opts.Webhook.RegisterRoutes(api)
	}

	api.GET("/sensors", s.listSensors)
	api.GET("/sensors/:label", s.getSensor)
	api.POST("/services/:action", s.callService)

	if s.opts.Tasks != nil {
		api.POST("/sensors/refresh", s.refreshSensors)
		api.GET("/tasks", s.listTasks)
		api.GET("/tasks/:id", s.getTask)
		api.POST("/tasks/:id/run", s.runTask)
	}

	if s.opts.Stream != nil {
		api.GET("/events", s.opts.Stream.HandleWebSocket)
	}
}

// Handler returns the underlying http.Handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on address until Shutdown is called
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")

	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}
