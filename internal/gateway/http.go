package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rahul/aiops/internal/observability"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr           string
	Name           string
	RequestTimeout time.Duration
}

// Server serves the task API over HTTP.
type Server struct {
	echo    *echo.Echo
	runner  Runner
	metrics *observability.Metrics
	logger  *zap.Logger
	config  ServerConfig
}

// TaskRequest is the request body for POST /task.
type TaskRequest struct {
	Task string `json:"task"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// InfoResponse is the response body for GET /.
type InfoResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

// NewServer wires routes and middleware. metrics may be nil, in which
// case /metrics is not served.
func NewServer(runner Runner, metrics *observability.Metrics, logger *zap.Logger, cfg ServerConfig) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "AI Ops Assistant"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("type", "http"),
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		runner:  runner,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleInfo)
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/task", s.handleTask)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}
}

func (s *Server) handleInfo(c echo.Context) error {
	endpoints := map[string]string{
		"POST /task":  "Execute a task (e.g., 'Weather in Delhi and top MERN repos')",
		"GET /health": "Health check",
	}
	if s.metrics != nil {
		endpoints["GET /metrics"] = "Prometheus metrics"
	}
	return c.JSON(http.StatusOK, InfoResponse{
		Message:   s.config.Name + " - plan, execute, verify",
		Endpoints: endpoints,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// handleTask runs the pipeline. Pipeline failures are reported in the
// body with status 200; only malformed requests are rejected.
func (s *Server) handleTask(c echo.Context) error {
	var req TaskRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid task request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Task) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task field is required")
	}

	ctx := c.Request().Context()
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		ctx = observability.WithTaskID(ctx, id)
	}
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	return c.JSON(http.StatusOK, s.runner.Run(ctx, req.Task))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.config.Addr))
	err := s.echo.Start(s.config.Addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
