// Package server exposes the task store and the aggregation engine over
// HTTP with echo.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/config"
	"github.com/sadopc/planr/internal/logging"
	"github.com/sadopc/planr/internal/store"
	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/window"
)

// Store is what the HTTP API needs from persistence.
type Store interface {
	task.Repository
	analytics.Source
	GetTask(ctx context.Context, id string) (*task.Task, error)
	GetAllSettings(ctx context.Context) ([]store.Setting, error)
	SetSetting(ctx context.Context, key, value string) error
	PreviewLimit(ctx context.Context) (int, error)
	DefaultRange(ctx context.Context) (window.Selector, error)
	Ping(ctx context.Context) error
}

type Server struct {
	echo    *echo.Echo
	cfg     config.ServerConfig
	logger  *logging.Logger
	store   Store
	engine  *analytics.Engine
	metrics *metrics
}

// CustomValidator plugs validator/v10 into echo.
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// NewValidator returns a validator that knows the taskstatus tag.
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
		return task.Status(fl.Field().String()).Valid()
	})
	return &CustomValidator{validator: v}
}

// New wires middleware and routes. engine may be shared with other
// consumers of st.
func New(cfg config.ServerConfig, st Store, engine *analytics.Engine, logger *logging.Logger) *Server {
	e := echo.New()
	e.Validator = NewValidator()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		cfg:    cfg,
		logger: logger.WithComponent("server"),
		store:  st,
		engine: engine,
	}
	e.HTTPErrorHandler = s.errorHandler

	s.setupMiddleware()
	if cfg.MetricsEnabled {
		s.setupMetrics()
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1e6,
				"remote_ip", values.RemoteIP,
				"request_id", values.RequestID,
			}
			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Warnw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}
			return nil
		},
	}))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.cfg.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete},
	}))

	if s.cfg.RateLimitRequests > 0 {
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(s.cfg.RateLimitRequests) / s.rateWindow().Seconds()),
				Burst:     s.cfg.RateLimitRequests,
				ExpiresIn: s.rateWindow(),
			}),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
			ErrorHandler: func(c echo.Context, err error) error {
				return c.JSON(http.StatusForbidden, errorBody{Error: "rate limit exceeded"})
			},
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				return c.JSON(http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			},
		}))
	}

	if s.cfg.RequestTimeout > 0 {
		s.echo.Use(middleware.ContextTimeout(s.cfg.RequestTimeout))
	}
}

func (s *Server) rateWindow() time.Duration {
	if s.cfg.RateLimitWindow <= 0 {
		return time.Minute
	}
	return s.cfg.RateLimitWindow
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)

	api := s.echo.Group("/api")

	tasks := api.Group("/tasks")
	tasks.GET("", s.listTasks)
	tasks.POST("", s.createTask)
	tasks.GET("/:id", s.getTask)
	tasks.PUT("/:id", s.updateTask)
	tasks.DELETE("/:id", s.deleteTask)

	api.GET("/stats", s.stats)
	api.GET("/calendar", s.calendar)

	api.GET("/settings", s.listSettings)
	api.PUT("/settings/:key", s.putSetting)
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.logger.Infow("Starting server", "address", srv.Addr)
	err := s.echo.StartServer(srv)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}

type errorBody struct {
	Error string `json:"error"`
}

// errorHandler maps domain errors onto status codes and writes
// {"error": "..."}.
func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &he):
		code = he.Code
		msg = fmt.Sprint(he.Message)
	case errors.As(err, &ve):
		code = http.StatusBadRequest
		msg = ve.Error()
	case errors.Is(err, task.ErrNotFound), errors.Is(err, store.ErrUnknownSetting):
		code = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, task.ErrInvalid), errors.Is(err, store.ErrInvalidSetting):
		code = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
		msg = "request timed out"
	}

	if code >= http.StatusInternalServerError {
		s.logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorBody{Error: msg})
	}
	if err != nil {
		s.logger.Errorw("Error sending response", "error", err)
	}
}

func (s *Server) health(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   s.engine.Now().UTC().Format(time.RFC3339),
	})
}
