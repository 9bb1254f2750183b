// Package server provides the HTTP API for the assistant and the plain
// payee/category CRUD endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rapmendoza/ai-side-panel/internal/assistant"
	"github.com/rapmendoza/ai-side-panel/internal/common"
	"github.com/rapmendoza/ai-side-panel/internal/service"
)

// ownerHeader identifies the authenticated owner. Upstream auth middleware
// is expected to set it; requests without it fall back to the default owner.
const ownerHeader = "X-Owner-ID"

const defaultOwner = "default"

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides HTTP endpoints for the assistant and CRUD resources.
type Server struct {
	echo      *echo.Echo
	assistant *assistant.Assistant
	storage   service.Storage
	logger    *slog.Logger
	config    *Config
}

// NewServer creates a new HTTP server.
func NewServer(a *assistant.Assistant, storage service.Storage, logger *slog.Logger, cfg *Config) (*Server, error) {
	if a == nil {
		return nil, fmt.Errorf("assistant cannot be nil")
	}
	if storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
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
			duration := time.Since(start)

			logger.Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", duration,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID))

			return err
		}
	})

	s := &Server{
		echo:      e,
		assistant: a,
		storage:   storage,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")

	v1.POST("/assistant/message", s.handleAssistantMessage)
	v1.POST("/assistant/clarify", s.handleAssistantClarify)
	v1.GET("/assistant/conversations/:id", s.handleGetConversation)
	v1.DELETE("/assistant/conversations/:id", s.handleClearConversation)

	v1.GET("/payees", s.handleListPayees)
	v1.POST("/payees", s.handleCreatePayee)
	v1.GET("/payees/:id", s.handleGetPayee)
	v1.PUT("/payees/:id", s.handleUpdatePayee)
	v1.DELETE("/payees/:id", s.handleDeletePayee)

	v1.GET("/categories", s.handleListCategories)
	v1.POST("/categories", s.handleCreateCategory)
	v1.GET("/categories/:id", s.handleGetCategory)
	v1.PUT("/categories/:id", s.handleUpdateCategory)
	v1.DELETE("/categories/:id", s.handleDeleteCategory)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// ErrorResponse is the error body for every failure path. Code lets clients
// branch on "try again" versus "my input was bad".
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeDuplicate      = "duplicate_entry"
	CodeAIUnavailable  = "ai_unavailable"
	CodeInternal       = "internal"
)

// writeError maps an application error to the response shape. The user never
// sees a raw stack trace or internal error text for unexpected failures.
func (s *Server) writeError(c echo.Context, err error) error {
	var userErr *common.UserError

	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
	case errors.Is(err, common.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeNotFound})
	case errors.Is(err, common.ErrDuplicateEntry):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeDuplicate})
	case errors.Is(err, common.ErrAIUnavailable), errors.Is(err, common.ErrRateLimit):
		s.logger.Error("ai service failure", "error", err)
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "the assistant is temporarily unavailable, please try again",
			Code:  CodeAIUnavailable,
		})
	case errors.As(err, &userErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: userErr.UserMessage, Code: CodeInvalidRequest})
	default:
		s.logger.Error("unexpected failure", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  CodeInternal,
		})
	}
}

// owner extracts the authenticated owner id for the request.
func owner(c echo.Context) string {
	if id := c.Request().Header.Get(ownerHeader); id != "" {
		return id
	}
	return defaultOwner
}

// Handler exposes the underlying HTTP handler, mainly for tests and for
// embedding the API into a larger mux.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
