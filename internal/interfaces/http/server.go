// Package http exposes the claim services over a gin JSON API.
// Handlers only translate requests; every rule lives in the services.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NathIMN/Lumiere-sub005/internal/application/service"
	"github.com/NathIMN/Lumiere-sub005/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// StatisticsWriter renders a report as a downloadable file
type StatisticsWriter interface {
	Write(w io.Writer, stats *service.Statistics) error
}

// HealthFunc reports whether the service and its dependencies are healthy
type HealthFunc func(ctx context.Context) (healthy bool, details interface{})

// Services are the application entry points the handlers call
type Services struct {
	Engine        workflow.Engine
	Claims        service.ClaimService
	Questionnaire service.QuestionnaireService
	Statistics    service.StatisticsService
	Workbook      StatisticsWriter
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// MaxUploadBytes bounds multipart bodies; zero keeps gin's default
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	health     HealthFunc
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, health HealthFunc, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	if config.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = config.MaxUploadBytes
	}

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		health:   health,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware logs one line per request
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"actor_id", c.GetHeader(HeaderActorID),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.health, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api/v1")
	{
		claims := api.Group("/claims")
		claims.POST("", h.CreateClaim)
		claims.GET("", h.ListClaims)
		claims.GET("/:id", h.GetClaim)
		claims.PATCH("/:id", h.UpdateDraft)
		claims.DELETE("/:id", h.DeleteClaim)
		claims.GET("/:id/history", h.GetHistory)
		claims.POST("/:id/documents", h.AttachDocument)

		claims.GET("/:id/sections", h.ListSections)
		claims.GET("/:id/sections/:sectionId", h.GetSection)
		claims.PUT("/:id/sections/:sectionId/answers", h.SubmitSectionAnswers)

		claims.POST("/:id/submit", h.Submit)
		claims.POST("/:id/forward", h.Forward)
		claims.POST("/:id/decision", h.Decide)
		claims.POST("/:id/return", h.Return)
		claims.POST("/:id/pay", h.MarkPaid)
		claims.POST("/:id/close", h.Close)

		api.GET("/statistics", h.GetStatistics)
		api.GET("/statistics/export", h.ExportStatistics)
		api.GET("/policies/:policyId/coverage", h.RemainingCoverage)
	}
}

// Start runs the server until ctx is cancelled or ListenAndServe fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
