// Package http provides the HTTP adapter for the application layer.
// It is a thin layer translating requests into service and engine calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/application/service"
	appworkflow "github.com/jobpal/jobpal-server/internal/application/workflow"
	"github.com/jobpal/jobpal-server/internal/auth"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	tokens     *auth.TokenManager
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	authService service.AuthService,
	jobService service.JobSearchService,
	certificateService service.CertificateService,
	notificationService service.NotificationService,
	exportService service.ExportService,
	engine appworkflow.Engine,
	addressLookup port.AddressLookup,
	tokens *auth.TokenManager,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config: config,
		router: router,
		handlers: NewHandlers(
			authService,
			jobService,
			certificateService,
			notificationService,
			exportService,
			engine,
			addressLookup,
			logger,
		),
		tokens: tokens,
		logger: logger,
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

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check and login sit outside the session middleware
	s.router.GET("/health", s.handlers.HealthCheck)
	s.router.POST("/api/login", s.handlers.Login)

	api := s.router.Group("/api")
	api.Use(s.authMiddleware())
	{
		activities := api.Group("/activities")
		{
			activities.POST("", s.handlers.CreateActivity)
			activities.GET("", s.handlers.ListActivities)
			activities.GET("/:id", s.handlers.GetActivity)
			activities.PUT("/:id", s.handlers.UpdateActivity)
			activities.DELETE("/:id", s.handlers.DeleteActivity)
			activities.POST("/:id/resubmit", s.handlers.ResubmitActivity)
			activities.POST("/:id/report", s.handlers.SubmitReport)
			activities.POST("/:id/exam-report", s.handlers.SubmitExamReport)
			activities.POST("/:id/roster-check", s.handlers.RecordRosterCheck)
			activities.PUT("/:id/transition", s.handlers.TransitionActivity)
			activities.GET("/:id/actions", s.handlers.ActivityActions)
		}

		certificates := api.Group("/certificates")
		{
			certificates.POST("", s.handlers.CreateCertificate)
			certificates.GET("", s.handlers.ListCertificates)
			certificates.GET("/:id", s.handlers.GetCertificate)
			certificates.PUT("/:id", s.handlers.UpdateCertificate)
			certificates.DELETE("/:id", s.handlers.DeleteCertificate)
			certificates.POST("/:id/resubmit", s.handlers.ResubmitCertificate)
			certificates.PUT("/:id/transition", s.handlers.TransitionCertificate)
			certificates.GET("/:id/actions", s.handlers.CertificateActions)
		}

		api.GET("/postal-rates", s.handlers.GetPostalRates)
		api.GET("/alerts", s.handlers.ListAlerts)
		api.GET("/alerts/count", s.handlers.CountAlerts)
		api.GET("/address", s.handlers.LookupAddress)
		api.GET("/export/activities", s.handlers.ExportActivityBook)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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
