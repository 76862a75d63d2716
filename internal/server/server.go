// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/bhokmandu/storefront/internal/backend"
	"github.com/bhokmandu/storefront/internal/cart"
	"github.com/bhokmandu/storefront/internal/checkout"
	"github.com/bhokmandu/storefront/internal/config"
	"github.com/bhokmandu/storefront/internal/health"
	"github.com/bhokmandu/storefront/internal/logging"
	"github.com/bhokmandu/storefront/internal/metrics"
	"github.com/bhokmandu/storefront/internal/orders"
	"github.com/bhokmandu/storefront/internal/ratelimit"
	"github.com/bhokmandu/storefront/internal/realtime"
	"github.com/bhokmandu/storefront/internal/reconcile"
	"github.com/bhokmandu/storefront/internal/security"
	"github.com/bhokmandu/storefront/internal/session"
	"github.com/bhokmandu/storefront/internal/traces"
	"github.com/bhokmandu/storefront/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	backend      *backend.Client
	sessions     session.Store
	hub          *realtime.Hub
	reconciler   *reconcile.Service
	cartService  *cart.Service
	checkoutSvc  *checkout.Service
	orderService *orders.Service
	checks       *health.Registry
	rateLimiter  *ratelimit.Limiter
	db           *sql.DB // nil if using in-memory sessions
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run
	traceStop    func(context.Context) error

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithBackendClient sets a custom backend client (for testing)
func WithBackendClient(c *backend.Client) Option {
	return func(s *Server) {
		s.backend = c
	}
}

// WithSessionStore sets a custom session store (for testing)
func WithSessionStore(store session.Store) Option {
	return func(s *Server) {
		s.sessions = store
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Session storage: Postgres if DATABASE_URL set, otherwise in-memory
	if s.sessions == nil {
		if cfg.DatabaseURL != "" {
			db, err := sql.Open("postgres", cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("failed to open database: %w", err)
			}

			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(5 * time.Minute)

			if err := db.Ping(); err != nil {
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}

			s.db = db
			store := session.NewPostgresStore(db)
			if err := store.Migrate(ctx); err != nil {
				s.logger.Warn("failed to migrate session store", "error", err)
			}
			s.sessions = store
			s.logger.Info("using PostgreSQL session storage", "url", maskDSN(cfg.DatabaseURL))
		} else {
			s.sessions = session.NewMemoryStore()
			s.logger.Info("using in-memory session storage")
		}
	}

	if s.backend == nil {
		s.backend = backend.New(cfg.BackendURL, s.logger,
			backend.WithTimeout(cfg.BackendTimeout))
	}

	s.hub = realtime.NewHub(s.logger)
	s.reconciler = reconcile.NewService(s.backend, s.sessions, s.hub, s.logger)
	s.cartService = cart.NewService(s.backend, s.sessions, s.logger)
	s.checkoutSvc = checkout.NewService(s.backend, s.sessions, s.logger)
	s.orderService = orders.NewService(s.backend, s.hub, s.logger)

	s.checks = health.NewRegistry()
	s.checks.Register("backend", health.BackendChecker(s.backend))
	if s.db != nil {
		s.checks.Register("database", health.DatabaseChecker(s.db))
	}

	// Set gin mode based on environment
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()

	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Live order feed
	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})

	// Everything below carries a session.
	app := s.router.Group("")
	app.Use(session.Middleware(s.sessions, s.cfg.SessionCookieName, s.cfg.SessionTTL))

	// Catalog
	app.GET("/products", s.listProductsHandler)

	// Cart and checkout
	cart.NewHandlers(s.cartService).RegisterRoutes(app)
	checkout.NewHandlers(s.checkoutSvc).RegisterRoutes(app)

	// Orders
	orderHandlers := orders.NewHandlers(s.orderService, s.cfg.AdminSecret)
	ordersGroup := app.Group("")
	ordersGroup.Use(validation.ReferenceParamMiddleware("id"))
	orderHandlers.RegisterRoutes(ordersGroup)
	orderHandlers.RegisterAdminRoutes(ordersGroup)

	// Payment result routes: unauthenticated gateway redirects, rate limited.
	s.rateLimiter = ratelimit.New(ratelimit.Config{
		RequestsPerMinute: s.cfg.PaymentRateLimitRPM,
		BurstSize:         10,
		CleanupInterval:   time.Minute,
	})
	payment := app.Group("")
	payment.Use(s.rateLimiter.Middleware())
	reconcile.NewHandlers(s.reconciler).RegisterRoutes(payment)
}

func (s *Server) listProductsHandler(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	result, err := s.backend.ListProducts(c.Request.Context(), page, limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("catalog fetch failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "backend_unavailable",
			"message": "Could not load the catalog, try again shortly",
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// -----------------------------------------------------------------------------
// Health handlers
// -----------------------------------------------------------------------------

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.checks.CheckAll(c.Request.Context())

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":    overall,
		"checks":    statuses,
		"wsClients": s.hub.ClientCount(),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the server and blocks until a shutdown signal or context
// cancellation.
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	traceStop, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Error("failed to initialize tracing", "error", err)
	} else {
		s.traceStop = traceStop
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"backend", s.cfg.BackendURL,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.hub.Run(runCtx)

	// Purge expired sessions periodically
	go s.sessionJanitor(runCtx)

	// Track database pool stats
	if s.db != nil {
		go metrics.CollectDBStats(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// sessionJanitor drops expired sessions on an interval.
func (s *Server) sessionJanitor(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.PurgeExpired(ctx, time.Now())
			if err != nil {
				s.logger.Warn("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("expired sessions purged", "count", n)
			}
		}
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for background goroutines (hub, janitor, db stats)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	if s.traceStop != nil {
		if err := s.traceStop(ctx); err != nil {
			s.logger.Error("trace exporter shutdown error", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
