// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/mbd888/finsights/internal/alert"
	"github.com/mbd888/finsights/internal/amlcase"
	"github.com/mbd888/finsights/internal/config"
	"github.com/mbd888/finsights/internal/dashboard"
	"github.com/mbd888/finsights/internal/forecast"
	"github.com/mbd888/finsights/internal/fraud"
	"github.com/mbd888/finsights/internal/health"
	"github.com/mbd888/finsights/internal/logging"
	"github.com/mbd888/finsights/internal/metrics"
	"github.com/mbd888/finsights/internal/mlclient"
	"github.com/mbd888/finsights/internal/ratelimit"
	"github.com/mbd888/finsights/internal/realtime"
	"github.com/mbd888/finsights/internal/security"
	"github.com/mbd888/finsights/internal/simulation"
	"github.com/mbd888/finsights/internal/transaction"
	"github.com/mbd888/finsights/internal/user"
	"github.com/mbd888/finsights/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	db  *sql.DB       // nil if using in-memory
	rdb *redis.Client // nil if Redis is not configured
	ml  *mlclient.Client

	users     user.Store
	txs       transaction.Store
	alerts    alert.Store
	cases     amlcase.Store
	forecasts forecast.Store
	sims      simulation.Store

	fraudSvc     *fraud.Service
	forecastSvc  *forecast.Service
	simSvc       *simulation.Service
	dashboardSvc *dashboard.Service

	realtimeHub *realtime.Hub
	rateLimiter *ratelimit.Limiter
	checks      *health.Registry

	router       *gin.Engine
	httpSrv      *http.Server
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

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

// WithMLClient sets a custom model service client (for testing)
func WithMLClient(ml *mlclient.Client) Option {
	return func(s *Server) {
		s.ml = ml
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
		checks: health.NewRegistry(),
	}

	// Apply options first (may set ml/logger)
	for _, opt := range opts {
		opt(s)
	}

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.users = user.NewPostgresStore(db)
		s.txs = transaction.NewPostgresStore(db)
		s.alerts = alert.NewPostgresStore(db)
		s.cases = amlcase.NewPostgresStore(db)
		s.forecasts = forecast.NewPostgresStore(db)
		s.sims = simulation.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		s.checks.Register("database", func(ctx context.Context) health.Status {
			if err := db.PingContext(ctx); err != nil {
				return health.Status{Healthy: false, Detail: err.Error()}
			}
			return health.Status{Healthy: true}
		})
	} else {
		s.users = user.NewMemoryStore()
		s.txs = transaction.NewMemoryStore()
		s.alerts = alert.NewMemoryStore()
		s.cases = amlcase.NewMemoryStore()
		s.forecasts = forecast.NewMemoryStore()
		s.sims = simulation.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Redis cache for the dashboard (optional)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		s.rdb = redis.NewClient(redisOpts)
		s.logger.Info("dashboard cache enabled", "addr", redisOpts.Addr)

		s.checks.Register("redis", func(ctx context.Context) health.Status {
			if err := s.rdb.Ping(ctx).Err(); err != nil {
				return health.Status{Healthy: false, Detail: err.Error()}
			}
			return health.Status{Healthy: true}
		})
	}

	// Model service client if not injected. nil means every capability call
	// takes the local fallback path.
	if s.ml == nil && cfg.MLServiceURL != "" {
		if err := security.ValidateEndpointURL(cfg.MLServiceURL); err != nil && cfg.IsProduction() {
			return nil, fmt.Errorf("unsafe ML_SERVICE_URL: %w", err)
		}
		s.ml = mlclient.New(cfg.MLServiceURL,
			mlclient.WithTimeout(cfg.MLTimeout),
			mlclient.WithLogger(logging.Component(s.logger, "mlclient")),
		)
		s.logger.Info("model service delegation enabled", "url", cfg.MLServiceURL)

		s.checks.Register("model_service", func(ctx context.Context) health.Status {
			if !s.ml.Available(ctx) {
				return health.Status{Healthy: false, Detail: "unreachable, local fallback in use"}
			}
			return health.Status{Healthy: true}
		})
	}

	// Create realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(logging.Component(s.logger, "realtime"))
	s.logger.Info("realtime streaming enabled")

	// Fraud scoring with the configured policy
	fraudLog := logging.Component(s.logger, "fraud")
	policy := fraud.DefaultPolicy()
	policy.FraudThreshold = cfg.FraudThreshold
	policy.HomeCountry = cfg.HomeCountry
	engine := fraud.NewEngine(policy, s.ml, fraudLog)
	s.fraudSvc = fraud.NewService(engine, s.txs, s.alerts, s.realtimeHub, fraudLog)
	s.logger.Info("fraud scanning enabled", "threshold", policy.FraudThreshold)

	// Forecasting and default risk
	forecastLog := logging.Component(s.logger, "forecast")
	generator := forecast.NewGenerator(s.ml, nil, forecastLog)
	s.forecastSvc = forecast.NewService(generator, s.forecasts, s.txs, s.users, forecastLog)
	s.logger.Info("forecasting enabled")

	// Simulation processing
	simLog := logging.Component(s.logger, "simulation")
	processor := simulation.NewProcessor(s.ml, simLog)
	s.simSvc = simulation.NewService(processor, s.sims, s.realtimeHub, simLog)
	s.logger.Info("simulations enabled")

	// Dashboard aggregation with optional Redis cache
	dashLog := logging.Component(s.logger, "dashboard")
	cache := dashboard.NewCache(s.rdb, dashboard.DefaultCacheTTL, dashLog)
	s.dashboardSvc = dashboard.NewService(s.users, s.txs, s.alerts, s.cases, cache, dashLog)

	// Configure gin
	if cfg.IsProduction() {
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

	// Rate limiting
	limitCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		limitCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(limitCfg)
	s.router.Use(s.rateLimiter.Middleware())

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

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
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

		// Log level based on status code
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
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for real-time streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})
	s.router.GET("/ws/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.realtimeHub.Stats())
	})

	// API info
	s.router.GET("/", s.infoHandler)

	// API group
	api := s.router.Group("/api")

	user.NewHandler(s.users).RegisterRoutes(api)
	transaction.NewHandler(s.txs, &scanAdapter{s.fraudSvc}, s.realtimeHub).RegisterRoutes(api)
	alert.NewHandler(s.alerts).RegisterRoutes(api)
	amlcase.NewHandler(s.cases).RegisterRoutes(api)
	fraud.NewHandler(s.fraudSvc).RegisterRoutes(api)
	forecast.NewHandler(s.forecastSvc).RegisterRoutes(api)
	simulation.NewHandler(s.simSvc).RegisterRoutes(api)
	dashboard.NewHandler(s.dashboardSvc).RegisterRoutes(api)

	// Delegation-only endpoints: no local fallback, 503 when the model
	// service is not reachable
	api.POST("/chat", s.chatHandler)
	api.POST("/users/:userId/kyc/verify", s.kycVerifyHandler)
}

// scanAdapter lets the transaction handler trigger fraud scans without
// importing the fraud package.
type scanAdapter struct {
	svc *fraud.Service
}

func (a *scanAdapter) Scan(ctx context.Context, txID string) error {
	_, err := a.svc.ScanTransaction(ctx, txID)
	return err
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.checks.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"version":   "0.1.0",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
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

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "FinSights",
		"description": "Financial risk decision and analytics engine",
		"version":     "0.1.0",
		"delegation":  s.ml != nil,
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
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

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close Redis connection
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Error("redis close error", "error", err)
		}
	}

	// Close database connection pool
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
