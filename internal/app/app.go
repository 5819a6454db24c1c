package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/ronchon/server/cmd/server/docs" // swagger docs
	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/infra/config"
	"github.com/ronchon/server/internal/utils/middleware"
)

// App represents the application.
type App struct {
	deps    *Dependencies
	router  *gin.Engine
	cleanup func()
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	deps, cleanup, err := InitializeDependencies(cfg)
	if err != nil {
		return nil, fmt.Errorf("init dependencies: %w", err)
	}

	deps.Logger.Info("application initialized",
		zap.String("store", deps.Store.KV.Name()),
		zap.Int("license_keys", deps.Licenses.Len()),
		zap.Bool("mock_billing", cfg.Features.MockBilling),
	)

	return &App{
		deps:    deps,
		router:  NewRouter(deps),
		cleanup: cleanup,
	}, nil
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Engine returns the entitlement engine.
func (a *App) Engine() *entitlement.Engine {
	return a.deps.Engine
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.deps.Logger
}

// Start starts background jobs.
func (a *App) Start() {
	a.deps.Scheduler.Start()
}

// Stop stops background jobs and releases resources.
func (a *App) Stop() {
	ctx := a.deps.Scheduler.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		a.deps.Logger.Warn("scheduler jobs still running at shutdown")
	}
	if a.cleanup != nil {
		a.cleanup()
	}
	_ = a.deps.Logger.Sync()
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	OK    bool   `json:"ok"`
	Store string `json:"store"`
	Redis bool   `json:"redis"`
	Date  string `json:"date"`
}

// NewRouter creates and configures the Gin router.
func NewRouter(deps *Dependencies) *gin.Engine {
	cfg := deps.Config

	// Set Gin mode based on log level
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Apply global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins)))

	r.GET("/health", health(deps.Store))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Features.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	}

	api := r.Group("/api")

	// Webhooks verify the raw body and have their own size cap.
	deps.WebhookHandler.RegisterRoutes(api)
	deps.AdminHandler.RegisterRoutes(api, cfg.Admin.JWTSecret)

	client := api.Group("")
	client.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	client.Use(middleware.ClientKey(deps.KeyDeriver, deps.Licenses))
	if cfg.RateLimit.Enabled {
		client.Use(middleware.RateLimit(deps.RateLimiter, middleware.RateLimitConfig{
			Limit:     cfg.RateLimit.Limit,
			Window:    cfg.RateLimit.Window,
			OnLimited: func(*gin.Context) { deps.Metrics.RecordRateLimited() },
			Logger:    deps.Logger,
		}))
	}

	deps.ChatHandler.RegisterRoutes(client)
	deps.LicenseHandler.RegisterRoutes(client)
	deps.CheckoutHandler.RegisterRoutes(client, middleware.Idempotency(deps.Store.KV, middleware.IdempotencyConfig{
		TTL:    cfg.RateLimit.IdempotencyTTL,
		Logger: deps.Logger,
	}))
	if cfg.Features.MockBilling {
		deps.MockBillingHandler.RegisterRoutes(client)
	}

	return r
}

func health(st *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			OK:    true,
			Store: st.KV.Name(),
			Redis: st.Redis != nil,
			Date:  time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Ping checks that the store answers.
func (a *App) Ping(ctx context.Context) error {
	return a.deps.Store.KV.Ping(ctx)
}
