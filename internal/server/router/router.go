package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/server/handlers"
	"github.com/mamadbah2/milktracker/internal/server/middleware"
)

// Handlers groups the HTTP adapters mounted by the router.
type Handlers struct {
	Milk     *handlers.MilkHandler
	Payments *handlers.PaymentHandler
	Settings *handlers.SettingsHandler
	Cron     *handlers.CronHandler
}

// Options configures the guards around the API.
type Options struct {
	AppPIN             string
	CronSecret         string
	AllowedOrigins     []string
	TrustedProxies     []string // nil trusts no proxy
	RateLimitPerMinute int
	// Limiter is shared so the caller can run Cleanup periodically. Nil creates one.
	Limiter *middleware.RateLimiter
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, opts Options, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		if logger != nil {
			logger.Error("invalid trusted proxies, trusting none", zap.Strings("proxies", opts.TrustedProxies), zap.Error(err))
		}
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.ZapLogger(logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", middleware.PINHeader, middleware.CronSecretHeader, middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter()
	}
	limit := opts.RateLimitPerMinute
	if limit <= 0 {
		limit = 20
	}

	api := r.Group("/api")
	api.Use(middleware.RateLimit(limiter, limit, time.Minute))

	internal := api.Group("/internal", middleware.RequireCronSecret(opts.CronSecret))
	internal.POST("/cron/daily-milk-entry", h.Cron.DailyMilkEntry)

	guarded := api.Group("", middleware.RequirePIN(opts.AppPIN))
	{
		milk := guarded.Group("/milk")
		milk.GET("/entries", h.Milk.ListEntries)
		milk.POST("/entries", h.Milk.CreateEntry)
		milk.GET("/entries/:id", h.Milk.GetEntry)
		milk.PUT("/entries/:id", h.Milk.UpdateEntry)
		milk.DELETE("/entries/:id", h.Milk.DeleteEntry)
		milk.GET("/months/:monthYear/entries", h.Milk.ListMonth)
		milk.GET("/months/:monthYear/summary", h.Milk.MonthSummary)
		milk.POST("/months/:monthYear/export", h.Milk.ExportMonth)

		pay := guarded.Group("/payments")
		pay.GET("", h.Payments.List)
		pay.POST("", h.Payments.Create)
		pay.GET("/:monthYear", h.Payments.GetByMonth)

		set := guarded.Group("/settings")
		set.GET("/defaults", h.Settings.GetDefaults)
		set.PUT("/defaults", h.Settings.UpdateDefaults)
		set.GET("/vacation", h.Settings.GetVacation)
		set.POST("/vacation", h.Settings.SetVacation)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}
