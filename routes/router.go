package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/homenest/estate/config"
	"github.com/homenest/estate/controllers"
	"github.com/homenest/estate/middleware"
	"github.com/homenest/estate/services"
	"github.com/homenest/estate/storage"
	"github.com/homenest/estate/utils"
)

// Deps are the long-lived collaborators shared by all handlers.
type Deps struct {
	DB      *gorm.DB
	Store   storage.Provider
	Views   *services.ViewService
	Tracker *services.StorageHistoryTracker
	Tasks   *services.TaskRunner
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file; the app logger covers the rest.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		gl = utils.Logger
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))
	if cfg.MetricsEnabled {
		r.Use(middleware.HTTPMetrics())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Session-ID", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if local, ok := deps.Store.(*storage.LocalProvider); ok && strings.HasPrefix(cfg.PublicBaseURL, "/") {
		r.Static(cfg.PublicBaseURL, local.Root())
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authController := controllers.NewAuthController(deps.DB)
	propertyController := controllers.NewPropertyController(deps.DB, deps.Views, deps.Store, deps.Tracker, deps.Tasks)
	fileController := controllers.NewFileController(deps.DB, deps.Store, deps.Tracker, deps.Tasks)
	statsController := controllers.NewStatsController(deps.DB, deps.Tracker)
	configController := controllers.NewConfigController()

	api := r.Group("/api/v1")
	api.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	api.GET("/config/uploads", configController.GetUploadConfig)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	properties := api.Group("/properties")
	properties.GET("", propertyController.ListProperties)
	properties.GET("/:id", propertyController.GetProperty)
	properties.POST("/:id/view",
		middleware.RateLimit(cfg.ViewRateLimitPerMinute),
		middleware.OptionalAuth(),
		propertyController.RecordView)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimit(cfg.RateLimitPerMinute))
	protected.POST("/properties", propertyController.CreateProperty)
	protected.DELETE("/properties/:id", propertyController.DeleteProperty)
	protected.POST("/properties/:id/files", fileController.Upload)
	protected.DELETE("/properties/:id/files/:fileId", fileController.Delete)

	admin := protected.Group("")
	admin.Use(middleware.AdminRequired(deps.DB))
	admin.GET("/properties/:id/storage-stats", statsController.GetStorageStats)
	admin.GET("/admin/storage-history", statsController.GetStorageHistory)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
