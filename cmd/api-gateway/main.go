package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/krayon-edu/krs-planner-api/api/swagger"
	"github.com/krayon-edu/krs-planner-api/internal/handler"
	"github.com/krayon-edu/krs-planner-api/internal/llm"
	"github.com/krayon-edu/krs-planner-api/internal/middleware"
	"github.com/krayon-edu/krs-planner-api/internal/repository"
	"github.com/krayon-edu/krs-planner-api/internal/service"
	"github.com/krayon-edu/krs-planner-api/pkg/cache"
	"github.com/krayon-edu/krs-planner-api/pkg/config"
	"github.com/krayon-edu/krs-planner-api/pkg/database"
	"github.com/krayon-edu/krs-planner-api/pkg/export"
	"github.com/krayon-edu/krs-planner-api/pkg/logger"
	corsmiddleware "github.com/krayon-edu/krs-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/krayon-edu/krs-planner-api/pkg/middleware/requestid"
)

// @title KRS Planner API
// @version 1.0.0
// @description Course schedule planner with conflict checking, heuristic scoring and AI-assisted plan refinement
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Redis is optional: without it the AI response cache degrades to
	// always-miss and the service keeps running.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, ai response cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	courseRepo := repository.NewCourseRepository(db, logr)
	planRepo := repository.NewPlanRepository(db)
	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	courseService := service.NewCourseService(courseRepo, logr)
	plannerService := service.NewPlannerService(courseRepo, planRepo, validate, logr, metrics, service.PlannerConfig{
		MaxCombinations: cfg.Planner.MaxCombinations,
		MaxPlansPerCall: cfg.Planner.MaxPlansPerCall,
	})
	planService := service.NewPlanService(planRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	var aiService *service.AIPlannerService
	if cfg.AI.Enabled {
		modelClient := llm.NewClient(llm.Config{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Timeout: cfg.AI.RequestTimeout,
		}, logr)
		aiService = service.NewAIPlannerService(courseRepo, planRepo, ledgerRepo, cacheRepo, modelClient, metrics, validate, logr, service.AIPlannerConfig{
			PrimaryModel:   cfg.AI.PrimaryModel,
			FallbackModel:  cfg.AI.FallbackModel,
			Cooldown:       cfg.AI.Cooldown,
			CacheTTL:       cfg.AI.CacheTTL,
			MaxVariants:    cfg.AI.MaxVariants,
			DefaultCredits: cfg.AI.DefaultCredits,
		})
	} else {
		logr.Info("ai planner disabled, smart generation endpoints return 404")
	}

	authHandler := handler.NewAuthHandler(authService)
	courseHandler := handler.NewCourseHandler(courseService)
	plannerHandler := handler.NewPlannerHandler(plannerService, aiService)
	planHandler := handler.NewPlanHandler(planService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	protected.GET("/auth/me", authHandler.Me)
	protected.GET("/courses", courseHandler.List)
	protected.POST("/plans/generate", plannerHandler.Generate)
	protected.POST("/plans/smart-generate", plannerHandler.SmartGenerate)
	protected.GET("/plans/smart-generate/quota", plannerHandler.Quota)
	protected.GET("/plans", planHandler.List)
	protected.GET("/plans/:id", planHandler.Get)
	protected.DELETE("/plans/:id", planHandler.Delete)
	protected.GET("/plans/:id/export/csv", planHandler.ExportCSV)
	protected.GET("/plans/:id/export/pdf", planHandler.ExportPDF)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "ai_enabled", cfg.AI.Enabled)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
