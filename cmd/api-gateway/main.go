package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/smartflow-mes/smartflow-api/api/swagger"
	"github.com/smartflow-mes/smartflow-api/internal/handler"
	"github.com/smartflow-mes/smartflow-api/internal/middleware"
	"github.com/smartflow-mes/smartflow-api/internal/repository"
	"github.com/smartflow-mes/smartflow-api/internal/service"
	"github.com/smartflow-mes/smartflow-api/pkg/cache"
	"github.com/smartflow-mes/smartflow-api/pkg/config"
	"github.com/smartflow-mes/smartflow-api/pkg/database"
	"github.com/smartflow-mes/smartflow-api/pkg/jobs"
	"github.com/smartflow-mes/smartflow-api/pkg/logger"
	corsmiddleware "github.com/smartflow-mes/smartflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/smartflow-mes/smartflow-api/pkg/middleware/requestid"
)

// @title SmartFlow MES API
// @version 1.0.0
// @description Manufacturing operations backend for injection-molding shops
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	forecastRepo := repository.NewForecastRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "smartflow-api",
	})
	dashboardSvc := service.NewDashboardService(orderRepo, equipmentRepo, scheduleRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	equipmentSvc := service.NewEquipmentService(equipmentRepo, dashboardSvc, validate, logr)
	orderSvc := service.NewOrderService(orderRepo, dashboardSvc, validate, logr)
	productSvc := service.NewProductService(productRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(equipmentRepo, orderRepo, productRepo, scheduleRepo, db, metricsSvc, dashboardSvc, validate, logr)
	inventorySvc := service.NewInventoryService(inventoryRepo, forecastRepo, validate, logr)
	importSvc := service.NewImportService(equipmentSvc, orderSvc, productSvc, validate, logr, cfg.Imports.MaxRows)

	// Batch forecasting worker pool. The queue dispatches back into the
	// forecast service, so the handler closes over it.
	var forecastSvc *service.ForecastService
	forecastQueue := jobs.NewQueue("forecast", func(ctx context.Context, job jobs.Job[service.ForecastJobPayload]) error {
		return forecastSvc.HandleJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Forecast.WorkerConcurrency,
		MaxRetries: cfg.Forecast.WorkerRetries,
		RetryDelay: cfg.Forecast.RetryDelay,
		Logger:     logr,
	})
	forecastSvc = service.NewForecastService(orderRepo, productRepo, forecastRepo, forecastQueue, validate, logr)
	forecastQueue.Start(context.Background())
	defer forecastQueue.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	equipmentHandler := handler.NewEquipmentHandler(equipmentSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	productHandler := handler.NewProductHandler(productSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	inventoryHandler := handler.NewInventoryHandler(inventorySvc)
	forecastHandler := handler.NewForecastHandler(forecastSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	importHandler := handler.NewImportHandler(importSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		equipment := protected.Group("/equipment")
		{
			equipment.GET("", equipmentHandler.List)
			equipment.POST("", equipmentHandler.Create)
			equipment.GET("/:id", equipmentHandler.Get)
			equipment.PUT("/:id", equipmentHandler.Update)
			equipment.DELETE("/:id", equipmentHandler.Delete)
		}

		orders := protected.Group("/orders")
		{
			orders.GET("", orderHandler.List)
			orders.POST("", orderHandler.Create)
			orders.POST("/urgent", orderHandler.CreateUrgent)
			orders.GET("/:id", orderHandler.Get)
			orders.PUT("/:id", orderHandler.Update)
			orders.DELETE("/:id", orderHandler.Delete)
		}

		products := protected.Group("/products")
		{
			products.GET("", productHandler.List)
			products.POST("", productHandler.Create)
			products.GET("/:code", productHandler.Get)
			products.PUT("/:code", productHandler.Update)
			products.DELETE("/:code", productHandler.Delete)
		}

		schedule := protected.Group("/schedule")
		{
			schedule.POST("/generate", scheduleHandler.Generate)
			schedule.GET("/result", scheduleHandler.Result)
			schedule.GET("/gantt", scheduleHandler.Gantt)
			schedule.GET("/export", scheduleHandler.ExportCSV)
			schedule.GET("/export/pdf", scheduleHandler.ExportPDF)
		}

		inventory := protected.Group("/inventory")
		{
			inventory.GET("", inventoryHandler.List)
			inventory.POST("", inventoryHandler.Create)
			inventory.GET("/alerts", inventoryHandler.Alerts)
			inventory.POST("/policy/calculate", inventoryHandler.CalculatePolicy)
			inventory.GET("/:code", inventoryHandler.Get)
			inventory.PUT("/:code", inventoryHandler.Update)
			inventory.DELETE("/:code", inventoryHandler.Delete)
			inventory.GET("/:code/status", inventoryHandler.StockStatus)
		}

		forecast := protected.Group("/forecast")
		{
			forecast.POST("/predict", forecastHandler.Predict)
			forecast.POST("/predict-all", forecastHandler.PredictAll)
			forecast.GET("/status", forecastHandler.Status)
		}

		dashboard := protected.Group("/dashboard")
		{
			dashboard.GET("/summary", dashboardHandler.Summary)
			dashboard.GET("/production", dashboardHandler.ProductionProgress)
			dashboard.GET("/alerts", dashboardHandler.Alerts)
		}

		imports := protected.Group("/imports")
		{
			imports.POST("/:kind", importHandler.Upload)
			imports.GET("/:kind/template", importHandler.Template)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
