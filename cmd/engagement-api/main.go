package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campus-insights/engagement-api/api/swagger"
	"github.com/campus-insights/engagement-api/internal/handler"
	"github.com/campus-insights/engagement-api/internal/middleware"
	"github.com/campus-insights/engagement-api/internal/repository"
	"github.com/campus-insights/engagement-api/internal/service"
	"github.com/campus-insights/engagement-api/pkg/cache"
	"github.com/campus-insights/engagement-api/pkg/config"
	"github.com/campus-insights/engagement-api/pkg/database"
	"github.com/campus-insights/engagement-api/pkg/logger"
	corsmiddleware "github.com/campus-insights/engagement-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-insights/engagement-api/pkg/middleware/requestid"
)

// @title Engagement API
// @version 0.1.0
// @description Course engagement analytics over the activity event log
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
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Engagement.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Engagement.CacheTTL, logr, cfg.Engagement.CacheEnabled)

	logRepo := repository.NewLogRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	resolver := service.NewResolverService(activityRepo, userRepo, logr)
	registry := service.NewEvaluatorRegistry(gradeRepo, logRepo, metricsSvc, cfg.Engagement)
	reports := service.NewReportService(logRepo, gradeRepo, resolver, registry, cacheSvc, metricsSvc, cfg.Engagement, logr)
	timeline := service.NewTimelineService(reports, cfg.Engagement.MaxBins, logr)
	search := service.NewSearchService(resolver, userRepo, registry, metricsSvc, logr)

	reportHandler := handler.NewReportHandler(reports, timeline, search, cfg.Engagement.SectionMarker)
	activityHandler := handler.NewActivityHandler(resolver)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	courses := api.Group("/courses/:courseId")
	courses.GET("/activities", activityHandler.List)
	courses.POST("/reports/activity", reportHandler.Activity)
	courses.POST("/reports/timeline", reportHandler.Timeline)
	courses.POST("/reports/participants", reportHandler.Participants)
	courses.DELETE("/reports/cache", reportHandler.InvalidateCache)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
