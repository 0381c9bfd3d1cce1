package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/homepage-content-api/api/swagger"
	"github.com/noah-isme/homepage-content-api/internal/handler"
	"github.com/noah-isme/homepage-content-api/internal/middleware"
	"github.com/noah-isme/homepage-content-api/internal/repository"
	"github.com/noah-isme/homepage-content-api/internal/routes"
	"github.com/noah-isme/homepage-content-api/internal/service"
	"github.com/noah-isme/homepage-content-api/migrations"
	"github.com/noah-isme/homepage-content-api/pkg/cache"
	"github.com/noah-isme/homepage-content-api/pkg/config"
	"github.com/noah-isme/homepage-content-api/pkg/database"
	"github.com/noah-isme/homepage-content-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/homepage-content-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/homepage-content-api/pkg/middleware/requestid"
	"github.com/noah-isme/homepage-content-api/pkg/response"
	"github.com/noah-isme/homepage-content-api/pkg/signing"
)

// @title Homepage Content API
// @version 1.0.0
// @description Approval and versioning workflow for tenant homepage content
// @BasePath /api/v1
// @schemes http https
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(migrations.FS, database.URL(cfg.Database), logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}

	var cacheSvc *service.CacheService
	if cfg.Content.CacheEnabled {
		client, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, content cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Content.CacheTTL, logr, true)
			checks["redis"] = cacheRepo.Ping
		}
	}

	contentRepo := repository.NewContentRepository(db)
	approvalRepo := repository.NewContentApprovalRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	contentSvc := service.NewContentService(contentRepo, approvalRepo, auditRepo, validator.New(), logr,
		service.ContentServiceConfig{BulkMaxItems: cfg.Content.BulkMaxItems, CacheTTL: cfg.Content.CacheTTL},
		service.WithContentCache(cacheSvc),
		service.WithContentMetrics(metricsSvc),
		service.WithPreviewSigner(signing.NewTokenSigner(cfg.Content.PreviewSecret, cfg.Content.PreviewTTL)),
	)
	transferSvc := service.NewContentTransferService(contentSvc, service.TransferConfig{}, logr, nil, nil)
	authSvc := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))
	r.Use(response.LegacyErrorStatus(cfg.LegacyErrorStatus))

	routes.Setup(r, routes.Dependencies{
		Content: handler.NewContentHandler(contentSvc, transferSvc),
		Metrics: handler.NewMetricsHandler(metricsSvc, checks),
		Auth:    authSvc,
		Audit:   auditRepo,
		Logger:  logr,
	}, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}
