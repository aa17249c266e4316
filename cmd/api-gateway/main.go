package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-api/internal/handler"
	"github.com/noah-isme/coursework-api/internal/repository"
	"github.com/noah-isme/coursework-api/internal/service"
	"github.com/noah-isme/coursework-api/pkg/cache"
	"github.com/noah-isme/coursework-api/pkg/clock"
	"github.com/noah-isme/coursework-api/pkg/config"
	"github.com/noah-isme/coursework-api/pkg/database"
	"github.com/noah-isme/coursework-api/pkg/export"
	"github.com/noah-isme/coursework-api/pkg/logger"
)

// @title Coursework API
// @version 1.0.0
// @description Course activities, submissions and grade ledger
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}

	var cacheRepo service.CacheRepository
	if cfg.Activities.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, activity cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client)
			checks["redis"] = pingRedis(client)
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	clk := clock.System{}

	activityRepo := repository.NewActivityRepository(db, clk)
	submissionRepo := repository.NewSubmissionRepository(db, clk)
	gradeRepo := repository.NewGradeRepository(db, clk)
	courseRepo := repository.NewCourseRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Activities.CacheTTL, logr, cfg.Activities.CacheEnabled)
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience})
	activitySvc := service.NewActivityService(activityRepo, courseRepo, submissionRepo, cacheSvc, cfg.Activities.CacheTTL, clk, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, activityRepo, courseRepo, metrics, clk, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, courseRepo, activityRepo, validate, logr)
	gradingSvc := service.NewGradingService(courseRepo, activityRepo, gradeSvc, metrics, clk, service.GradingConfig{
		SessionTTL:    cfg.Grading.SessionTTL,
		CommitTimeout: cfg.Grading.CommitTimeout,
	}, logr)

	var exportHandler *handler.ExportHandler
	if cfg.Exports.Enabled {
		exportSvc := service.NewExportService(courseRepo, activityRepo, gradeRepo, export.NewCSVExporter(), export.NewPDFExporter(), clk, logr)
		exportHandler = handler.NewExportHandler(exportSvc)
	}

	r := newRouter(cfg, logr, routeDeps{
		tokens:      tokens,
		metrics:     handler.NewMetricsHandler(metrics, checks),
		observer:    metrics,
		activities:  handler.NewActivityHandler(activitySvc),
		submissions: handler.NewSubmissionHandler(submissionSvc),
		grades:      handler.NewGradeHandler(gradeSvc),
		grading:     handler.NewGradingHandler(gradingSvc),
		exports:     exportHandler,
	})

	go gradingSvc.Run(ctx, cfg.Grading.SweepInterval)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down", zap.Int("open_grading_sessions", gradingSvc.Len()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func pingRedis(client *redis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
