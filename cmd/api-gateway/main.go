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

	_ "github.com/noah-isme/arsip-biak-api/api/swagger"
	"github.com/noah-isme/arsip-biak-api/internal/handler"
	"github.com/noah-isme/arsip-biak-api/internal/repository"
	"github.com/noah-isme/arsip-biak-api/internal/router"
	"github.com/noah-isme/arsip-biak-api/internal/service"
	"github.com/noah-isme/arsip-biak-api/pkg/cache"
	"github.com/noah-isme/arsip-biak-api/pkg/config"
	"github.com/noah-isme/arsip-biak-api/pkg/database"
	"github.com/noah-isme/arsip-biak-api/pkg/jobs"
	"github.com/noah-isme/arsip-biak-api/pkg/logger"
	"github.com/noah-isme/arsip-biak-api/pkg/storage"
)

// @title Arsip BIAK API
// @version 1.0.0
// @description Institutional archive catalog and BIAK letter tracker
// @BasePath /api
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, rekap cache disabled", "error", err)
		redisClient = nil
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}

	cleanup := jobs.NewQueue("file-cleanup", func(ctx context.Context, job jobs.Job) error {
		relPath, ok := job.Payload.(string)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return uploads.Delete(relPath)
	}, jobs.QueueConfig{
		Workers:    cfg.Uploads.CleanupWorkers,
		MaxRetries: cfg.Uploads.CleanupRetries,
		Logger:     logr,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cleanup.Start(rootCtx)
	defer cleanup.Stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	placementRepo := repository.NewPlacementRepository(db)
	hierarchyRepo := repository.NewHierarchyRepository(db)
	letterRepo := repository.NewLetterRepository(db)
	educationRepo := repository.NewEducationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	archiveSvc := service.NewArchiveService(archiveRepo, uploads, cleanup, userRepo, validate, logr, service.ArchiveServiceConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
		PublicPath:   cfg.Uploads.PublicPath,
	})
	placementSvc := service.NewPlacementService(placementRepo, userRepo, validate, logr)
	hierarchySvc := service.NewHierarchyService(hierarchyRepo, userRepo, validate, logr)
	letterSvc := service.NewLetterService(letterRepo, cacheRepo, uploads, uploads, signer, cleanup, userRepo, metricsSvc, validate, logr, service.LetterServiceConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
		CacheTTL:     cfg.Rekap.CacheTTL,
	})
	educationSvc := service.NewEducationService(educationRepo, userRepo, validate, logr)

	engine := router.New(router.Deps{
		Config:  cfg,
		Logger:  logr,
		Auth:    authSvc,
		Metrics: metricsSvc,

		AuthHandler:      handler.NewAuthHandler(authSvc),
		ArchiveHandler:   handler.NewArchiveHandler(archiveSvc),
		PlacementHandler: handler.NewPlacementHandler(placementSvc),
		HierarchyHandler: handler.NewHierarchyHandler(hierarchySvc),
		LetterHandler:    handler.NewLetterHandler(letterSvc),
		EducationHandler: handler.NewEducationHandler(educationSvc),
		MetricsHandler:   handler.NewMetricsHandler(metricsSvc, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}
