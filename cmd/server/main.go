package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/bizmarket-backend/config"
	"github.com/ikkim/bizmarket-backend/internal/app/controller"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/ikkim/bizmarket-backend/internal/app/service"
	"github.com/ikkim/bizmarket-backend/internal/db"
	"github.com/ikkim/bizmarket-backend/internal/lock"
	"github.com/ikkim/bizmarket-backend/internal/middleware"
	"github.com/ikkim/bizmarket-backend/internal/router"
	"github.com/ikkim/bizmarket-backend/internal/scheduler"
	"github.com/ikkim/bizmarket-backend/internal/storage"
	"github.com/ikkim/bizmarket-backend/internal/websocket"
	"github.com/ikkim/bizmarket-backend/pkg/crypto"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"github.com/ikkim/bizmarket-backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting BizMarket trust server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	locker := newLocker(cfg)
	defer redis.Close()

	codec, err := newPIICodec(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize audit PII codec", err)
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	database := db.GetDB()

	// Repositories
	userRepo := repository.NewUserRepository(database)
	sellerRepo := repository.NewSellerRepository(database)
	categoryRepo := repository.NewCategoryRepository(database)
	certRepo := repository.NewCertificationRepository(database)
	subRepo := repository.NewSubscriptionRepository(database)
	auditRepo := repository.NewAuditRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)

	// Services
	auditService := service.NewAuditService(auditRepo, codec)
	notificationService := service.NewNotificationService(notificationRepo, hub)
	verificationService := service.NewVerificationService(
		database, sellerRepo, certRepo, subRepo, categoryRepo,
		auditService, locker, notificationService,
		service.VerificationConfig{
			LockTimeout:          cfg.Trust.LockTimeout,
			RecomputeConcurrency: cfg.Trust.RecomputeConcurrency,
			HoldTimeout:          holdTimeout(cfg),
		},
	)
	certificationService := service.NewCertificationService(
		certRepo, sellerRepo, newDocumentStore(ctx, cfg),
		auditService, verificationService, notificationService,
		service.CertificationConfig{
			MaxDocumentBytes:  cfg.Trust.MaxDocumentBytes,
			AllowedExtensions: cfg.Trust.AllowedDocumentExtensions,
		},
	)
	policyService := service.NewCategoryPolicyService(database, categoryRepo, auditService)
	subscriptionService := service.NewSubscriptionService(subRepo, sellerRepo, auditService, verificationService, notificationService)
	profileService := service.NewProfileService(userRepo, sellerRepo, categoryRepo, verificationService)

	expiry := scheduler.NewSubscriptionExpiryScheduler(subscriptionService, cfg.Scheduler.SubscriptionExpirySpec)
	if err := expiry.Start(); err != nil {
		logger.Fatal("Failed to start subscription expiry scheduler", err)
	}
	defer expiry.Stop()

	r := router.NewRouter(
		controller.NewCertificationController(certificationService, cfg.Trust.MaxDocumentBytes),
		controller.NewCategoryPolicyController(policyService),
		controller.NewSubscriptionController(subscriptionService, cfg.Payment.WebhookSecret),
		controller.NewVerificationController(verificationService),
		controller.NewAuditController(auditService),
		controller.NewNotificationController(notificationService, hub, cfg.CORS.AllowedOrigins),
		controller.NewProfileController(profileService),
		middleware.NewAuthMiddleware(cfg.JWT.Secret),
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	logger.Info("Server stopped successfully")
}

// newLocker Redis 가 켜져 있으면 분산 락, 아니면 프로세스 내 락
func newLocker(cfg *config.Config) lock.Locker {
	if !cfg.Redis.Enabled {
		logger.Info("Using in-process seller lock", nil)
		return lock.NewKeyedLocker()
	}

	client, err := redis.Init(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", err)
	}
	return lock.NewRedisLocker(client, cfg.Redis.LockTTL)
}

// holdTimeout Redis 락 TTL 이 끝나기 전에 트랜잭션을 중단한다
func holdTimeout(cfg *config.Config) time.Duration {
	if !cfg.Redis.Enabled {
		return 0
	}
	return cfg.Redis.LockTTL * 9 / 10
}

func newDocumentStore(ctx context.Context, cfg *config.Config) storage.DocumentStore {
	if cfg.S3.Bucket == "" {
		if cfg.Server.Environment != "development" {
			logger.Fatal("AWS_S3_BUCKET is required outside development", nil)
		}
		logger.Warn("AWS_S3_BUCKET not set, certification documents are kept in memory", nil)
		return storage.NewMemoryDocumentStore()
	}
	return storage.NewS3DocumentStore(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.DocumentPrefix)
}

func newPIICodec(cfg *config.Config) (*crypto.XChaChaCodec, error) {
	if cfg.Audit.PIIKey != "" {
		return crypto.NewXChaChaCodecFromHex(cfg.Audit.PIIKey)
	}
	if cfg.Server.Environment != "development" {
		return nil, errors.New("AUDIT_PII_KEY is required outside development")
	}

	logger.Warn("AUDIT_PII_KEY not set, using an ephemeral key; audit entries will not be readable after restart", nil)
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return crypto.NewXChaChaCodec(key)
}
