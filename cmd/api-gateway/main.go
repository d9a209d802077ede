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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/foundation-api/api/swagger"
	"github.com/noah-isme/foundation-api/internal/handler"
	"github.com/noah-isme/foundation-api/internal/middleware"
	"github.com/noah-isme/foundation-api/internal/repository"
	"github.com/noah-isme/foundation-api/internal/service"
	"github.com/noah-isme/foundation-api/pkg/cache"
	"github.com/noah-isme/foundation-api/pkg/config"
	"github.com/noah-isme/foundation-api/pkg/database"
	"github.com/noah-isme/foundation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/foundation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/foundation-api/pkg/middleware/requestid"
	"github.com/noah-isme/foundation-api/pkg/storage"
)

// @title Foundation API
// @version 1.0.0
// @description Scholarship and educational support administration
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
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
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	users := repository.NewUserRepository(db)
	audits := repository.NewAuditRepository(db)
	configRepo := repository.NewSupportConfigRepository(db)
	applications := repository.NewApplicationRepository(db)
	beneficiaries := repository.NewBeneficiaryRepository(db)
	sessions := repository.NewAcademicSessionRepository(db)
	documents := repository.NewDocumentRepository(db)
	invitations := repository.NewInvitationRepository(db)
	notifications := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.SupportConfigs.CacheTTL, logr, redisClient != nil)
	supportConfigs := service.NewSupportConfigService(configRepo, cacheSvc, audits, validate, logr, cfg.SupportConfigs.CacheTTL)
	if cfg.SupportConfigs.SeedFile != "" {
		data, err := os.ReadFile(cfg.SupportConfigs.SeedFile)
		if err != nil {
			return fmt.Errorf("read support config seed: %w", err)
		}
		if _, err := supportConfigs.SeedFromYAML(ctx, data, ""); err != nil {
			return fmt.Errorf("seed support configs: %w", err)
		}
	}

	providers, err := service.NewDeliveryProviders(cfg.Notifications, logr)
	if err != nil {
		return fmt.Errorf("notification providers: %w", err)
	}
	dispatcher := service.NewOutboxDispatcher(notifications, providers, metrics, logr, service.OutboxDispatcherConfig{
		PollInterval:     cfg.Notifications.PollInterval,
		BatchSize:        cfg.Notifications.BatchSize,
		Workers:          cfg.Notifications.Workers,
		MaxAttempts:      cfg.Notifications.MaxAttempts,
		RetryDelay:       cfg.Notifications.RetryDelay,
		InlineRetries:    cfg.Notifications.InlineRetries,
		InlineRetryDelay: cfg.Notifications.InlineRetryDelay,
	})
	if cfg.Notifications.Enabled {
		dispatcher.Start(ctx)
		defer dispatcher.Stop()
	}

	store, err := storage.NewLocalStore(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	signer := storage.NewSigner(cfg.Storage.SignedURLSecret, cfg.Storage.UploadURLTTL, cfg.Storage.DownloadURLTTL)

	authSvc := service.NewAuthService(users, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	applicationSvc := service.NewApplicationService(applications, beneficiaries, documents, supportConfigs, metrics, validate, logr, service.ApplicationServiceConfig{
		AllowAdminOverride: cfg.Applications.AllowAdminOverride,
		BulkConcurrency:    cfg.Bulk.Concurrency,
	})
	userSvc := service.NewUserService(users, validate, logr)
	invitationSvc := service.NewInvitationService(invitations, users, validate, logr)
	webhookSvc, err := service.NewWebhookService(cfg.Webhook.ClerkSigningSecret, invitationSvc, userSvc, metrics, logr)
	if err != nil {
		return fmt.Errorf("webhook verifier: %w", err)
	}
	if cfg.Webhook.ClerkSigningSecret == "" {
		logr.Warn("CLERK_WEBHOOK_SECRET is empty; identity webhooks will be refused")
	}
	documentSvc := service.NewDocumentService(documents, applications, beneficiaries, supportConfigs, store, signer, audits, validate, logr, service.DocumentServiceConfig{
		MaxFileSizeBytes: cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Storage.AllowedMIMEs,
		FilesBaseURL:     cfg.PublicURL + "/files",
		BulkConcurrency:  cfg.Bulk.Concurrency,
	})

	handlers := handler.Handlers{
		Auth:           handler.NewAuthHandler(authSvc),
		Applications:   handler.NewApplicationHandler(applicationSvc),
		Beneficiaries:  handler.NewBeneficiaryHandler(service.NewBeneficiaryService(beneficiaries, sessions, supportConfigs, audits, validate, logr)),
		Documents:      handler.NewDocumentHandler(documentSvc),
		Eligibility:    handler.NewEligibilityHandler(service.NewEligibilityService(supportConfigs, validate)),
		Exports:        handler.NewExportHandler(service.NewExportService(applications, beneficiaries, logr)),
		Invitations:    handler.NewInvitationHandler(invitationSvc),
		Meetings:       handler.NewMeetingHandler(service.NewMeetingService(meetingConfig(cfg.LiveKit), validate)),
		Notifications:  handler.NewNotificationHandler(service.NewNotificationService(notifications, dispatcher, validate, logr, cfg.Bulk.Concurrency)),
		SupportConfigs: handler.NewSupportConfigHandler(supportConfigs),
		Users:          handler.NewUserHandler(userSvc),
		Webhooks:       handler.NewWebhookHandler(webhookSvc),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"database": db,
			"cache":    handler.PingFunc(cacheRepo.Ping),
		}),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, middleware.JWT(authSvc))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

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

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func meetingConfig(cfg config.LiveKitConfig) service.MeetingConfig {
	return service.MeetingConfig{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		URL:       cfg.URL,
		TokenTTL:  cfg.TokenTTL,
	}
}
