package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"github.com/selimacar/frame-notifier/internal/activity"
	"github.com/selimacar/frame-notifier/internal/config"
	"github.com/selimacar/frame-notifier/internal/handler"
	"github.com/selimacar/frame-notifier/internal/infra/postgresql"
	"github.com/selimacar/frame-notifier/internal/infra/postgresql/migrations"
	infraredis "github.com/selimacar/frame-notifier/internal/infra/redis"
	"github.com/selimacar/frame-notifier/internal/observability"
	"github.com/selimacar/frame-notifier/internal/provider"
	"github.com/selimacar/frame-notifier/internal/ratelimit"
	"github.com/selimacar/frame-notifier/internal/repository"
	"github.com/selimacar/frame-notifier/internal/service"
	"github.com/selimacar/frame-notifier/internal/transport"
	"github.com/selimacar/frame-notifier/internal/verify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	notificationRepo := repository.NewGormNotificationRepo(db)
	recipientRepo := repository.NewGormRecipientRepo(db)

	tokenCap, err := infraredis.NewTokenDailyCap(rdb, cfg.TokenDailyCap)
	if err != nil {
		logger.Fatal("token daily cap initialization failed", zap.Error(err))
	}
	limiter := ratelimit.NewSlidingWindowLimiter(cfg.RateLimitPerMinute)
	webhookProvider := provider.NewWebhookProvider()

	enqueuer, err := service.NewEnqueuer(notificationRepo, cfg.NotificationsEnabled, logger)
	if err != nil {
		logger.Fatal("enqueuer initialization failed", zap.Error(err))
	}
	enqueuer.SetMetrics(metrics)

	processor, err := service.NewDeliveryProcessor(
		notificationRepo,
		recipientRepo,
		webhookProvider,
		limiter,
		tokenCap,
		cfg.MaxRetries,
		cfg.NotificationsEnabled,
		logger,
	)
	if err != nil {
		logger.Fatal("delivery processor initialization failed", zap.Error(err))
	}
	processor.SetMetrics(metrics)

	activityChecker, err := activity.NewHTTPChecker(cfg.AppBaseURL)
	if err != nil {
		logger.Fatal("activity checker initialization failed", zap.Error(err))
	}

	scheduler, err := service.NewScheduler(recipientRepo, notificationRepo, enqueuer, activityChecker, cfg.AppBaseURL, logger)
	if err != nil {
		logger.Fatal("scheduler initialization failed", zap.Error(err))
	}

	lifecycle, err := service.NewLifecycle(recipientRepo, notificationRepo, enqueuer, cfg.AppBaseURL, logger, metrics)
	if err != nil {
		logger.Fatal("lifecycle service initialization failed", zap.Error(err))
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		logger.Fatal("verifier initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "frame-notifier",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	if err := handler.RegisterWebhookRoutes(app, verifier, lifecycle, logger); err != nil {
		logger.Fatal("webhook route registration failed", zap.Error(err))
	}
	if err := handler.RegisterNotificationRoutes(app, notificationRepo); err != nil {
		logger.Fatal("notification route registration failed", zap.Error(err))
	}
	if err := handler.RegisterAnnouncementRoutes(app, scheduler); err != nil {
		logger.Fatal("announcement route registration failed", zap.Error(err))
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schedule := cron.New()
	registerCronJobs(ctx, schedule, cfg, processor, scheduler, logger)

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("frame-notifier api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		schedule.Start()
		<-groupCtx.Done()

		cronCtx := schedule.Stop()
		select {
		case <-cronCtx.Done():
		case <-time.After(shutdownTimeout):
			logger.Warn("cron jobs did not finish before shutdown deadline")
		}
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
	logger.Info("frame-notifier stopped")
}

func buildVerifier(cfg *config.Config) (verify.Verifier, error) {
	if !cfg.IsProduction() {
		return verify.NewStructuralVerifier(), nil
	}

	registry, err := verify.NewHTTPKeyRegistry(cfg.KeyRegistryURL)
	if err != nil {
		return nil, err
	}
	return verify.NewEd25519Verifier(registry)
}

func registerCronJobs(
	ctx context.Context,
	schedule *cron.Cron,
	cfg *config.Config,
	processor *service.DeliveryProcessor,
	scheduler *service.Scheduler,
	logger *zap.Logger,
) {
	mustAdd := func(spec string, name string, run func(context.Context) error) {
		if _, err := schedule.AddFunc(spec, func() {
			if err := run(ctx); err != nil {
				logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			}
		}); err != nil {
			logger.Fatal("cron registration failed", zap.String("job", name), zap.Error(err))
		}
	}

	mustAdd("* * * * *", "delivery_pass", processor.RunPass)
	mustAdd(fmt.Sprintf("0 %d * * *", cfg.DailyReminderHour), "daily_reminder", scheduler.RunDailyPass)
	mustAdd(fmt.Sprintf("0 %d * * *", cfg.EveningReminderHour), "evening_reminder", scheduler.RunEveningPass)
	mustAdd("0 3 * * *", "retention_cleanup", scheduler.RunRetentionCleanup)
}
