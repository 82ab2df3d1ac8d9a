package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/fieldconnect/internal/api/http"
	"github.com/spec-kit/fieldconnect/internal/api/http/handlers"
	"github.com/spec-kit/fieldconnect/internal/auth"
	"github.com/spec-kit/fieldconnect/internal/config"
	"github.com/spec-kit/fieldconnect/internal/events"
	"github.com/spec-kit/fieldconnect/internal/notify"
	"github.com/spec-kit/fieldconnect/internal/observability"
	"github.com/spec-kit/fieldconnect/internal/persistence"
	"github.com/spec-kit/fieldconnect/internal/service"
	"github.com/spec-kit/fieldconnect/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracing, err := observability.NewTracing(ctx, cfg.Telemetry, cfg.App)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	store := pg.Store()
	if store == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes, clock)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:     store.Users(),
		TokenManager: tokens,
		Logger:       logger,
	})
	userService := service.NewUserService(cfg.Auth, service.UserDependencies{Store: store, Logger: logger})
	appointmentService := service.NewAppointmentService(service.AppointmentDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     logger,
	})
	schedulingService, err := service.NewSchedulingService(cfg.Scheduling, service.SchedulingDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Clock:      clock,
		Tracer:     tracing.Tracer,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		logger.Fatal("invalid scheduling configuration", zap.Error(err))
	}

	if _, err := userService.EnsureBootstrapAdmin(ctx, cfg.Auth); err != nil {
		logger.Fatal("failed to create bootstrap administrator", zap.Error(err))
	}

	notificationService := service.NewNotificationService(dispatcher, store.Appointments(), notify.NewMailer(cfg.SMTP, logger), logger)
	worker.StartNotificationWorker(notificationService)

	var reminders *worker.ReminderWorker
	if cfg.Reminder.Enabled {
		reminders, err = worker.NewReminderWorker(cfg.Reminder, worker.ReminderDependencies{
			Appointments: appointmentService,
			Sender:       notificationService,
			Clock:        clock,
			Location:     cfg.Scheduling.Location,
			Logger:       logger,
		})
		if err != nil {
			logger.Fatal("invalid reminder schedule", zap.Error(err))
		}
		reminders.Start()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, tracing.Tracer, cfg.App.RequestTimeout())

	checks := map[string]handlers.DependencyCheck{"postgres": pg.Ping}
	if redis.Available() {
		checks["redis"] = redis.Ping
	}

	var limiter *httptransport.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = httptransport.NewRateLimiter(redis.Limiter(), cfg.RateLimit, logger)
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
		Auth:           handlers.NewAuthHandler(authService),
		Profile:        handlers.NewProfileHandler(userService),
		Appointments:   handlers.NewAppointmentsHandler(schedulingService, appointmentService),
		Management:     handlers.NewManagementHandler(userService, appointmentService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		RateLimiter:    limiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if reminders != nil {
		select {
		case <-reminders.Stop().Done():
		case <-shutdownCtx.Done():
		}
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
