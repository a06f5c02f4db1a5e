package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/maestranza/maestranza-backend/internal/auth/jwt"
	"github.com/maestranza/maestranza-backend/internal/inventory/app"
	"github.com/maestranza/maestranza-backend/internal/inventory/consumers"
	"github.com/maestranza/maestranza-backend/internal/inventory/events"
	"github.com/maestranza/maestranza-backend/internal/inventory/handler"
	"github.com/maestranza/maestranza-backend/internal/inventory/service"
	userhandler "github.com/maestranza/maestranza-backend/internal/user/handler"
	userrepo "github.com/maestranza/maestranza-backend/internal/user/repository"
	usersvc "github.com/maestranza/maestranza-backend/internal/user/service"
	"github.com/maestranza/maestranza-backend/pkg/config"
	"github.com/maestranza/maestranza-backend/pkg/database"
	"github.com/maestranza/maestranza-backend/pkg/httputil"
	"github.com/maestranza/maestranza-backend/pkg/lock"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/mail"
	"github.com/maestranza/maestranza-backend/pkg/messaging"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
	"github.com/maestranza/maestranza-backend/pkg/storage"
)

const serviceName = "inventory-service"

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	// Events go through RabbitMQ when enabled, otherwise through an
	// in-process bus with the same handlers.
	var (
		publisher messaging.EventPublisher
		rmq       *messaging.RabbitMQ
		bus       *messaging.LocalBus
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, events.Source, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	} else {
		bus = messaging.NewLocalBus(events.Source, log)
		publisher = bus
	}

	files, err := storage.NewFileStore(cfg.Storage.BaseDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare document storage")
	}

	users := userrepo.NewUserRepository(db)
	tokens := jwt.NewManager(&cfg.JWT)

	svc := app.NewServices(app.Deps{
		DB:         db,
		Publisher:  publisher,
		Mailer:     mail.NewSender(&cfg.SMTP, log),
		Files:      files,
		Recipients: users,
	}, log)

	if bus != nil {
		consumers.NewAlertConsumer(svc.Orders, log).Register(bus)
		consumers.NewQuotationConsumer(svc.Quotations, log).Register(bus)
	} else {
		startRabbitConsumers(ctx, rmq, svc, log)
	}

	scheduler := newScheduler(ctx, cfg, svc.Alerts, log)
	if cfg.Scheduler.Enabled {
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	userHandler := userhandler.NewUserHandler(usersvc.NewUserService(users, tokens, log), log)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", userHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(httputil.Authenticate(tokens))
			r.Route("/users", userHandler.Routes)
			handler.Register(r, svc, log)
		})
	})

	// Generated documents are served from local storage to authenticated readers.
	if strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		prefix := strings.TrimSuffix(cfg.Storage.PublicBaseURL, "/")
		r.With(
			httputil.Authenticate(tokens),
			httputil.RequirePermission(permissions.ActionRead, permissions.ResourceQuotations),
		).Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.Storage.BaseDir))))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stops consumers and the scheduler
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// startRabbitConsumers starts the alert and quotation consumers and
// restarts them whenever the broker connection is re-established
func startRabbitConsumers(ctx context.Context, rmq *messaging.RabbitMQ, svc handler.Services, log *logger.Logger) {
	if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
		log.Warn().Err(err).Msg("failed to declare dead letter queue")
	}

	start := func(ctx context.Context) error {
		alerts, err := consumers.NewRabbitAlertConsumer(rmq, svc.Orders, log)
		if err != nil {
			return fmt.Errorf("alert consumer: %w", err)
		}
		if err := alerts.Start(ctx); err != nil {
			return fmt.Errorf("alert consumer: %w", err)
		}

		quotations, err := consumers.NewRabbitQuotationConsumer(rmq, svc.Quotations, log)
		if err != nil {
			return fmt.Errorf("quotation consumer: %w", err)
		}
		return quotations.Start(ctx)
	}

	if err := start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start event consumers")
	}
	go rmq.Watch(ctx, start)
}

// newScheduler registers the periodic alert sweeps. The lease lives in
// Redis when configured so only one replica sweeps at a time.
func newScheduler(ctx context.Context, cfg *config.Config, alerts *service.AlertService, log *logger.Logger) *service.Scheduler {
	var locker lock.Locker = lock.Local{}
	if cfg.Redis.Enabled {
		client, err := lock.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, scheduler runs without a shared lease")
		} else {
			locker = lock.NewRedisLocker(client, serviceName)
		}
	}

	s := service.NewScheduler(locker, cfg.Scheduler.LeaseTTL, log)
	s.Schedule(service.Job{Name: "evaluate-alerts", Run: func(ctx context.Context) error {
		res, err := alerts.EvaluateAllProducts(ctx)
		if err != nil {
			return err
		}
		if res.Created > 0 || res.Failed > 0 {
			log.Info().Int("scanned", res.Scanned).Int("created", res.Created).Int("failed", res.Failed).Msg("low stock sweep")
		}
		return nil
	}}, cfg.Scheduler.EvaluateInterval)
	s.Schedule(service.Job{Name: "silence-stale-alerts", Run: func(ctx context.Context) error {
		_, err := alerts.SilenceStaleAlerts(ctx, cfg.Scheduler.SilenceMaxAge)
		return err
	}}, cfg.Scheduler.SilenceInterval)
	s.Schedule(service.Job{Name: "retry-unprocessed-alerts", Run: func(ctx context.Context) error {
		_, err := alerts.RetryUnprocessedAlerts(ctx)
		return err
	}}, cfg.Scheduler.RetryInterval)
	return s
}
