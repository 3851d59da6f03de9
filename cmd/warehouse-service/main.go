package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ksp/warehouse/internal/warehouse/consumers"
	"github.com/ksp/warehouse/internal/warehouse/events"
	"github.com/ksp/warehouse/internal/warehouse/handler"
	"github.com/ksp/warehouse/internal/warehouse/mailer"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/config"
	"github.com/ksp/warehouse/pkg/database"
	"github.com/ksp/warehouse/pkg/httputil"
	"github.com/ksp/warehouse/pkg/i18n"
	"github.com/ksp/warehouse/pkg/logger"
	"github.com/ksp/warehouse/pkg/messaging"
)

const serviceName = "warehouse-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment, cfg.Server.LogLevel)
	log.Info().Msg("starting Warehouse Service")

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(cfg.Database.DSN(), log); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos := repository.New(db)

	// RabbitMQ is optional; without it events are dropped and the user
	// cache is not refreshed.
	var (
		rmq       *messaging.RabbitMQ
		publisher *events.WarehousePublisher
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(ctx, &cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewWarehousePublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}

		userConsumer, err := consumers.NewUserEventConsumer(rmq, repos.Users, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create user event consumer")
		}
		if err := userConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start user event consumer")
		}
	} else {
		log.Warn().Msg("rabbitmq disabled, events will not be published")
	}

	opts := service.OptionsFromConfig(&cfg.Inventory)
	warehouseService := service.NewWarehouseService(db, repos, publisher, opts, log)

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP)
	notifier := service.NewExpiryNotifier(repos.Reports, smtpMailer, publisher, service.ExpiryNotifierConfig{
		Recipients: cfg.Notifications.Recipients,
		From:       smtpMailer.From(),
		WindowDays: cfg.Notifications.WindowDays,
		Location:   opts.Location,
	}, log)
	scheduler := service.NewExpiryScheduler(
		cfg.Notifications.Hour,
		cfg.Notifications.Minute,
		cfg.Notifications.Enabled,
		opts.Location,
		func(ctx context.Context) error {
			_, err := notifier.Run(ctx)
			return err
		},
		log,
	)
	scheduler.Start(ctx)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID", httputil.HeaderUserID, httputil.HeaderUserEmail, httputil.HeaderUserName},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(i18n.Middleware)
	r.Use(httputil.Actor)

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

	r.Route("/api/v1/warehouse", func(r chi.Router) {
		handler.Mount(r, warehouseService, log)
	})

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

	scheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
