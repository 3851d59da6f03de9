// Command expiry-notifier runs the expiry notification once and exits. It
// is meant for cron or manual runs; the service runs the same report daily.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/events"
	"github.com/ksp/warehouse/internal/warehouse/mailer"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/config"
	"github.com/ksp/warehouse/pkg/database"
	"github.com/ksp/warehouse/pkg/logger"
	"github.com/ksp/warehouse/pkg/messaging"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print the mail body instead of sending it")
	window := flag.Int("days", -1, "override the notification window in days")
	flag.Parse()

	cfg, err := config.LoadWithValidation("warehouse-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("expiry-notifier", cfg.Server.Environment, cfg.Server.LogLevel)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var publisher *events.WarehousePublisher
	if cfg.RabbitMQ.Enabled && !*dryRun {
		rmq, err := messaging.New(ctx, &cfg.RabbitMQ, log)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, report event will not be published")
		} else {
			defer rmq.Close()
			if publisher, err = events.NewWarehousePublisher(rmq, log); err != nil {
				log.Warn().Err(err).Msg("failed to create event publisher")
			}
		}
	}

	windowDays := cfg.Notifications.WindowDays
	if *window >= 0 {
		windowDays = *window
	}

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP)
	var m mailer.Mailer = smtpMailer
	if *dryRun {
		m = stdoutMailer{}
	}

	notifier := service.NewExpiryNotifier(repository.NewReportRepository(db), m, publisher, service.ExpiryNotifierConfig{
		Recipients: cfg.Notifications.Recipients,
		From:       smtpMailer.From(),
		WindowDays: windowDays,
		Location:   cfg.Inventory.Location(),
	}, log)

	report, err := notifier.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("expiry notification failed")
	}
	log.Info().Bool("sent", report.Sent).Int("units", report.Units).Msg("expiry notification finished")
}

type stdoutMailer struct{}

func (stdoutMailer) Send(_ context.Context, msg mailer.Message) error {
	_, err := os.Stdout.Write(mailer.Compose("dry-run", msg))
	return err
}
