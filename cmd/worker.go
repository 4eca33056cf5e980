package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/safetysync/services/telemetry/config"
	"example.com/safetysync/services/telemetry/internal/messaging"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long: `Start the background worker that consumes ingestion batches from
Azure Service Bus and runs the scheduled threshold scan, equipment health,
and retention cleanup jobs`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	configureLogging(cfg)

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer app.close()

	g, ctx := errgroup.WithContext(ctx)

	// Queue intake feeding the same ingestion pipeline as the API
	serviceBus, err := messaging.NewServiceBus(cfg.Azure)
	if err != nil {
		log.Warn().Err(err).Msg("Service Bus unavailable, worker runs scheduled jobs only")
	} else {
		defer serviceBus.Close()
		g.Go(func() error {
			log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting Service Bus batch consumer")
			return serviceBus.ProcessMessages(ctx, app.ingestion.ProcessBatchMessage)
		})
	}

	g.Go(func() error {
		return runScheduler(ctx, cfg, app)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

// runScheduler owns the periodic jobs: threshold scan, equipment health
// summary, and retention cleanup.
func runScheduler(ctx context.Context, cfg config.Config, app *app) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Alerting.ScanInterval),
		gocron.NewTask(func() {
			if _, err := app.alerting.ScanOnce(ctx, cfg.Alerting.ScanWindow); err != nil {
				log.Error().Err(err).Msg("Threshold scan failed")
			}
		}),
	)
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(6*time.Hour),
		gocron.NewTask(func() {
			if _, err := app.maint.HealthSummary(ctx, 6*time.Hour); err != nil {
				log.Error().Err(err).Msg("Equipment health summary failed")
			}
		}),
	)
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			if _, err := app.maint.CleanupExpired(ctx); err != nil {
				log.Error().Err(err).Msg("Retention cleanup failed")
			}
		}),
	)
	if err != nil {
		return err
	}

	log.Info().
		Dur("scan_interval", cfg.Alerting.ScanInterval).
		Msg("Starting scheduler")
	scheduler.Start()

	<-ctx.Done()

	return scheduler.Shutdown()
}
