package cmd

import (
	"example.com/safetysync/services/telemetry/config"
	"example.com/safetysync/services/telemetry/internal/cache"
	"example.com/safetysync/services/telemetry/internal/database"
	"example.com/safetysync/services/telemetry/internal/metrics"
	"example.com/safetysync/services/telemetry/internal/models"
	"example.com/safetysync/services/telemetry/internal/repositories"
	"example.com/safetysync/services/telemetry/internal/search"
	"example.com/safetysync/services/telemetry/internal/services"
	"example.com/safetysync/services/telemetry/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Sensor telemetry ingestion and quality scoring service",
	Long: `A service that ingests industrial sensor readings over HTTP and
Azure Service Bus, validates and deduplicates them, scores batch data
quality, and raises alerts when safety thresholds are exceeded.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize()
}

// app bundles the shared dependencies wired up by the serve and worker commands
type app struct {
	cfg       config.Config
	db        *gorm.DB
	cache     *cache.RedisCache
	tracer    tracing.Tracer
	metrics   *metrics.Metrics
	ingestion *services.IngestionService
	equipment *services.EquipmentService
	alerting  *services.AlertingService
	stats     *services.StatsService
	maint     *services.MaintenanceService
	health    *services.HealthService
}

// buildApp initializes the shared stack: database, cache, tracing, search,
// repositories, and services. Optional dependencies degrade with a warning.
func buildApp(cfg config.Config) (*app, error) {
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := models.SetupModels(db); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = nil
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}

	var indexer search.Indexer
	if cfg.Elastic.Enabled {
		elasticClient, err := search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without indexing")
		} else {
			indexer = elasticClient
		}
	}

	metricsCollector := metrics.NewMetrics()

	equipmentRepo := repositories.NewEquipmentRepository(db)
	readingRepo := repositories.NewReadingRepository(db)
	qualityRepo := repositories.NewQualityRepository(db)
	alertRepo := repositories.NewAlertRepository(db)

	equipmentService := services.NewEquipmentService(equipmentRepo, readingRepo, redisCache, metricsCollector, tracer)
	writer := services.NewReadingWriter(readingRepo)
	ingestionService := services.NewIngestionService(
		cfg.Pipeline, equipmentService, writer, qualityRepo, indexer, metricsCollector, tracer)
	alertingService := services.NewAlertingService(
		cfg.Alerting.Thresholds, readingRepo, alertRepo, indexer, metricsCollector, tracer)
	statsService := services.NewStatsService(qualityRepo)
	maintService := services.NewMaintenanceService(readingRepo, alertRepo, cfg.Retention)
	healthService := services.NewHealthService(db, redisCache)

	return &app{
		cfg:       cfg,
		db:        db,
		cache:     redisCache,
		tracer:    tracer,
		metrics:   metricsCollector,
		ingestion: ingestionService,
		equipment: equipmentService,
		alerting:  alertingService,
		stats:     statsService,
		maint:     maintService,
		health:    healthService,
	}, nil
}

// close releases the app's connections
func (a *app) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
	if a.tracer != nil {
		a.tracer.Close()
	}
	if err := database.Close(a.db); err != nil {
		log.Warn().Err(err).Msg("Failed to close database connection")
	}
}
