package cmd

import (
	"example.com/safetysync/services/telemetry/config"
	"example.com/safetysync/services/telemetry/internal/database"
	"example.com/safetysync/services/telemetry/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Runs database migrations to ensure the database schema
is up-to-date. This is useful for CI/CD pipelines or initial setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// runMigration executes the database migrations
func runMigration() error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	configureLogging(cfg)

	log.Info().Msg("Connecting to database")
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)

	log.Info().Msg("Running database migrations")
	if err := models.SetupModels(db); err != nil {
		return err
	}

	log.Info().Msg("Database migrations completed successfully")
	return nil
}
