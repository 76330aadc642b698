package main

import (
	"context"

	"github.com/MediSynth-io/contentplanner/internal/config"
	"github.com/MediSynth-io/contentplanner/internal/database"
	"github.com/MediSynth-io/contentplanner/internal/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// env is what every subcommand shares once the root has loaded configuration.
type env struct {
	configPath string
	cfg        *config.Config
	log        zerolog.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "plannerctl",
		Short: "Operate a content planner deployment",
		Long: `Maintenance commands for the content planner database and reminder worker.

Examples:
  plannerctl migrate up
  plannerctl seed-templates --file templates.yaml
  plannerctl dispatch --once
  plannerctl check`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.LoadConfig(e.configPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = logger.NewWithWriter(cfg.Environment, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "app.yml", "Path to configuration file")

	root.AddCommand(
		newMigrateCmd(e),
		newSeedCmd(e),
		newDispatchCmd(e),
		newCheckCmd(e),
	)
	return root
}

func (e *env) openDB(ctx context.Context) (*database.DB, error) {
	return database.Open(ctx, e.cfg.Database, e.log)
}
