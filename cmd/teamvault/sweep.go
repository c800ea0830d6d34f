package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/teamvault/teamvault/internal/config"
	"github.com/teamvault/teamvault/internal/database"
)

func newSweepCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Purge incomplete upload rows older than sweep.max_age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(*cfgPath); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			l := config.NewLogger(cfg.Log).WithField("db_file", cfg.Database.File)
			db, err := database.NewDb(cfg.Database.File)
			if err != nil {
				l.WithError(err).Error("failed to open database")
				return err
			}

			purged, err := database.NewRepository(db, l).
				PurgeIncomplete(cmd.Context(), time.Now().Add(-cfg.Sweep.MaxAge))
			if err != nil {
				l.WithError(err).Error("sweep failed")
				return err
			}
			cmd.Printf("purged %d incomplete upload rows\n", purged)
			return nil
		},
	}
}
