package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/teamvault/teamvault/internal/config"
	"github.com/teamvault/teamvault/internal/database"
	"github.com/teamvault/teamvault/internal/files"
	"github.com/teamvault/teamvault/internal/handler"
	"github.com/teamvault/teamvault/internal/storage"
)

func newServeCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(*cfgPath); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	l := config.NewLogger(cfg.Log).WithFields(log.Fields{
		"listen":      cfg.Listen,
		"db_file":     cfg.Database.File,
		"storage_dir": cfg.Storage.Dir,
	})
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer l.Println("got interruption signal")

	db, err := database.NewDb(cfg.Database.File)
	if err != nil {
		l.WithError(err).Error("failed to open database")
		return err
	}
	repo := database.NewRepository(db, l)

	// Rows left behind by a crash between the metadata insert and the object
	// write are never served; purge the stale ones on the way up.
	if _, err := repo.PurgeIncomplete(ctx, time.Now().Add(-cfg.Sweep.MaxAge)); err != nil {
		l.WithError(err).Error("startup sweep failed")
		return err
	}

	store, err := storage.NewDisk(cfg.Storage.Dir, l)
	if err != nil {
		l.WithError(err).Error("failed to init object storage")
		return err
	}

	svc := files.NewService(repo, store, l)
	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      handler.NewHandler(svc, l),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		l.Printf("listening on %s", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.WithError(err).Fatal("listen and serve returned err")
		}
	}()
	defer func() {
		if err := server.Shutdown(context.Background()); err != nil {
			l.WithError(err).Error("server shutdown returned an err")
		}
	}()

	<-ctx.Done()
	return nil
}
