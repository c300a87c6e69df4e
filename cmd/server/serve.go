package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/papertrader/internal/di"
	"github.com/aristath/papertrader/internal/scheduler"
	"github.com/aristath/papertrader/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	var devMode bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, container, log, err := a.setup(ctx, devMode)
			if err != nil {
				return err
			}
			defer container.Close()

			log.Info().
				Str("data_dir", cfg.DataDir).
				Str("timezone", cfg.Timezone).
				Msg("Starting paper trader")

			sched := scheduler.New(cfg.Location(), log)
			if _, err := di.RegisterJobs(container, sched, log); err != nil {
				return err
			}

			srv := server.New(server.Config{
				Log:       log,
				Port:      cfg.Port,
				DevMode:   devMode,
				Container: container,
			})

			serverErr := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			sched.Start()
			log.Info().Int("port", cfg.Port).Msg("Server started successfully")

			select {
			case <-ctx.Done():
				log.Info().Msg("Shutdown signal received")
			case err = <-serverErr:
				log.Error().Err(err).Msg("HTTP server failed")
			}

			sched.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
				log.Error().Err(shutdownErr).Msg("Server forced to shutdown")
			}

			log.Info().Msg("Server stopped")
			return err
		},
	}
	cmd.Flags().BoolVar(&devMode, "dev", false, "pretty logs and no-cache responses")
	return cmd
}
