// Package main is the entry point of the paper-trading engine. It runs the
// scheduled trading day as a server, or single phases from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/papertrader/internal/config"
	"github.com/aristath/papertrader/internal/di"
	"github.com/aristath/papertrader/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "papertrader",
		Short:         "Paper-trading capital allocation engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	var strategiesFile string
	root.PersistentFlags().StringVar(&strategiesFile, "strategies", "", "strategy file (overrides STRATEGIES_FILE)")

	app := &app{strategiesFile: &strategiesFile}
	root.AddCommand(serveCmd(app))
	for _, c := range actionCmds(app) {
		root.AddCommand(c)
	}
	root.AddCommand(resetCmd(app))
	root.AddCommand(ledgerCmd(app))
	return root
}

// app lazily loads configuration and wires the container for a command
type app struct {
	strategiesFile *string
}

// setup loads configuration and wires dependencies. CLI commands log to
// stderr so stdout carries only command output.
func (a *app) setup(ctx context.Context, pretty bool) (*config.Config, *di.Container, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true, Output: os.Stderr})
		fallback.Error().Err(err).Msg("Failed to load configuration")
		return nil, nil, fallback, err
	}
	if *a.strategiesFile != "" {
		cfg.StrategiesFile = *a.strategiesFile
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: pretty || cfg.LogPretty,
		Output: os.Stderr,
	})
	logger.SetGlobalLogger(log)

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to wire dependencies")
		return nil, nil, log, err
	}
	return cfg, container, log, nil
}
