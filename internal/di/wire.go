package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Load the strategy file
// 2. Initialize databases
// 3. Initialize services
// 4. Ensure every configured strategy has a ledger
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	file, err := config.LoadStrategies(cfg.StrategiesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategies: %w", err)
	}

	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeServices(ctx, container, file, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := container.Coordinator.Initialize(); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize ledgers: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, nil
}
