package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/config"
	"github.com/aristath/papertrader/internal/database"
)

// InitializeDatabases opens the journal database and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{Config: cfg}

	// journal.db - Immutable trade history, maximum durability
	journalDB, err := database.New(database.Config{
		Path:    cfg.JournalDBPath(),
		Profile: database.ProfileLedger,
		Name:    "journal",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal database: %w", err)
	}
	container.JournalDB = journalDB

	if err := journalDB.Migrate(); err != nil {
		journalDB.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", journalDB.Name(), err)
	}

	log.Info().Str("path", journalDB.Path()).Msg("Journal database initialized")

	return container, nil
}
