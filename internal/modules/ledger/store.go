package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
)

// Store loads and persists ledger documents by strategy id
type Store interface {
	Load(strategyID string) (*Ledger, error)
	Save(strategyID string, l *Ledger) error
	Path(strategyID string) string
}

// FileStore keeps one JSON file per strategy in a directory.
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so readers see either the old or the new document.
type FileStore struct {
	dir string
	log zerolog.Logger
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FileStore{
		dir: dir,
		log: log.With().Str("store", "ledger").Logger(),
	}, nil
}

// Path returns the file backing a strategy's ledger
func (s *FileStore) Path(strategyID string) string {
	return filepath.Join(s.dir, "portfolio_"+strategyID+".json")
}

// Load reads a ledger. A missing file yields domain.ErrLedgerNotFound.
func (s *FileStore) Load(strategyID string) (*Ledger, error) {
	data, err := os.ReadFile(s.Path(strategyID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrLedgerNotFound, strategyID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrPersistence, strategyID, err)
	}

	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrPersistence, strategyID, err)
	}
	return &l, nil
}

// Save atomically replaces a ledger file
func (s *FileStore) Save(strategyID string, l *Ledger) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("%w: encode %s: %w", domain.ErrPersistence, strategyID, err)
	}

	if err := WriteFileAtomic(s.Path(strategyID), buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	s.log.Debug().Str("strategy", strategyID).Int64("cash", l.Cash).Msg("Ledger saved")
	return nil
}

// WriteFileAtomic writes data to a sibling temp file, syncs it and renames it
// over path
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
