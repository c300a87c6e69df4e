package marketdata

import (
	"errors"
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/ledger"
)

// SnapshotCache persists the latest market data snapshot as msgpack
type SnapshotCache struct {
	path string
}

// NewSnapshotCache creates a cache backed by path
func NewSnapshotCache(path string) *SnapshotCache {
	return &SnapshotCache{path: path}
}

// Path returns the cache file location
func (c *SnapshotCache) Path() string {
	return c.path
}

// Load reads the cached snapshot. A missing file yields ErrDataUnavailable.
func (c *SnapshotCache) Load() (*domain.MarketData, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no cached market data", domain.ErrDataUnavailable)
		}
		return nil, fmt.Errorf("failed to read market data cache: %w", err)
	}

	var md domain.MarketData
	if err := msgpack.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to decode market data cache: %w", err)
	}
	return &md, nil
}

// Save replaces the cached snapshot atomically
func (c *SnapshotCache) Save(md *domain.MarketData) error {
	data, err := msgpack.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to encode market data cache: %w", err)
	}
	return ledger.WriteFileAtomic(c.path, data)
}
