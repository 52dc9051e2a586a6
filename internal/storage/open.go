package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wakeword-data/wakeword-data/internal/config"
)

// Open builds the bucket selected by cfg.Driver.
func Open(cfg config.StorageConfig, logger zerolog.Logger) (Bucket, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverLocalFS:
		lfs, err := NewLocalFS(cfg.Dir, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		lfs.SetLogger(logger.With().Str("component", "storage").Logger())
		return lfs, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
