package store

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/shared"
)

// Open builds a Store for the configured backend.
//
// db is only used by the sqlite backend and may be nil otherwise. An unusable keyring
// falls back to the file backend with a warning.
func Open(cfg shared.StorageConfig, db *sql.DB, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = shared.WithLogger(logger, "component", "store")

	switch cfg.Backend {
	case "", "sqlite":
		if db == nil {
			return nil, fmt.Errorf("%w: sqlite backend requires a database", shared.ErrStorageUnavailable)
		}
		return New(repositories.NewCredentialRepository(db), logger), nil
	case "keyring":
		kb, err := NewKeyringBackend()
		if err != nil {
			fb := NewFileBackend(cfg.Dir)
			logger.Warn("keyring unavailable, storing credentials in plaintext", "path", fb.Path(), "err", err)
			return New(fb, logger), nil
		}
		return New(kb, logger), nil
	case "file":
		return New(NewFileBackend(cfg.Dir), logger), nil
	case "memory":
		return New(NewMemoryBackend(), logger), nil
	case "none":
		return New(nil, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}
