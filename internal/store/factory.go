package store

import (
	"context"
	"fmt"
	"path/filepath"

	"fic-go/internal/config"
	"fic-go/internal/fic"
)

// DefaultSQLiteFile is the database name used under the base directory when
// a sqlite store has no explicit path.
const DefaultSQLiteFile = "fic.db"

// NewStoreFromConfig creates a SnapshotStore based on the store config type.
// baseDir anchors default locations that do not live in the invocation
// directory. Encryption options are only accepted by blob stores.
func NewStoreFromConfig(ctx context.Context, cfg config.StoreConfig, baseDir string, opts ...Option) (fic.SnapshotStore, error) {
	encrypted := newBlobCodec(opts).encrypted()

	switch cfg.Type {
	case config.StoreJSON, "":
		path := cfg.Path
		if path == "" {
			path = config.DefaultBaselineFile
		}
		return NewFileStore(path, opts...), nil
	case config.StoreS3:
		s, err := NewS3StoreFromConfig(ctx, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreSQLite:
		if encrypted {
			return nil, fmt.Errorf("encryption is not supported by the sqlite store")
		}
		path := cfg.Path
		if path == "" {
			path = filepath.Join(baseDir, DefaultSQLiteFile)
		}
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreMemory:
		if encrypted {
			return nil, fmt.Errorf("encryption is not supported by the memory store")
		}
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}
