package storage

import (
	"fmt"

	"github.com/geostash/engine/internal/cache"
	"github.com/geostash/engine/internal/config"
	"github.com/geostash/engine/internal/database"
	"github.com/geostash/engine/internal/logging"
	gormstorage "github.com/geostash/engine/internal/storage/gorm"
	"github.com/geostash/engine/internal/storage/memory"
	sqlitestorage "github.com/geostash/engine/internal/storage/sqlite"
)

// Compile-time interface checks for all backends
var (
	_ Backend = (*memory.Backend)(nil)
	_ Backend = (*gormstorage.Backend)(nil)
	_ Backend = (*sqlitestorage.Backend)(nil)
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, logManager *logging.SlogManager) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		db, err := database.GetPostgresDBStandalone()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return gormstorage.New(gormstorage.Dependencies{
			DB:           db,
			CapsuleCache: cache.NewCapsuleCache(),
			LogManager:   logManager,
		}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.Memory.OutputDir + "/geostash.db",
		}, logManager)
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
