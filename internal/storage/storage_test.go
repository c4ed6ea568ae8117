package storage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geostash/engine/internal/config"
	"github.com/geostash/engine/internal/logging"
	"github.com/geostash/engine/internal/storage"
	"github.com/geostash/engine/internal/storage/memory"
)

func TestNewBackend_Memory(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{OutputDir: t.TempDir()},
	}, logging.NewSlogManager())

	require.NoError(t, err)
	require.NotNil(t, b)
	_, ok := b.(*memory.Backend)
	assert.True(t, ok, "expected a memory backend")
}

func TestNewBackend_Sqlite(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "sqlite",
		Memory: config.MemoryConfig{OutputDir: t.TempDir()},
		SQLite: config.SQLiteConfig{DumpInterval: time.Minute},
	}, logging.NewSlogManager())

	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestNewBackend_UnknownType(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "carrier-pigeon"}, logging.NewSlogManager())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}

func TestMemoryBackendIsExportable(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{OutputDir: t.TempDir()},
	}, logging.NewSlogManager())
	require.NoError(t, err)

	_, ok := b.(storage.Exportable)
	assert.True(t, ok, "memory backend should produce session recaps")
}
