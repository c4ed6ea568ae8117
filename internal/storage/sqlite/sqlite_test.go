package sqlitestorage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geostash/engine/internal/logging"
)

func TestClose_Idempotent(t *testing.T) {
	b, err := New(Config{DumpInterval: time.Hour}, logging.NewSlogManager())
	require.NoError(t, err)
	require.NoError(t, b.Init())

	// Session teardown can close an already-closed backend; neither the dump
	// stop channel nor the embedded backend may panic on the second call.
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}
