package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		log, err := New(Config{Level: "info", Format: "json"})
		require.NoError(t, err)
		assert.NotNil(t, log.Logger)
	})

	t.Run("console format", func(t *testing.T) {
		_, err := New(Config{Level: "debug", Format: "console"})
		require.NoError(t, err)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New(Config{Level: "verbose", Format: "json"})
		require.Error(t, err)
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "radprep.log")
		log, err := New(Config{
			Level:  "info",
			Format: "json",
			File:   &FileConfig{Enabled: true, Path: path},
		})
		require.NoError(t, err)

		log.Info("started")
		_ = log.Sync() // stdout sync can fail on some platforms
		assert.FileExists(t, path)
	})
}

func TestContextHelpers(t *testing.T) {
	log, err := New(Config{Level: "info", Format: "json"})
	require.NoError(t, err)

	assert.NotSame(t, log, log.WithRequestID("r1"))
	assert.NotSame(t, log, log.WithComponent("engine"))
	assert.NotSame(t, log, log.WithScope("report", "CT"))
}
