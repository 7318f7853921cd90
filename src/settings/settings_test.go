package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults without env file", func(t *testing.T) {
		args, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, "./datafiles", args.DataDir)
		assert.Equal(t, 7, args.JournalRetentionDays)
		assert.Same(t, args, GetSettings())
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv(EnvDataDir, "/tmp/syndr")
		t.Setenv(EnvDebug, "true")
		t.Setenv(EnvJournalMaxBytes, "2048")

		args, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, "/tmp/syndr", args.DataDir)
		assert.True(t, args.Debug)
		assert.Equal(t, int64(2048), args.JournalMaxBytes)
	})

	t.Run("env file is applied", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(envFile, []byte("SYNDR_LOG_DIR=/var/log/syndr\n"), 0644))
		t.Cleanup(func() { os.Unsetenv(EnvLogDir) })

		args, err := Load(envFile)
		require.NoError(t, err)
		assert.Equal(t, "/var/log/syndr", args.LogDir)
	})

	t.Run("invalid boolean", func(t *testing.T) {
		t.Setenv(EnvVerbose, "sometimes")

		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})
}
