package cliutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		in  string
		out slog.Level
		ok  bool
	}{
		{"", slog.LevelInfo, true},
		{"debug", slog.LevelDebug, true},
		{"WARN", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, f := range fixtures {
		lvl, err := ParseLevel(f.in)
		if f.ok {
			assert.NoError(err, f.in)
			assert.Equal(f.out, lvl, f.in)
		} else {
			assert.Error(err, f.in)
		}
	}
}

func TestSetupSlog(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "starling.log")
	logger, err := SetupSlog(LogOptions{LogFormat: "json", LogLevel: "warn", LogPath: path})
	require.NoError(err)
	assert.False(logger.Enabled(context.Background(), slog.LevelInfo))
	logger.Warn("hello", "k", "v")

	b, err := os.ReadFile(path)
	require.NoError(err)
	assert.Contains(string(b), `"msg":"hello"`)

	_, err = SetupSlog(LogOptions{LogFormat: "xml"})
	assert.Error(err)
}

func TestSetupDatabase(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	db, err := SetupDatabase("sqlite://"+filepath.Join(t.TempDir(), "sub", "runs.sqlite"), 4)
	require.NoError(err)
	assert.NoError(db.Exec("SELECT 1").Error)

	_, err = SetupDatabase("mysql://nope", 1)
	assert.Error(err)
}
