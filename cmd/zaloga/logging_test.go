package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerRoutesByLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var info, errs bytes.Buffer
	cleanup, err := setupLogger(slog.LevelInfo, "", &info, &errs)
	require.NoError(t, err)
	defer cleanup()

	slog.Debug("hidden")
	slog.Info("lot adjusted")
	slog.Error("ship failed")

	assert.Contains(t, info.String(), "lot adjusted")
	assert.NotContains(t, info.String(), "ship failed")
	assert.NotContains(t, info.String(), "hidden")
	assert.Contains(t, errs.String(), "ship failed")
	assert.NotContains(t, errs.String(), "lot adjusted")
}

func TestSetupLoggerWithFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "zaloga.log")
	var info, errs bytes.Buffer
	cleanup, err := setupLogger(slog.LevelInfo, path, &info, &errs)
	require.NoError(t, err)

	slog.Info("lot adjusted")
	slog.Error("ship failed")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lot adjusted")
	assert.Contains(t, string(data), "ship failed")
	assert.Empty(t, info.String())
	assert.Contains(t, errs.String(), "ship failed")
	assert.NotContains(t, errs.String(), "lot adjusted")
}
