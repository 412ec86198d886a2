package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, closer, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	l.Info("hidden")
	l.Warn("shown", "habit", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "habit=abc")
}

func TestNew_WritesFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "habits.log")

	l, closer, err := New(Config{Level: "info", File: path, Output: &buf})
	require.NoError(t, err)

	l.Info("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}
