package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   zapcore.Level
		wantOK bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"TRACE", zapcore.DebugLevel, true},
		{"info", zapcore.InfoLevel, true},
		{"WARNING", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"", zapcore.WarnLevel, false},
		{"verbose", zapcore.WarnLevel, false},
	}
	for _, tt := range tests {
		got, ok := ParseLogLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestInitializeWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	l := Initialize(Options{Dir: dir, Console: &console})
	t.Cleanup(func() { setGlobal(zap.NewNop()) })

	l.Info("step finished", zap.Int("vmid", 101))
	l.Warn("stop failed")
	_ = l.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "vmidctl.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"step finished"`)
	assert.Contains(t, string(data), `"vmid":101`)

	// console threshold is WARN without --debug
	assert.NotContains(t, console.String(), "step finished")
	assert.Contains(t, console.String(), "stop failed")
	assert.Same(t, l, L())
}

func TestInitializeFallsBackToConsole(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	var console bytes.Buffer

	l := Initialize(Options{Dir: blocker, Console: &console, Debug: true})
	t.Cleanup(func() { setGlobal(zap.NewNop()) })

	l.Debug("still logging")
	assert.Contains(t, console.String(), "logging to console only")
	assert.Contains(t, console.String(), "still logging")
}
