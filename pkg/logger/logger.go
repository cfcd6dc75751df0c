/* pkg/logger/logger.go */

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/shared"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.Mutex
	log = zap.NewNop()
)

// Options controls where diagnostic logs go. The operator-facing journal is
// written separately by pkg/journal.
type Options struct {
	// Dir receives vmidctl.jsonl. Empty means console only.
	Dir string
	// Debug lowers the console threshold from WARN to DEBUG.
	Debug bool
	// Console defaults to os.Stderr so stdout stays free for command output.
	Console io.Writer
}

// Initialize builds the global logger: a console core plus a JSON file core.
// If the file cannot be opened it falls back to console only and says so.
func Initialize(opts Options) *zap.Logger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleLevel := zapcore.WarnLevel
	if opts.Debug {
		consoleLevel = zapcore.DebugLevel
	} else if lvl, ok := ParseLogLevel(os.Getenv("LOG_LEVEL")); ok {
		consoleLevel = lvl
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(DefaultConsoleEncoderConfig()), zapcore.Lock(zapcore.AddSync(console)), consoleLevel),
	}

	var path string
	if opts.Dir != "" {
		path = filepath.Join(opts.Dir, shared.DiagnosticFile)
		writer, err := GetLogFileWriter(path)
		if err != nil {
			fmt.Fprintf(console, "⚠️  Could not open %s, logging to console only: %v\n", path, err)
			path = ""
		} else {
			jsonCfg := zap.NewProductionEncoderConfig()
			jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
			jsonCfg.EncodeLevel = zapcore.CapitalLevelEncoder
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), writer, zapcore.DebugLevel))
		}
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	setGlobal(l)
	l.Debug("Logger initialized", zap.String("log_path", path), zap.Bool("debug", opts.Debug))
	return l
}

func setGlobal(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
	zap.ReplaceGlobals(l)
	otelzap.ReplaceGlobals(otelzap.New(l))
}

// L returns the global logger.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return log
}

// Sync flushes any buffered log entries. Call before the process exits.
func Sync() error {
	err := L().Sync()
	// stderr/stdout return EINVAL/ENOTTY on sync; that's not a failure
	if err != nil && (strings.Contains(err.Error(), "invalid argument") || strings.Contains(err.Error(), "inappropriate ioctl")) {
		return nil
	}
	return err
}

// GetLogFileWriter opens path for appending, creating its directory if needed.
func GetLogFileWriter(path string) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(path), shared.DirPermStandard); err != nil {
		return nil, fmt.Errorf("log directory error: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, shared.RuntimeFilePerms)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return zapcore.AddSync(file), nil
}

func DefaultConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "T"
	cfg.LevelKey = "L"
	cfg.NameKey = "N"
	cfg.CallerKey = ""
	cfg.MessageKey = "M"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// ParseLogLevel maps LOG_LEVEL values onto zap levels.
func ParseLogLevel(level string) (zapcore.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE", "DEBUG":
		return zapcore.DebugLevel, true
	case "INFO":
		return zapcore.InfoLevel, true
	case "WARN", "WARNING":
		return zapcore.WarnLevel, true
	case "ERROR":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.WarnLevel, false
	}
}
