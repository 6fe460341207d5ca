package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a level name to a zap level. "trace" enables logr V(2).
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return zapcore.Level(-2), nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (expected trace, debug, info, warn, or error)", level)
	}
}

// New returns a logr logger writing JSON lines to w at the given level.
func New(level string, w io.Writer) (logr.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return logr.Logger{}, err
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	return zapr.NewLogger(zap.New(core)), nil
}

// NewFile opens path for appending and logs there. The returned closer
// releases the file. An empty path discards everything.
func NewFile(level, path string) (logr.Logger, io.Closer, error) {
	if strings.TrimSpace(path) == "" {
		if _, err := ParseLevel(level); err != nil {
			return logr.Logger{}, nil, err
		}
		return logr.Discard(), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return logr.Logger{}, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return logr.Logger{}, nil, fmt.Errorf("open log file: %w", err)
	}
	log, err := New(level, f)
	if err != nil {
		f.Close()
		return logr.Logger{}, nil, err
	}
	return log, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
