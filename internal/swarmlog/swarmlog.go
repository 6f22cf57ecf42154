// Package swarmlog wires up the zap logger shared by every long-lived
// component of a run, writing human-readable lines to stderr and
// structured JSON lines to a per-run log file, the way the teacher's
// Logger split output across a console stream and files under an output
// directory.
package swarmlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const baseOutputDir = "output"

// New builds a *zap.Logger for one run, identified by runID, and returns a
// cleanup func that flushes and closes the underlying file. Callers should
// defer the cleanup immediately.
func New(runID string) (*zap.Logger, func(), error) {
	dir := filepath.Join(baseOutputDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}

	logPath := filepath.Join(dir, "run.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", logPath, err)
	}

	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderConfig())
	jsonEncoder := zapcore.NewJSONEncoder(jsonEncoderConfig())

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), zapcore.InfoLevel),
		zapcore.NewCore(jsonEncoder, zapcore.AddSync(f), zapcore.DebugLevel),
	)

	logger := zap.New(core).With(zap.String("run_id", runID))

	cleanup := func() {
		_ = logger.Sync()
		_ = f.Close()
	}

	return logger, cleanup, nil
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	return cfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	return cfg
}
