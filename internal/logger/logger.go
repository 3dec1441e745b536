package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It discards everything until Init runs,
// so packages can log unconditionally, including from tests.
var Log = zap.NewNop().Sugar()

// Init replaces Log.
// With a logPath, plain (uncolored) lines replace that file;
// otherwise colored lines go to stderr, keeping stdout free for converted
// output.
func Init(verbose bool, logPath string) error {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encoderConfig.EncodeCaller = nil

	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	writer := zapcore.AddSync(os.Stderr)
	if logPath != "" {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", logPath, err)
		}
		writer = zapcore.AddSync(f)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), writer, level)
	Log = zap.New(core).Sugar()
	return nil
}

// Named returns the structured logger under a sub-name, for libraries that
// take a *zap.Logger.
func Named(name string) *zap.Logger {
	return Log.Desugar().Named(name)
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}
