// Package observability builds the structured loggers handed to the
// simulator and CLI. There is no process-wide logger: callers own the
// *zap.Logger they build here and inject it.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/san-kum/vdesim/internal/config"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// NewLogger builds a logger writing to stderr.
func NewLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	return New(cfg, zapcore.Lock(os.Stderr))
}

// New builds a logger whose console output goes to w. When cfg.LogFile is
// set, a JSON core writing through a rotating file is teed in at the same
// level.
func New(cfg config.LoggerConfig, w zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("observability: log level %q: %w", cfg.Level, err)
		}
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "", "console":
		enc = consoleEncoder()
	case "json":
		enc = jsonEncoder()
	default:
		return nil, fmt.Errorf("observability: unknown log format %q (want console or json)", cfg.Format)
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, w, level)}
	if cfg.LogFile != "" {
		// lumberjack serializes writes and rotates by size.
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(jsonEncoder(), fileWriter, level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)).Named("vdesim"), nil
}

func consoleEncoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func jsonEncoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(ec)
}
