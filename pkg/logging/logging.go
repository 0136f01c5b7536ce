// Package logging builds the zap loggers used across go-gridpool.
package logging

import (
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents logger configuration.
type Config struct {
	Level       string   `mapstructure:"level"`
	Development bool     `mapstructure:"development"`
	Encoding    string   `mapstructure:"encoding"` // json or console
	OutputPaths []string `mapstructure:"output_paths"`
}

// DefaultConfig logs info and above as JSON to stdout.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Encoding:    "json",
		OutputPaths: []string{"stdout"},
	}
}

// New creates a zap logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid log level").
				WithMetadata(map[string]any{"level": cfg.Level})
		}
		level = parsed
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
	}
	if encoding != "json" && encoding != "console" {
		return nil, goerrors.New("log encoding must be json or console", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"encoding": encoding})
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.Development && encoding == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build logger")
	}
	return logger.Named("gridpool"), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
