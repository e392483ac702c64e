// Package logging builds the zap loggers of the command line tools.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables read by NewConfig.
const (
	LevelEnvVar  = "LOG_LEVEL"
	FormatEnvVar = "LOG_FORMAT"
)

// NewConfig returns the logger configuration selected by LOG_FORMAT and LOG_LEVEL.
//
// Logs always go to stderr, stdout carries the command output.
func NewConfig() zap.Config {
	var config zap.Config

	if os.Getenv(FormatEnvVar) == "development" {
		config = newDevelopmentConfig()
	} else {
		config = newProductionConfig()
	}

	if level, ok := os.LookupEnv(LevelEnvVar); ok {
		if strings.ToLower(level) == "warning" {
			level = "warn"
		}

		if lvl, err := zap.ParseAtomicLevel(level); err == nil {
			config.Level = lvl
		}
	}

	return config
}

// New builds a named logger, verbose forces the debug level.
func New(name string, verbose bool) (*zap.Logger, error) {
	config := NewConfig()

	if verbose {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger.Named(name), nil
}

func newDevelopmentConfig() zap.Config {
	return zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.DebugLevel),
		Development:       true,
		DisableStacktrace: true,
		Encoding:          "console",
		EncoderConfig:     newDevelopmentEncoderConfig(),
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

func newProductionConfig() zap.Config {
	return zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    newProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

func newDevelopmentEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := newProductionEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return encoderConfig
}

func newProductionEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "severity",
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
}
