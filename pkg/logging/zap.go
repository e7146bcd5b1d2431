package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapConfig defines the zap backend configuration
type ZapConfig struct {
	Level  string         `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string         `yaml:"format"` // "json", "console"
	Output string         `yaml:"output"` // "stdout", "stderr", file path
	Caller bool           `yaml:"caller"`
	File   FileSinkConfig `yaml:"file,omitempty"`
}

// FileSinkConfig controls rotation when Output is a file path
type FileSinkConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb,omitempty"`
	MaxBackups int  `yaml:"max_backups,omitempty"`
	MaxAgeDays int  `yaml:"max_age_days,omitempty"`
	Compress   bool `yaml:"compress,omitempty"`
}

// DefaultZapConfig keeps the hook silent unless something goes wrong.
func DefaultZapConfig() ZapConfig {
	return ZapConfig{
		Level:  "warn",
		Format: "console",
		Output: "stderr",
		File: FileSinkConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// ZapLogger adapts a sugared zap logger to Logger.
type ZapLogger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

func NewZapLogger(config ZapConfig) (*ZapLogger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch config.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, newWriteSyncer(config), level)

	opts := []zap.Option{}
	if config.Caller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	logger := zap.New(core, opts...)
	return &ZapLogger{
		logger: logger,
		sugar:  logger.Sugar(),
	}, nil
}

func newWriteSyncer(config ZapConfig) zapcore.WriteSyncer {
	switch config.Output {
	case "stdout":
		return zapcore.Lock(zapcore.AddSync(os.Stdout))
	case "stderr", "":
		return zapcore.Lock(zapcore.AddSync(os.Stderr))
	default:
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   config.Output,
			MaxSize:    config.File.MaxSizeMB,
			MaxBackups: config.File.MaxBackups,
			MaxAge:     config.File.MaxAgeDays,
			Compress:   config.File.Compress,
		})
	}
}

// ParseLevel accepts the level names used in configuration files.
func ParseLevel(levelStr string) (zapcore.Level, error) {
	switch levelStr {
	case "debug":
		return zap.DebugLevel, nil
	case "info":
		return zap.InfoLevel, nil
	case "warn", "":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("invalid log level: %s", levelStr)
	}
}

func (z *ZapLogger) LogLevelf(level int, format string, args ...interface{}) {
	switch level {
	case LogLevelDebug:
		z.sugar.Debugf(format, args...)
	case LogLevelInfo:
		z.sugar.Infof(format, args...)
	case LogLevelWarn:
		z.sugar.Warnf(format, args...)
	default:
		z.sugar.Errorf(format, args...)
	}
}

func (z *ZapLogger) Debugf(format string, args ...interface{}) {
	z.sugar.Debugf(format, args...)
}

func (z *ZapLogger) Infof(format string, args ...interface{}) {
	z.sugar.Infof(format, args...)
}

func (z *ZapLogger) Warnf(format string, args ...interface{}) {
	z.sugar.Warnf(format, args...)
}

func (z *ZapLogger) Errorf(format string, args ...interface{}) {
	z.sugar.Errorf(format, args...)
}

// Sync flushes buffered entries. Errors from syncing a terminal are expected and ignored by callers.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
