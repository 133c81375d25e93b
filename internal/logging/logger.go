// Package logging собирает zap-логгер сервиса по конфигурации.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Форматы вывода
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config настройки логирования
type Config struct {
	Level  string            `koanf:"level"`
	Format string            `koanf:"format"`
	Fields map[string]string `koanf:"fields"`
}

// DefaultConfig info, json
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatJSON}
}

// Validate проверяет уровень и формат
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	if c.Format != FormatJSON && c.Format != FormatConsole {
		return fmt.Errorf("invalid log format %q: must be %s or %s", c.Format, FormatJSON, FormatConsole)
	}
	return nil
}

// New создает логгер, пишущий в stderr
func New(cfg Config, service string) (*zap.Logger, error) {
	return NewWithWriter(cfg, service, zapcore.Lock(os.Stderr))
}

// NewWithWriter создает логгер поверх произвольного writer
func NewWithWriter(cfg Config, service string, w zapcore.WriteSyncer) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	level, _ := zapcore.ParseLevel(cfg.Level)

	core := zapcore.NewCore(newEncoder(cfg.Format), w, level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	fields := make([]zap.Field, 0, len(cfg.Fields)+1)
	if service != "" {
		fields = append(fields, zap.String("service", service))
	}
	for k, v := range cfg.Fields {
		fields = append(fields, zap.String(k, v))
	}
	return logger.With(fields...), nil
}

// newEncoder JSON или console с ISO8601 временем в ключе ts
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == FormatConsole {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// NewObserved логгер для тестов с доступом к записям
func NewObserved(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}
