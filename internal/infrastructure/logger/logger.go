// Package logger builds the zap loggers used across the marketplace and
// carries them through contexts, gin requests and GORM.
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config describes one logger. Output is stdout, stderr or a file path.
type Config struct {
	Level      string
	Format     string
	Output     string
	TimeFormat string
	// Sample keeps the first 100 debug entries per message each second and
	// drops the rest. Info and above are never sampled.
	Sample bool
}

// DefaultConfig is the coloured console preset used outside production
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "console", Output: "stdout", TimeFormat: defaultTimeFormat}
}

// ProductionConfig is the JSON preset shipped to the log pipeline
func ProductionConfig() *Config {
	return &Config{Level: "info", Format: "json", Output: "stdout", TimeFormat: defaultTimeFormat, Sample: true}
}

// New builds a logger with caller info and stack traces on errors
func New(cfg *Config) (*zap.Logger, error) {
	writer, err := openWriter(cfg.Output)
	if err != nil {
		return nil, err
	}
	level := ParseLevel(cfg.Level)
	core := zapcore.NewCore(newEncoder(cfg), writer, level)
	if cfg.Sample {
		core = sampleDebug(core)
	}
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// NewFromSettings starts from the preset for env and overrides whatever
// the [log] section sets
func NewFromSettings(env, level, format, output string) (*zap.Logger, error) {
	cfg := DefaultConfig()
	if env == "production" {
		cfg = ProductionConfig()
	}
	for dst, v := range map[*string]string{&cfg.Level: level, &cfg.Format: format, &cfg.Output: output} {
		if v != "" {
			*dst = v
		}
	}
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("env", env)), nil
}

// Tee returns a logger that also writes every entry to the extra cores.
// Fields added to l before the call stay on its own core only. Nil cores
// are skipped.
func Tee(l *zap.Logger, cores ...zapcore.Core) *zap.Logger {
	extra := make([]zapcore.Core, 0, len(cores))
	for _, c := range cores {
		if c != nil {
			extra = append(extra, c)
		}
	}
	if len(extra) == 0 {
		return l
	}
	return l.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(append([]zapcore.Core{core}, extra...)...)
	}))
}

// ParseLevel reads a [log] level name. Unknown names mean info.
func ParseLevel(level string) zapcore.Level {
	if strings.EqualFold(level, "warning") {
		return zapcore.WarnLevel
	}
	l, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func newEncoder(cfg *Config) zapcore.Encoder {
	layout := cfg.TimeFormat
	if layout == "" {
		layout = defaultTimeFormat
	}
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(layout),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openWriter(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}

// debugSampler samples only debug entries and passes everything else through
type debugSampler struct {
	zapcore.Core
	sampled zapcore.Core
}

func sampleDebug(core zapcore.Core) zapcore.Core {
	return &debugSampler{Core: core, sampled: zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)}
}

func (s *debugSampler) With(fields []zapcore.Field) zapcore.Core {
	return &debugSampler{Core: s.Core.With(fields), sampled: s.sampled.With(fields)}
}

func (s *debugSampler) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level == zapcore.DebugLevel {
		return s.sampled.Check(ent, ce)
	}
	return s.Core.Check(ent, ce)
}
