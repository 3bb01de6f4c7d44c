// Package obslog owns the process-wide zap logger.
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger = zap.NewNop()

// L returns the global logger. It is a no-op logger until Init runs.
func L() *zap.Logger { return globalLogger }

// SetLogger replaces the global logger; nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	globalLogger = l
}

type Options struct {
	Level   zapcore.Level
	Console bool
	ToFile  bool
	File    string
	// Format is legacy, json or console.
	Format string
	Caller bool
}

// OptionsFromEnv reads LOG_LEVEL, LOG_TO_CONSOLE, LOG_TO_FILE, LOG_FILE, LOG_FORMAT and LOG_CALLER.
func OptionsFromEnv() Options {
	o := Options{
		Level:   parseLevel(getenvDefault("LOG_LEVEL", "info")),
		Console: envBool("LOG_TO_CONSOLE", true),
		ToFile:  envBool("LOG_TO_FILE", false),
		File:    strings.TrimSpace(getenvDefault("LOG_FILE", filepath.Join("logs", "chess.log"))),
		Format:  strings.ToLower(strings.TrimSpace(getenvDefault("LOG_FORMAT", "legacy"))),
		Caller:  envBool("LOG_CALLER", false),
	}
	switch o.Format {
	case "legacy", "json", "console":
	default:
		o.Format = "legacy"
	}
	return o
}

func InitFromEnv() error { return Init(OptionsFromEnv()) }

// Init builds the logger described by o and installs it globally.
func Init(o Options) error {
	l, err := Build(o)
	if err != nil {
		return err
	}
	globalLogger = l
	return nil
}

// Build returns a logger for o without installing it.
func Build(o Options) (*zap.Logger, error) {
	var cores []zapcore.Core
	if o.Console {
		cores = append(cores, zapcore.NewCore(newEncoder(o.Format), zapcore.AddSync(os.Stdout), o.Level))
	}
	if o.ToFile {
		if err := ensureDir(filepath.Dir(o.File)); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(o.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(newEncoder(o.Format), zapcore.AddSync(f), o.Level))
	}
	if len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(os.Stdout), o.Level))
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if o.Caller || o.Format == "legacy" {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

func newEncoder(format string) zapcore.Encoder {
	switch format {
	case "json":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	case "console":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " | "
	return zapcore.NewConsoleEncoder(cfg)
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		if strings.EqualFold(strings.TrimSpace(s), "warning") {
			return zapcore.WarnLevel
		}
		return zapcore.InfoLevel
	}
	return lvl
}

func envBool(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
