package log

import (
	"fmt"
	stdlog "log"
	"strings"
)

// Config declaratively describes a logger, typically sourced from env or the
// server config file.
type Config struct {
	// Level: debug|info|warn|error (default info).
	Level string `json:"level" yaml:"level"`
	// Format: text|json (default text).
	Format string `json:"format" yaml:"format"`
	// File enables an additional rotating file output when non-empty.
	File           string `json:"file,omitempty" yaml:"file,omitempty"`
	FileMaxSizeMB  int    `json:"fileMaxSizeMB,omitempty" yaml:"fileMaxSizeMB,omitempty"`
	FileMaxBackups int    `json:"fileMaxBackups,omitempty" yaml:"fileMaxBackups,omitempty"`
	FileMaxAgeDays int    `json:"fileMaxAgeDays,omitempty" yaml:"fileMaxAgeDays,omitempty"`
}

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// ApplyConfig builds a Logger from a declarative Config.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		return NewLogger(), nil
	}
	level := InfoLevel
	if cfg.Level != "" {
		l, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}
	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	opts := []LoggerOption{WithLevel(level), WithFormatter(formatter), WithOutput(NewConsoleOutput())}
	if cfg.File != "" {
		opts = append(opts, WithOutput(NewFileOutput(FileOutputOptions{
			Path:       cfg.File,
			MaxSizeMB:  cfg.FileMaxSizeMB,
			MaxBackups: cfg.FileMaxBackups,
			MaxAgeDays: cfg.FileMaxAgeDays,
		})))
	}
	return NewLogger(opts...), nil
}

type stdWriter struct{ logger Logger }

func (w stdWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// RedirectStdLog routes the standard library's default logger through the
// given Logger at info level.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdWriter{logger: logger})
}

// ToStdLogger returns a *log.Logger that writes through the given Logger,
// for libraries that only accept the standard interface.
func ToStdLogger(logger Logger) *stdlog.Logger {
	return stdlog.New(stdWriter{logger: logger}, "", 0)
}
