// Package common provides shared utilities for navwatch
package common

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/phuslu/log"
)

// Logger wraps phuslu/log to provide a consistent interface
type Logger struct {
	log.Logger
}

// NewLogger creates a console logger with the specified level
func NewLogger(level string) *Logger {
	return NewLoggerFromConfig(LoggingConfig{
		Level:   level,
		Format:  "text",
		Outputs: []string{"console"},
	})
}

// NewLoggerFromConfig builds a logger from the [logging] config section.
// Level "disabled" discards everything.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	if strings.EqualFold(cfg.Level, "disabled") {
		return NewSilentLogger()
	}

	var writers log.MultiEntryWriter
	for _, out := range cfg.Outputs {
		switch strings.ToLower(strings.TrimSpace(out)) {
		case "console":
			if strings.EqualFold(cfg.Format, "json") {
				writers = append(writers, &log.IOWriter{Writer: os.Stderr})
			} else {
				writers = append(writers, &log.ConsoleWriter{
					ColorOutput:    true,
					EndWithMessage: true,
					Writer:         os.Stderr,
				})
			}
		case "file":
			if cfg.FilePath == "" {
				continue
			}
			maxSize := cfg.MaxSizeMB
			if maxSize <= 0 {
				maxSize = 100
			}
			writers = append(writers, &log.FileWriter{
				Filename:     cfg.FilePath,
				MaxSize:      int64(maxSize) * 1024 * 1024,
				MaxBackups:   cfg.MaxBackups,
				EnsureFolder: true,
				LocalTime:    true,
			})
		}
	}

	var writer log.Writer
	switch len(writers) {
	case 0:
		writer = &log.ConsoleWriter{ColorOutput: true, EndWithMessage: true, Writer: os.Stderr}
	case 1:
		writer = writers[0]
	default:
		writer = &writers
	}

	return &Logger{Logger: log.Logger{
		Level:      parseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Writer:     writer,
	}}
}

// NewLoggerWithOutput creates a JSON logger writing to a specific output
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	return &Logger{Logger: log.Logger{
		Level:      parseLevel(level),
		TimeFormat: time.RFC3339,
		Writer:     &log.IOWriter{Writer: w},
	}}
}

// NewSilentLogger creates a logger that discards all output
func NewSilentLogger() *Logger {
	return &Logger{Logger: log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}}
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "info", "":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
