package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl   zerolog.Logger
	sink *alertSink
}

// alertSink is shared by a logger and every child created with With, so
// attaching alerts on the root reaches all of them.
type alertSink struct {
	c atomic.Pointer[AlertCollector]
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
	Service    string // added to every entry when set
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: cfg.TimeFormat}
	}

	zctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}
	return &Logger{zl: zctx.CallerWithSkipFrameCount(4).Logger(), sink: &alertSink{}}, nil
}

// NewWriter builds a JSON logger on w. Used by tests to inspect output.
func NewWriter(w io.Writer) *Logger {
	return &Logger{zl: zerolog.New(w).With().Timestamp().Logger(), sink: &alertSink{}}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop(), sink: &alertSink{}}
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...Field) *Logger {
	zctx := l.zl.With()
	for _, f := range fields {
		k, v := f.GetKeyValue()
		zctx = zctx.Interface(k, v)
	}
	return &Logger{zl: zctx.Logger(), sink: l.sink}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }

func (l *Logger) Info(msg string, fields ...Field) { l.emit(l.zl.Info(), msg, fields) }

func (l *Logger) Warn(msg string, fields ...Field) { l.emit(l.zl.Warn(), msg, fields) }

// Error logs and, when an alert collector is attached, queues the entry for operators.
func (l *Logger) Error(msg string, fields ...Field) {
	l.emit(l.zl.Error(), msg, fields)
	l.alert("error", msg, fields)
}

func (l *Logger) emit(event *zerolog.Event, msg string, fields []Field) {
	if event == nil {
		return
	}
	for _, field := range fields {
		field.AddTo(event)
	}
	event.Msg(msg)
}

func (l *Logger) alert(level, msg string, fields []Field) {
	collector := l.sink.c.Load()
	if collector == nil {
		return
	}
	// skip: alert -> Error -> caller
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		parts := strings.Split(file, "SectorFlow")
		caller = fmt.Sprintf("%s:%d", parts[len(parts)-1], line)
	}
	fieldMap := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		k, v := field.GetKeyValue()
		fieldMap[k] = v
	}
	collector.Add(level, msg, fieldMap, caller)
}

// AttachAlerts routes error entries to an alert collector, replacing any previous one.
func (l *Logger) AttachAlerts(cfg *AlertConfig) {
	if old := l.sink.c.Swap(NewAlertCollector(cfg)); old != nil {
		old.Close()
	}
}

// DetachAlerts flushes and stops the alert collector.
func (l *Logger) DetachAlerts() {
	if old := l.sink.c.Swap(nil); old != nil {
		old.Close()
	}
}
