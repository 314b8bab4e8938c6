package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog logger with typed fields. Error entries are also
// folded into an optional Digest.
type Logger struct {
	zl        zerolog.Logger
	collector *Digest
}

type Config struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output     string `yaml:"output" default:"stdout"`
	TimeFormat string `yaml:"time_format"`
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	zl := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
	return &Logger{zl: zl}, nil
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	return f, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger tagged with component. The child shares the
// parent's collector.
func (l *Logger) With(component string) *Logger {
	return &Logger{
		zl:        l.zl.With().Str("component", component).Logger(),
		collector: l.collector,
	}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.write(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.write(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.write(l.zl.Warn(), msg, fields) }

func (l *Logger) Error(msg string, fields ...Field) {
	l.write(l.zl.Error(), msg, fields)
	if l.collector != nil {
		l.collector.AddLog("error", msg, fieldMap(fields), caller())
	}
}

func (l *Logger) write(ev *zerolog.Event, msg string, fields []Field) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		f.apply(ev)
	}
	ev.Msg(msg)
}

// caller reports the file:line that called Error, relative to the module.
func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	if i := strings.Index(file, "ChainPulse/"); i >= 0 {
		file = file[i+len("ChainPulse/"):]
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// AddCollector starts aggregating error entries, replacing any previous
// collector.
func (l *Logger) AddCollector(config *CollectionConfig) {
	if l.collector != nil {
		l.collector.Close()
	}
	l.collector = NewDigest(config)
}

// RemoveCollector flushes and stops the collector.
func (l *Logger) RemoveCollector() {
	if l.collector != nil {
		l.collector.Close()
		l.collector = nil
	}
}

// Field is one structured key/value pair.
type Field struct {
	Key   string
	Value interface{}
	apply func(ev *zerolog.Event)
}

func fieldMap(fields []Field) map[string]interface{} {
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}

func String(key, value string) Field {
	return Field{Key: key, Value: value, apply: func(ev *zerolog.Event) { ev.Str(key, value) }}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value, apply: func(ev *zerolog.Event) { ev.Int(key, value) }}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value, apply: func(ev *zerolog.Event) { ev.Int64(key, value) }}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value, apply: func(ev *zerolog.Event) { ev.Float64(key, value) }}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value, apply: func(ev *zerolog.Event) { ev.Bool(key, value) }}
}

// Error logs err under "error". The collector sees the message text.
func Error(err error) Field {
	var text interface{}
	if err != nil {
		text = err.Error()
	}
	return Field{Key: "error", Value: text, apply: func(ev *zerolog.Event) { ev.Err(err) }}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value, apply: func(ev *zerolog.Event) { ev.Interface(key, value) }}
}

// Duration logs d in milliseconds.
func Duration(key string, d time.Duration) Field {
	return Int64(key, d.Milliseconds())
}
