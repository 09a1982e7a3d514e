package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	instance *Logger
	once     sync.Once
)

type Logger struct {
	logger     zerolog.Logger
	mu         sync.RWMutex
	level      zerolog.Level
	outputs    []io.Writer
	fileWriter *lumberjack.Logger
}

type Config struct {
	Level      string    `json:"level"`
	Console    bool      `json:"console"`
	File       bool      `json:"file"`
	FilePath   string    `json:"file_path"`
	MaxSize    int       `json:"max_size"` // megabytes
	MaxBackups int       `json:"max_backups"`
	MaxAge     int       `json:"max_age"` // days
	Compress   bool      `json:"compress"`
	JSONFormat bool      `json:"json_format"`
	Caller     bool      `json:"caller"`
	Output     io.Writer `json:"-"` // extra sink, used by tests and the headless renderer
}

func Get() *Logger {
	once.Do(func() {
		instance = &Logger{}
		instance.initialize(DefaultConfig())
	})
	return instance
}

func Initialize(cfg Config) {
	Get().initialize(cfg)
}

// DefaultConfig logs to the console only. The application turns on the
// rotating file once its configuration is loaded.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Console:    true,
		File:       false,
		FilePath:   filepath.Join(DataDir(), "logs", "eqplus.log"),
		MaxSize:    20,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
		JSONFormat: false,
		Caller:     false,
	}
}

func (l *Logger) initialize(cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	l.level = level

	if l.fileWriter != nil {
		l.fileWriter.Close()
		l.fileWriter = nil
	}
	l.outputs = []io.Writer{}

	if cfg.Console {
		if cfg.JSONFormat {
			l.outputs = append(l.outputs, os.Stderr)
		} else {
			l.outputs = append(l.outputs, zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: "15:04:05",
				FormatLevel: func(i interface{}) string {
					return strings.ToUpper(fmt.Sprintf("%-5s", i))
				},
				FormatFieldName: func(i interface{}) string {
					return fmt.Sprintf("%s=", i)
				},
			})
		}
	}

	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		} else {
			l.fileWriter = &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			}
			l.outputs = append(l.outputs, l.fileWriter)
		}
	}

	if cfg.Output != nil {
		l.outputs = append(l.outputs, cfg.Output)
	}

	var out io.Writer = io.Discard
	if len(l.outputs) > 0 {
		out = zerolog.MultiLevelWriter(l.outputs...)
	}

	l.logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
	if cfg.Caller {
		l.logger = l.logger.With().Caller().Logger()
	}

	log.Logger = l.logger
}

func (l *Logger) emit(level zerolog.Level, msg string, fields []Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	event := l.logger.WithLevel(level)
	if event == nil {
		return
	}
	for _, field := range fields {
		event = field.Apply(event)
	}
	event.Msg(msg)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.emit(zerolog.DebugLevel, msg, fields)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.emit(zerolog.InfoLevel, msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.emit(zerolog.WarnLevel, msg, fields)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.emit(zerolog.ErrorLevel, msg, fields)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.emit(zerolog.FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *Logger) WithField(key string, value interface{}) *LoggerContext {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &LoggerContext{
		logger: l.logger.With().Interface(key, value).Logger(),
	}
}

func (l *Logger) WithFields(fields ...Field) *LoggerContext {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ctx := l.logger.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &LoggerContext{
		logger: ctx.Logger(),
	}
}

func (l *Logger) SetLevel(level string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}

	l.level = lvl
	l.logger = l.logger.Level(lvl)
	return nil
}

func (l *Logger) GetLevel() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level.String()
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileWriter != nil {
		err := l.fileWriter.Close()
		l.fileWriter = nil
		return err
	}
	return nil
}

// LoggerContext carries a fixed set of fields, e.g. a filter id.
type LoggerContext struct {
	logger zerolog.Logger
}

func (lc *LoggerContext) Debug(msg string, fields ...Field) {
	lc.emit(lc.logger.Debug(), msg, fields)
}

func (lc *LoggerContext) Info(msg string, fields ...Field) {
	lc.emit(lc.logger.Info(), msg, fields)
}

func (lc *LoggerContext) Warn(msg string, fields ...Field) {
	lc.emit(lc.logger.Warn(), msg, fields)
}

func (lc *LoggerContext) Error(msg string, fields ...Field) {
	lc.emit(lc.logger.Error(), msg, fields)
}

func (lc *LoggerContext) emit(event *zerolog.Event, msg string, fields []Field) {
	for _, field := range fields {
		event = field.Apply(event)
	}
	event.Msg(msg)
}

type Field struct {
	Key   string
	Value interface{}
}

func (f Field) Apply(event *zerolog.Event) *zerolog.Event {
	switch v := f.Value.(type) {
	case string:
		return event.Str(f.Key, v)
	case int:
		return event.Int(f.Key, v)
	case int64:
		return event.Int64(f.Key, v)
	case float64:
		return event.Float64(f.Key, v)
	case bool:
		return event.Bool(f.Key, v)
	case time.Duration:
		return event.Dur(f.Key, v)
	case time.Time:
		return event.Time(f.Key, v)
	case error:
		return event.AnErr(f.Key, v)
	case fmt.Stringer:
		return event.Stringer(f.Key, v)
	}
	return event.Interface(f.Key, f.Value)
}

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err}
}

func Stringer(key string, value fmt.Stringer) Field {
	return Field{Key: key, Value: value}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Package-level convenience functions
func Debug(msg string, fields ...Field) {
	Get().Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	Get().Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	Get().Warn(msg, fields...)
}

func ErrorLog(msg string, fields ...Field) {
	Get().Error(msg, fields...)
}

func Fatal(msg string, fields ...Field) {
	Get().Fatal(msg, fields...)
}

func WithField(key string, value interface{}) *LoggerContext {
	return Get().WithField(key, value)
}

func WithFields(fields ...Field) *LoggerContext {
	return Get().WithFields(fields...)
}

// DataDir is the per-user directory for logs and settings.
func DataDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "eqplus")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "eqplus")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "eqplus")
}
