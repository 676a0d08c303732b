package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"automation/pkg/config"
)

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})

	// Zerolog exposes the underlying logger, e.g. for packages that log
	// through zerolog directly
	Zerolog() zerolog.Logger
}

// zerologLogger implements Logger on top of zerolog. Fields are carried in
// the zerolog context, so derived loggers share nothing mutable.
type zerologLogger struct {
	logger zerolog.Logger
}

// New creates a Logger from the logging section of the configuration
func New(cfg *config.LoggingConfig) (Logger, error) {
	if cfg == nil {
		cfg = &config.LoggingConfig{}
	}

	level, err := parseLogLevel(string(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output, err := buildOutput(cfg, os.Stdout)
	if err != nil {
		return nil, err
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("app", "automation").
		Logger()

	return &zerologLogger{logger: zlog}, nil
}

// FromZerolog wraps an existing zerolog logger
func FromZerolog(zlog zerolog.Logger) Logger {
	return &zerologLogger{logger: zlog}
}

// buildOutput picks the console or JSON encoder and adds the log file when set
func buildOutput(cfg *config.LoggingConfig, stdout *os.File) (io.Writer, error) {
	var console io.Writer = stdout
	if useConsoleFormat(cfg.Format, stdout) {
		console = consoleWriter(stdout)
	}

	if cfg.File == "" {
		return console, nil
	}

	file, err := setupFileOutput(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("failed to setup file output: %w", err)
	}
	// The file always receives JSON
	return zerolog.MultiLevelWriter(console, file), nil
}

func useConsoleFormat(format config.LogFormat, out *os.File) bool {
	switch format {
	case config.LogFormatConsole:
		return true
	case config.LogFormatJSON:
		return false
	default:
		return out != nil && term.IsTerminal(int(out.Fd()))
	}
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		FormatLevel: func(i interface{}) string {
			if i == nil {
				return ""
			}
			switch strings.ToUpper(fmt.Sprintf("%s", i)) {
			case "DEBUG":
				return "\033[37mDEBG\033[0m"
			case "INFO":
				return "\033[32mINFO\033[0m"
			case "WARN":
				return "\033[33mWARN\033[0m"
			case "ERROR":
				return "\033[31mERRO\033[0m"
			case "FATAL":
				return "\033[35mFATL\033[0m"
			default:
				return strings.ToUpper(fmt.Sprintf("%s", i))
			}
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("| %s", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("\033[36m%s\033[0m:", i)
		},
	}
}

// setupFileOutput opens the log file for appending
func setupFileOutput(path string) (io.Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// parseLogLevel converts a level name to zerolog.Level; empty means info
func parseLogLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}

func (l *zerologLogger) Debug(msg string) { l.logger.Debug().Msg(msg) }
func (l *zerologLogger) Info(msg string)  { l.logger.Info().Msg(msg) }
func (l *zerologLogger) Warn(msg string)  { l.logger.Warn().Msg(msg) }
func (l *zerologLogger) Error(msg string) { l.logger.Error().Msg(msg) }

// Fatal logs a fatal message and exits the process
func (l *zerologLogger) Fatal(msg string) { l.logger.Fatal().Msg(msg) }

// WithField returns a logger that adds key to every entry
func (l *zerologLogger) WithField(key string, value interface{}) Logger {
	ctx := l.logger.With()
	return &zerologLogger{logger: addFieldToContext(ctx, key, value).Logger()}
}

// WithFields returns a logger that adds fields to every entry
func (l *zerologLogger) WithFields(fields map[string]interface{}) Logger {
	ctx := l.logger.With()
	for key, value := range fields {
		ctx = addFieldToContext(ctx, key, value)
	}
	return &zerologLogger{logger: ctx.Logger()}
}

// WithError returns a logger that adds err to every entry
func (l *zerologLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return &zerologLogger{logger: l.logger.With().Err(err).Logger()}
}

func (l *zerologLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	addFieldsToEvent(l.logger.Debug(), fields).Msg(msg)
}

func (l *zerologLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	addFieldsToEvent(l.logger.Info(), fields).Msg(msg)
}

func (l *zerologLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	addFieldsToEvent(l.logger.Warn(), fields).Msg(msg)
}

func (l *zerologLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	addFieldsToEvent(l.logger.Error(), fields).Msg(msg)
}

func (l *zerologLogger) Zerolog() zerolog.Logger {
	return l.logger
}

func addFieldsToEvent(event *zerolog.Event, fields map[string]interface{}) *zerolog.Event {
	for key, value := range fields {
		switch v := value.(type) {
		case string:
			event = event.Str(key, v)
		case int:
			event = event.Int(key, v)
		case bool:
			event = event.Bool(key, v)
		case time.Duration:
			event = event.Dur(key, v)
		case error:
			event = event.AnErr(key, v)
		case fmt.Stringer:
			event = event.Stringer(key, v)
		default:
			event = event.Interface(key, v)
		}
	}
	return event
}

func addFieldToContext(ctx zerolog.Context, key string, value interface{}) zerolog.Context {
	switch v := value.(type) {
	case string:
		return ctx.Str(key, v)
	case int:
		return ctx.Int(key, v)
	case bool:
		return ctx.Bool(key, v)
	case time.Duration:
		return ctx.Dur(key, v)
	case error:
		return ctx.AnErr(key, v)
	case fmt.Stringer:
		return ctx.Stringer(key, v)
	default:
		return ctx.Interface(key, v)
	}
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger
)

// Initialize sets up the global logger and the zerolog global used by
// packages that cannot import this one
func Initialize(cfg *config.LoggingConfig) error {
	logger, err := New(cfg)
	if err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
	log.Logger = logger.Zerolog()
	return nil
}

// GetLogger returns the global logger, creating an info-level one on first
// use. It is safe for concurrent use.
func GetLogger() Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger, _ = New(&config.LoggingConfig{Level: config.LogLevelInfo})
	}
	return globalLogger
}
