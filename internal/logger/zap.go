package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	current atomic.Pointer[zap.Logger]

	// level is shared by every logger Init builds, so SetLevel takes effect
	// without swapping the logger
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	// mu guards file and filePath
	mu       sync.Mutex
	file     *lumberjack.Logger
	filePath string
)

func init() {
	config := zap.NewProductionConfig()
	config.Level = level
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize zap logger: %v", err))
	}
	current.Store(l)
}

// Options controls the level and destination of the global logger
type Options struct {
	Level      string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// L returns the global logger instance
func L() *zap.Logger {
	return current.Load()
}

// Init rebuilds the global logger. Output goes to stderr and, when FilePath
// is set, to a rotated file as well. The file sink is reused while FilePath
// stays the same and closed when it changes.
func Init(opts Options) error {
	lvl, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	if opts.FilePath != filePath && file != nil {
		_ = file.Close()
		file = nil
	}
	filePath = opts.FilePath

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if opts.FilePath != "" {
		if file == nil {
			file = &lumberjack.Logger{Filename: opts.FilePath}
		}
		file.MaxSize = opts.MaxSizeMB
		file.MaxBackups = opts.MaxBackups
		file.MaxAge = opts.MaxAgeDays
		sinks = append(sinks, zapcore.AddSync(file))
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level.SetLevel(lvl)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.NewMultiWriteSyncer(sinks...), level)
	current.Store(zap.New(core, zap.AddCaller()))
	return nil
}

// SetLevel changes the level of the running logger
func SetLevel(name string) error {
	lvl, err := parseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

// Level reports the current level
func Level() zapcore.Level {
	return level.Level()
}

func parseLevel(name string) (zapcore.Level, error) {
	lvl := zapcore.InfoLevel
	if name == "" {
		return lvl, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

// Sync flushes any buffered log entries and should be called before application exit
func Sync() {
	l := L()
	if err := l.Sync(); err != nil {
		l.Error("Failed to sync logger",
			zap.Error(err),
		)
	}
}

// Info logs a message at InfoLevel
func Info(msg string, fields ...zap.Field) {
	L().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Debug logs a message at DebugLevel
func Debug(msg string, fields ...zap.Field) {
	L().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Error logs a message at ErrorLevel
func Error(msg string, fields ...zap.Field) {
	L().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// Warn logs a message at WarnLevel
func Warn(msg string, fields ...zap.Field) {
	L().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}
