// Package logger wraps a process-wide zap logger. Console output is colored
// and human readable; the optional log file gets rotated JSON.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log discards everything until Init is called.
var Log = zap.NewNop()

// Sugar mirrors Log for printf-style call sites.
var Sugar = Log.Sugar()

// level is shared by every core so SetLevel takes effect without a rebuild.
var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// FileConfig controls the rotated log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns rotation settings sized for debug-level build logs.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{Path: path, MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 14, Compress: true}
}

// Init sets up console logging at the given level, plus a rotated file when
// logFile is non-empty.
func Init(lvl string, logFile string) error {
	var fc FileConfig
	if logFile != "" {
		fc = DefaultFileConfig(logFile)
	}
	return InitWithFileConfig(lvl, fc, true)
}

// InitWithFileConfig is Init with explicit rotation settings. Tests pass
// console=false to keep output clean.
func InitWithFileConfig(lvl string, fc FileConfig, console bool) error {
	level.SetLevel(ParseLevel(lvl))

	var cores []zapcore.Core
	if console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoding()), zapcore.Lock(os.Stderr), level))
	}
	if fc.Path != "" {
		w := &lumberjack.Logger{
			Filename:   fc.Path,
			MaxSize:    fc.MaxSizeMB,
			MaxBackups: fc.MaxBackups,
			MaxAge:     fc.MaxAgeDays,
			Compress:   fc.Compress,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoding()), zapcore.AddSync(w), level))
	}

	SetLogger(zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

func baseEncoding() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		MessageKey:     "msg",
		CallerKey:      "caller",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

func consoleEncoding() zapcore.EncoderConfig {
	ec := baseEncoding()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.EncodeName = zapcore.FullNameEncoder
	ec.ConsoleSeparator = " "
	return ec
}

func fileEncoding() zapcore.EncoderConfig {
	ec := baseEncoding()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	return ec
}

// SetLogger swaps the global logger; nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	Log = l
	Sugar = l.Sugar()
}

// SetLevel changes the level of a logger built by Init.
func SetLevel(lvl string) {
	level.SetLevel(ParseLevel(lvl))
}

// Component returns a child logger named after a subsystem.
func Component(name string) *zap.Logger {
	return Log.Named(name).WithOptions(zap.AddCallerSkip(-1))
}

// ParseLevel maps "debug", "warn" and "error" to zap levels; anything else is info.
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Sync flushes buffered entries.
func Sync() {
	_ = Log.Sync()
}

func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }
