// Package navlog is the logging layer for the navigation stack: zap setup
// with lumberjack rotation, plus field helpers that keep tile and query
// context consistently keyed across the generator scheduler, the query
// server and the CLI.
package navlog

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/o0olele/svonav/math32"
)

// Log is the process-wide logger. It stays nil until Setup runs; the
// package-level logging functions are no-ops in that state, so library
// callers never have to check.
var Log *zap.Logger

// Sugar is the sugared form of Log, for call sites that prefer printf-style.
var Sugar *zap.SugaredLogger

// Options configures Setup. The zero value logs to the console at info
// level with no file output.
type Options struct {
	Level      string // debug, info, warn, error; anything else means info
	File       string // rotating log file path; empty disables file output
	MaxSizeMB  int    // rotate after this many megabytes (default 64)
	MaxBackups int    // rotated files kept (default 4)
	MaxAgeDays int    // rotated files expire after this many days (default 14)
	Compress   bool   // gzip rotated files
	NoConsole  bool   // suppress the console core (tests, daemons)
}

func (o Options) withDefaults() Options {
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 64
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = 4
	}
	if o.MaxAgeDays <= 0 {
		o.MaxAgeDays = 14
	}
	return o
}

// Setup installs the process logger: a human-readable console core, and —
// when a file path is configured — a JSON core behind lumberjack rotation,
// so octree build telemetry survives long generation runs.
func Setup(opts Options) error {
	opts = opts.withDefaults()

	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var cores []zapcore.Core
	if !opts.NoConsole {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(enc), zapcore.AddSync(os.Stderr), level))
	}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(enc), zapcore.AddSync(rotator), level))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	Sugar = Log.Sugar()
	return nil
}

// Sync flushes buffered entries; safe to defer before Setup ever ran.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// Tile tags an entry with a tile-grid coordinate, the key every
// install/evict/generate message shares.
func Tile(coord math32.Vector3i) zap.Field {
	return zap.String("tile", fmt.Sprintf("%d,%d,%d", coord.X, coord.Y, coord.Z))
}

// Link tags an entry with a raw 64-bit node link id.
func Link(id uint64) zap.Field {
	return zap.Uint64("link", id)
}

// QueryStatus tags an entry with a query's status-bitfield string.
func QueryStatus(status string) zap.Field {
	return zap.String("status", status)
}

// Debug logs at debug level; a no-op before Setup.
func Debug(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Debug(msg, fields...)
	}
}

// Info logs at info level; a no-op before Setup.
func Info(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Info(msg, fields...)
	}
}

// Warn logs at warn level; a no-op before Setup.
func Warn(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Warn(msg, fields...)
	}
}

// Error logs at error level; a no-op before Setup.
func Error(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Error(msg, fields...)
	}
}
