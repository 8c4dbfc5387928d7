// Package logger provides a lightweight, centralized logging facility
// with configurable verbosity levels, backed by zap.
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Example usage:
//
//	logger.SetVerbosity(2) // Debug
//	logger.Infof("starting engine")
//	logger.Debugf("spot=%f vol=%f", spot, vol)
package logger

import (
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int

const (
	Error Level = iota // Error logs only critical failures.
	Info               // Info logs high-level application progress.
	Debug              // Debug logs detailed diagnostic information.
	Trace              // Trace logs very fine-grained execution details.
)

// current holds the active verbosity level.
// Only messages with level <= current are logged.
var current atomic.Int32

var sugar atomic.Pointer[zap.SugaredLogger]

func init() {
	current.Store(int32(Info))
	SetOutput(os.Stderr)
}

// SetVerbosity sets the global logging verbosity. Values outside
// Error..Trace fall back to Info.
func SetVerbosity(v int) {
	if Level(v) < Error || Level(v) > Trace {
		v = int(Info)
	}
	current.Store(int32(v))
}

// Verbosity returns the active level.
func Verbosity() Level {
	return Level(current.Load())
}

// SetOutput redirects log output, mainly for tests. Lines are
// console-encoded with timestamp, level and caller, e.g.
//
//	2026-01-25T15:42:10.123Z	INFO	engine/engine.go:87	pricing started
func SetOutput(w io.Writer) {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(zapcore.AddSync(w)), zapcore.DebugLevel)
	sugar.Store(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar())
}

// Sync flushes buffered output.
func Sync() error {
	return sugar.Load().Sync()
}

// logf checks verbosity and hands the message to zap.
func logf(l Level, format string, args ...any) {
	if Verbosity() < l {
		return
	}
	s := sugar.Load()
	switch l {
	case Error:
		s.Errorf(format, args...)
	case Info:
		s.Infof(format, args...)
	case Debug:
		s.Debugf(format, args...)
	default:
		// zap has no trace level
		s.Debugf("[TRACE] "+format, args...)
	}
}

// Errorf logs an error-level message.
// Use this for failures that require attention.
func Errorf(format string, args ...any) {
	logf(Error, format, args...)
}

// Infof logs an informational message.
// Use this for major lifecycle events.
func Infof(format string, args ...any) {
	logf(Info, format, args...)
}

// Debugf logs debugging information.
// Use this for diagnostic output useful during development.
func Debugf(format string, args ...any) {
	logf(Debug, format, args...)
}

// Tracef logs very detailed execution traces.
// Use this sparingly due to high volume.
func Tracef(format string, args ...any) {
	logf(Trace, format, args...)
}
