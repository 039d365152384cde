// Package logger wires a zap-backed logr.Logger that travels through
// context.Context for the crmx CLI and its terminal UI.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"

	"github.com/oakwood-commons/crmx/pkg/settings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerContextKey struct{}

const (
	RootCommandKey = "root_command"
	SubCommandKey  = "sub_command"
	ScreenKey      = "screen"
	TabKey         = "tab"
	CommitKey      = "commit"
	VersionKey     = "version"
	GoVersionKey   = "go_version"
	TimeStampKey   = "timestamp"
	MessageKey     = "message"
)

var (
	once sync.Once

	// sink receives every log line. The terminal UI swaps it for a file
	// before the first Get so JSON lines do not land on the alt screen.
	sink     io.Writer = os.Stderr
	sinkLock sync.Mutex

	globalZapLogger  *zap.Logger
	globalLogrLogger *logr.Logger

	defaultNoopLogger logr.Logger = logr.Discard()
)

// SetOutput replaces the destination of log lines. It only has an effect
// when called before the first Get.
func SetOutput(w io.Writer) {
	sinkLock.Lock()
	defer sinkLock.Unlock()
	if w == nil {
		w = os.Stderr
	}
	sink = w
}

// Get initializes the global zap and logr loggers once and returns the logr
// view. Later calls return the same instance regardless of logLevel.
// A logLevel of -1 enables V(1) debug lines.
func Get(logLevel int8) *logr.Logger {
	once.Do(func() {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderCfg.TimeKey = TimeStampKey
		encoderCfg.MessageKey = MessageKey

		sinkLock.Lock()
		out := sink
		sinkLock.Unlock()

		goVersion := "unknown"
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			goVersion = buildInfo.GoVersion
		}
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.Lock(zapcore.AddSync(out)),
			zap.NewAtomicLevelAt(zapcore.Level(logLevel)),
		).With(
			[]zapcore.Field{
				zap.String(CommitKey, settings.VersionInformation.Commit),
				zap.String(VersionKey, settings.VersionInformation.BuildVersion),
				zap.String(GoVersionKey, goVersion),
			},
		)

		globalZapLogger = zap.New(core,
			zap.AddCaller(),
			zap.AddStacktrace(zap.ErrorLevel),
			zap.WithFatalHook(zapcore.WriteThenPanic),
		)

		gl := zapr.NewLogger(globalZapLogger)
		globalLogrLogger = &gl
	})
	if globalLogrLogger == nil {
		return &defaultNoopLogger
	}
	return globalLogrLogger
}

// WithLogger returns a context carrying log. The original context is returned
// when it already holds the same logger.
func WithLogger(ctx context.Context, log *logr.Logger) context.Context {
	if lp, ok := ctx.Value(loggerContextKey{}).(*logr.Logger); ok {
		if lp == log {
			return ctx
		}
	}
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// FromContext returns the logger stored in ctx, the global logger when ctx
// has none, or a no-op logger when Get was never called.
func FromContext(ctx context.Context) *logr.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerContextKey{}).(*logr.Logger); ok {
			return log
		}
	}
	if log := globalLogrLogger; log != nil {
		return log
	}
	return &defaultNoopLogger
}

// Sync flushes buffered log entries. Call it before the process exits.
func Sync() {
	if globalZapLogger != nil {
		if err := globalZapLogger.Sync(); err != nil {
			if isIgnorableSyncError(err) {
				return
			}
			fmt.Fprintf(os.Stderr, "WARNING: failed to sync zap logger: %v\n", err)
		}
	}
}

// isIgnorableSyncError reports the Sync errors that pipes and TTYs return.
func isIgnorableSyncError(err error) bool {
	if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.EIO) || errors.Is(err, syscall.EBADF) {
		return true
	}
	// Windows consoles wrap ERROR_INVALID_HANDLE in *os.PathError.
	return strings.Contains(err.Error(), "The handle is invalid")
}

func GetNoopLogger() *logr.Logger {
	return &defaultNoopLogger
}

// WithValues returns a copy of lgr carrying the extra key/value pairs.
func WithValues(lgr *logr.Logger, keysAndValues ...any) *logr.Logger {
	nlgr := lgr.WithValues(keysAndValues...)
	return &nlgr
}
