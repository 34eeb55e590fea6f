package zap

import (
	"context"

	logpkg "github.com/LerianStudio/lib-payscore/payscore/log"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger adapts *zap.Logger to log.Logger.
type Logger struct {
	logger *zap.Logger
}

var _ logpkg.Logger = (*Logger)(nil)

// Wrap adapts an existing zap logger, e.g. one built by the host service.
func Wrap(logger *zap.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) raw() *zap.Logger {
	if l == nil || l.logger == nil {
		return zap.NewNop()
	}

	return l.logger
}

// Log writes one entry. Sensitive fields are masked, control characters
// escaped, and trace_id/span_id added when ctx carries a span.
func (l *Logger) Log(ctx context.Context, level logpkg.Level, msg string, fields ...logpkg.Field) {
	zl, lvl := l.raw(), zapLevel(level)
	if !zl.Core().Enabled(lvl) {
		return
	}

	zapFields := toZapFields(fields)

	if ctx != nil {
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			zapFields = append(zapFields,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
	}

	zl.Log(lvl, logpkg.SanitizeString(msg), zapFields...)
}

//nolint:ireturn
func (l *Logger) With(fields ...logpkg.Field) logpkg.Logger {
	return &Logger{logger: l.raw().With(toZapFields(fields)...)}
}

//nolint:ireturn
func (l *Logger) WithGroup(name string) logpkg.Logger {
	return &Logger{logger: l.raw().With(zap.Namespace(name))}
}

func (l *Logger) Enabled(level logpkg.Level) bool {
	return l.raw().Core().Enabled(zapLevel(level))
}

// Sync flushes buffered entries unless ctx ends first.
func (l *Logger) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)

	go func() { done <- l.raw().Sync() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func zapLevel(level logpkg.Level) zapcore.Level {
	switch level {
	case logpkg.LevelError:
		return zapcore.ErrorLevel
	case logpkg.LevelWarn:
		return zapcore.WarnLevel
	case logpkg.LevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields []logpkg.Field) []zap.Field {
	out := make([]zap.Field, len(fields))

	for i, f := range fields {
		f = logpkg.Redact(f)

		switch v := f.Value.(type) {
		case string:
			out[i] = zap.String(f.Key, logpkg.SanitizeString(v))
		case error:
			out[i] = zap.String(f.Key, logpkg.SanitizeString(v.Error()))
		default:
			out[i] = zap.Any(f.Key, v)
		}
	}

	return out
}
