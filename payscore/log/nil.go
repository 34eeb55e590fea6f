package log

import "context"

// NopLogger discards every entry.
type NopLogger struct{}

func NewNop() Logger { return &NopLogger{} }

func (l *NopLogger) Log(context.Context, Level, string, ...Field) {}

//nolint:ireturn
func (l *NopLogger) With(...Field) Logger { return l }

//nolint:ireturn
func (l *NopLogger) WithGroup(string) Logger { return l }

func (l *NopLogger) Enabled(Level) bool { return false }

func (l *NopLogger) Sync(context.Context) error { return nil }

// OrNop lets option structs leave Logger unset.
//
//nolint:ireturn
func OrNop(logger Logger) Logger {
	if logger == nil {
		return &NopLogger{}
	}

	return logger
}
