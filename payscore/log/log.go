package log

import (
	"context"
	"fmt"
	"strings"
)

// Logger is implemented by every logging backend the gateway packages accept.
// A nil Logger is never stored; constructors pass options through OrNop.
type Logger interface {
	Log(ctx context.Context, level Level, msg string, fields ...Field)
	With(fields ...Field) Logger
	WithGroup(name string) Logger
	Enabled(level Level) bool
	Sync(ctx context.Context) error
}

// Level orders entries by severity. Smaller is more severe, so a backend
// set to LevelWarn drops Info and Debug.
type Level uint8

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelNames = [...]string{
	LevelError: "error",
	LevelWarn:  "warn",
	LevelInfo:  "info",
	LevelDebug: "debug",
}

func (level Level) String() string {
	if int(level) < len(levelNames) {
		return levelNames[level]
	}

	return "unknown"
}

// ParseLevel reads the LOG_LEVEL setting. "warning" is accepted as an alias.
func ParseLevel(lvl string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(lvl))
	if name == "warning" {
		name = "warn"
	}

	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}

	return LevelInfo, fmt.Errorf("unknown log level %q", lvl)
}
