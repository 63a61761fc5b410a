package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// NewTintLogger creates a human-readable stdout logger at the given level.
// Colors are enabled only when stdout is a terminal.
func NewTintLogger(level LogLevel) Logger {
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slogLevel(level),
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	return NewSlogAdapter(slog.New(handler))
}

// EnableVerboseStdoutLogging switches the package default logger to a
// debug-level pretty printer on stdout and returns it. Intended for
// development and tutorials; production code should inject its own Logger.
func EnableVerboseStdoutLogging() Logger {
	l := NewTintLogger(LogLevelDebug)
	SetDefault(l)
	return l
}
