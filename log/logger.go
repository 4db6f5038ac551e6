package log

import (
	"fmt"
	"io"
)

// Logger is a minimal wrapper around an io.Writer. The resolver core never
// holds one of these directly — it only ever appends to the optional
// history log. cmd/wiz does not use it either: its verbose output goes
// through its own vlogf helper.
type Logger struct {
	io.Writer
}

// New returns a new logger which writes to w.
func New(w io.Writer) *Logger {
	return &Logger{Writer: w}
}

// Logln logs a line.
func (l *Logger) Logln(args ...interface{}) {
	fmt.Fprintln(l, args...)
}

// Logf logs a formatted string.
func (l *Logger) Logf(f string, args ...interface{}) {
	fmt.Fprintf(l, f, args...)
}

// LogWizfln logs a formatted line, prefixed with `wiz: `.
func (l *Logger) LogWizfln(format string, args ...interface{}) {
	fmt.Fprintf(l, "wiz: "+format+"\n", args...)
}
