// Package simlog wires up the structured logger threaded through the
// controller (the kernel takes none). One *logrus.Logger is constructed per process (or
// per test) and passed explicitly — no package-level global — matching the
// way the rest of this repository avoids hidden shared state.
package simlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a text-formatted logrus.Logger writing to w (os.Stderr in
// production, a bytes.Buffer in tests that assert on log output).
func New(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: false})
	return l
}

// Default returns the standard stderr logger at Info level, used by
// cmd/simctl unless overridden by flags.
func Default() *logrus.Logger {
	return New(os.Stderr, logrus.InfoLevel)
}

// Component returns a child entry pre-populated with the "component"
// field, the convention every sub-system logger in this repository follows
// so log lines can be filtered by pipeline stage.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}
