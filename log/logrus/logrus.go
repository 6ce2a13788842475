// Package logrus adapts a logrus entry to eson.Logger.
package logrus

import (
	"github.com/Neumenon/eson/eson"
	"github.com/sirupsen/logrus"
)

// Logger forwards eson log events to a logrus entry.
type Logger struct{ E *logrus.Entry }

// New returns an adapter writing through l with a component field.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "eson")}
}

func (l Logger) Debug(msg string, f eson.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l Logger) Info(msg string, f eson.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logger) Warn(msg string, f eson.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logger) Error(msg string, f eson.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
