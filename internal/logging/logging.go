package logging

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// Logger abstracts away the concrete logger so packages can be tested with a silent one.
type Logger interface {
	Fatalf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	// WithField returns a logger that attaches key=value to every entry.
	WithField(key string, value interface{}) Logger
}

// NewLogger instantiates a JSON logger at the given level ("debug", "info", ...).
// Unknown levels fall back to info.
func NewLogger(level string) Logger {
	l := log.New()
	l.SetFormatter(&log.JSONFormatter{})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)

	return &logger{entry: log.NewEntry(l)}
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return &logger{entry: log.NewEntry(l)}
}

type logger struct {
	entry *log.Entry
}

func (l *logger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

func (l *logger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *logger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logger) WithField(key string, value interface{}) Logger {
	return &logger{entry: l.entry.WithField(key, value)}
}
