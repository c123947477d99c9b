// Package corelog is the structured-logging façade used across nfccore.
// It wraps github.com/sirupsen/logrus the way
// glennswest-ipmiserial/logs.Writer calls into the package-level logrus
// logger (log.Infof/log.Info) rather than constructing ad-hoc fmt output,
// generalized here to structured fields instead of formatted strings so
// callers attach reader/card context without building their own messages.
package corelog

import (
	"github.com/sirupsen/logrus"
)

// Logger is a thin wrapper around *logrus.Entry restricting the surface
// to what nfccore's components need.
type Logger struct {
	entry *logrus.Entry
}

var base = logrus.New()

// New returns a Logger rooted at the package-level logrus instance.
func New() Logger {
	return Logger{entry: logrus.NewEntry(base)}
}

// SetLevel adjusts the package-level logrus level (e.g. for verbose CLI
// runs via a -debug flag).
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}

// WithField returns a Logger with an additional structured field attached.
func (l Logger) WithField(key string, value any) Logger {
	return Logger{entry: l.entry.WithField(key, value)}
}

// WithReader attaches the reader name and its correlation id, the two
// fields every reader-scoped log line in spec.md §6 carries.
func (l Logger) WithReader(name string, correlationID string) Logger {
	return Logger{entry: l.entry.WithFields(logrus.Fields{
		"reader":         name,
		"correlation_id": correlationID,
	})}
}

func (l Logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l Logger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l Logger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l Logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }

func (l Logger) WithError(err error) Logger {
	return Logger{entry: l.entry.WithError(err)}
}
