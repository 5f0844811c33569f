// Package logger configures the structured logger shared by the service.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus logger
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a JSON logger at the given level. Unknown levels fall back to info.
func New(service, level string) *Logger {
	return NewWithOutput(service, level, os.Stdout)
}

// NewWithOutput is New writing to w
func NewWithOutput(service, level string, w io.Writer) *Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(w)

	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Logger: log, service: service}
}

// Component returns an entry tagged with the service and component names
func (l *Logger) Component(name string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"service":   l.service,
		"component": name,
	})
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewWithOutput("test", "error", io.Discard)
}
