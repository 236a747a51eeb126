// Package logrus adapts github.com/sirupsen/logrus to ccfacade.Logger.
package logrus

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/ccfacade"
)

var _ ccfacade.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New builds a JSON logrus logger writing to w at the given level.
func New(w io.Writer, level string) (LogrusLogger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return LogrusLogger{}, err
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.JSONFormatter{})
	return LogrusLogger{E: logrus.NewEntry(l)}, nil
}

func (l LogrusLogger) Debug(msg string, f ccfacade.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f ccfacade.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f ccfacade.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f ccfacade.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
