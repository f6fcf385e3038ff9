package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/cacheme/cacheme"
)

type LogrusLogger struct{ E *logrus.Entry }

var _ cacheme.Logger = LogrusLogger{}

func (l LogrusLogger) Debug(msg string, f cacheme.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f cacheme.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f cacheme.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f cacheme.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
