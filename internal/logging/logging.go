package logging

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// New builds the logger a tool writes its progress and errors to, usually stderr.
func New(w io.Writer, level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
	return l, nil
}
