package logrus

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/shipway/shipway/internal/log"
)

type logger struct {
	*logrus.Entry
}

// NewLogrus returns a new log.Logger for a logrus implementation.
func NewLogrus(l *logrus.Entry) log.Logger {
	return logger{Entry: l}
}

func (l logger) WithValues(kv map[string]any) log.Logger {
	newLogger := l.Entry.WithFields(kv)
	return NewLogrus(newLogger)
}

func (l logger) WithCtxValues(ctx context.Context) log.Logger {
	return l.WithValues(log.ValuesFromCtx(ctx))
}

func (l logger) SetValuesOnCtx(parent context.Context, values map[string]any) context.Context {
	return log.CtxWithValues(parent, values)
}

func (l logger) Debugf(format string, args ...any)   { l.Entry.Debugf(format, args...) }
func (l logger) Infof(format string, args ...any)    { l.Entry.Infof(format, args...) }
func (l logger) Warningf(format string, args ...any) { l.Entry.Warningf(format, args...) }
func (l logger) Errorf(format string, args ...any)   { l.Entry.Errorf(format, args...) }
