package conveyor

import (
	"context"
	"io"
	"log"

	"github.com/sirupsen/logrus"
)

// Logger is the leveled logging facade used throughout conveyor. It's the
// smallest surface that both a stdlib logger and a logrus logger can
// satisfy through the adapters below.
type Logger interface {
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})
}

type logCtxKey uint8

const loggerKey logCtxKey = 0

// SetLogger stores the logger on the context
func SetLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// ContextLogger retrieves the logger from the context, falling back to
// NopLogger when none was set
func ContextLogger(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return NopLogger
}

// NopLogger drops every message on the floor
var NopLogger Logger = &nopLogger{}

type nopLogger struct{}

func (n *nopLogger) Debugf(string, ...interface{}) {}
func (n *nopLogger) Infof(string, ...interface{})  {}
func (n *nopLogger) Warnf(string, ...interface{})  {}
func (n *nopLogger) Errorf(string, ...interface{}) {}

// GoLog creates a leveled logger backed by the standard library log package
func GoLog(w io.Writer, prefix string, flags int) Logger {
	if w == nil {
		w = io.Discard
	}
	return &goLog{l: log.New(w, prefix, flags)}
}

type goLog struct {
	l *log.Logger
}

func (g *goLog) Debugf(format string, args ...interface{}) { g.l.Printf("[DEBUG] "+format, args...) }
func (g *goLog) Infof(format string, args ...interface{})  { g.l.Printf("[INFO]  "+format, args...) }
func (g *goLog) Warnf(format string, args ...interface{})  { g.l.Printf("[WARN]  "+format, args...) }
func (g *goLog) Errorf(format string, args ...interface{}) { g.l.Printf("[ERROR] "+format, args...) }

// FromLogrus adapts a logrus logger to the conveyor Logger interface
func FromLogrus(l logrus.FieldLogger) Logger {
	return &logrusLogger{l: l}
}

type logrusLogger struct {
	l logrus.FieldLogger
}

func (a *logrusLogger) Debugf(format string, args ...interface{}) { a.l.Debugf(format, args...) }
func (a *logrusLogger) Infof(format string, args ...interface{})  { a.l.Infof(format, args...) }
func (a *logrusLogger) Warnf(format string, args ...interface{})  { a.l.Warnf(format, args...) }
func (a *logrusLogger) Errorf(format string, args ...interface{}) { a.l.Errorf(format, args...) }
