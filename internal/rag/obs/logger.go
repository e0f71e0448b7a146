package obs

import "github.com/rs/zerolog"

// Logger is the structured-logging interface consumed by the router and
// index so tests can substitute a no-op or recording implementation without
// depending on zerolog directly.
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Debug(msg string, fields map[string]any)
}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	Base zerolog.Logger
}

func NewZerologLogger(base zerolog.Logger) *ZerologLogger { return &ZerologLogger{Base: base} }

func (l *ZerologLogger) Info(msg string, fields map[string]any) {
	withFields(l.Base.Info(), fields).Msg(msg)
}

func (l *ZerologLogger) Error(msg string, fields map[string]any) {
	withFields(l.Base.Error(), fields).Msg(msg)
}

func (l *ZerologLogger) Debug(msg string, fields map[string]any) {
	withFields(l.Base.Debug(), fields).Msg(msg)
}

func withFields(e *zerolog.Event, fields map[string]any) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

// NoopLogger discards everything; used as the default when callers don't
// configure a logger explicitly.
type NoopLogger struct{}

func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}
func (NoopLogger) Debug(string, map[string]any) {}
