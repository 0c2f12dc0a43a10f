package log

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	kerrors "github.com/YuminosukeSato/churnkit/pkg/errors"
)

// ZerologLogger is a Logger backed by zerolog. Values implementing
// zerolog.LogObjectMarshaler, including the structured errors of pkg/errors,
// are emitted as nested objects.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger creates a JSON zerolog Logger writing to w.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (z *ZerologLogger) Debug(msg string, fields ...any) { addFields(z.zl.Debug(), fields).Msg(msg) }
func (z *ZerologLogger) Info(msg string, fields ...any)  { addFields(z.zl.Info(), fields).Msg(msg) }
func (z *ZerologLogger) Warn(msg string, fields ...any)  { addFields(z.zl.Warn(), fields).Msg(msg) }
func (z *ZerologLogger) Error(msg string, fields ...any) { addFields(z.zl.Error(), fields).Msg(msg) }

func (z *ZerologLogger) With(fields ...any) Logger {
	ctx := z.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ctx = ctx.AnErr(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

func (z *ZerologLogger) Enabled(ctx context.Context, level Level) bool {
	return toZerologLevel(level) >= z.zl.GetLevel()
}

// addFields appends key/value pairs to e. A trailing key without a value is
// kept under "!BADKEY" like slog does.
func addFields(e *zerolog.Event, fields []any) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			e = e.Object(key, v)
		case error:
			e = e.AnErr(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	if len(fields)%2 == 1 {
		e = e.Interface("!BADKEY", fields[len(fields)-1])
	}
	return e
}

// UseZerologWarnings routes library warnings such as ConvergenceWarning
// through z at warn level.
func UseZerologWarnings(z *ZerologLogger) {
	kerrors.SetZerologWarnFunc(func(w error) {
		e := z.zl.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			e = e.EmbedObject(m)
		}
		e.Msg(w.Error())
	})
}
