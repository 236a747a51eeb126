//go:build go1.21

// Package slog adapts log/slog to ccfacade.Logger.
package slog

import (
	"context"
	"io"
	stdslog "log/slog"

	"github.com/unkn0wn-root/ccfacade"
)

var _ ccfacade.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

// New builds a JSON slog logger writing to w at the given level.
func New(w io.Writer, level string) (Logger, error) {
	var lvl stdslog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return Logger{}, err
	}
	h := stdslog.NewJSONHandler(w, &stdslog.HandlerOptions{Level: lvl})
	return Logger{L: stdslog.New(h)}, nil
}

func (s Logger) Debug(msg string, f ccfacade.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelDebug, msg, attrs(f)...)
}
func (s Logger) Info(msg string, f ccfacade.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelInfo, msg, attrs(f)...)
}
func (s Logger) Warn(msg string, f ccfacade.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelWarn, msg, attrs(f)...)
}
func (s Logger) Error(msg string, f ccfacade.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelError, msg, attrs(f)...)
}

func attrs(f ccfacade.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	out := make([]stdslog.Attr, 0, len(f))
	for k, v := range f {
		out = append(out, stdslog.Any(k, v))
	}
	return out
}
