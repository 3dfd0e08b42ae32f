// Package slog adapts the standard library's log/slog to the
// memostore.Logger interface.
package slog

import (
	"context"
	stdslog "log/slog"

	"github.com/unkn0wn-root/memostore"
)

var _ memostore.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

func (s Logger) Debug(msg string, f memostore.Fields) { s.logAt(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f memostore.Fields)  { s.logAt(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f memostore.Fields)  { s.logAt(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f memostore.Fields) { s.logAt(stdslog.LevelError, msg, f) }

func (s Logger) logAt(level stdslog.Level, msg string, f memostore.Fields) {
	s.L.LogAttrs(context.Background(), level, msg, attrs(f)...)
}

func attrs(f memostore.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	out := make([]stdslog.Attr, 0, len(f))
	for k, v := range f {
		out = append(out, stdslog.Any(k, v))
	}
	return out
}
