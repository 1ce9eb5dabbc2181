// Package log exposes the logger accepted by the gsx client.
//
// The client logs through [Logger] and stays silent with [Noop]. Any
// application logger can be plugged in with a small adapter:
//
//	type slogAdapter struct{ l *slog.Logger }
//
//	func (a slogAdapter) Infof(f string, args ...any)  { a.l.Info(fmt.Sprintf(f, args...)) }
//	func (a slogAdapter) Debugf(f string, args ...any) { a.l.Debug(fmt.Sprintf(f, args...)) }
//	// Warningf, Errorf, WithValues, WithCtxValues and SetValuesOnCtx.
package log

import "github.com/slok/gsx/internal/log"

// Logger is the client logger, WithValues adds structured fields.
type Logger = log.Logger

// Kv holds structured log fields.
type Kv = log.Kv

// Noop discards everything, used when Config.Logger is nil.
var Noop = log.Noop
