// Package logger provides component-scoped structured logging for the
// whole application, backed by zerolog.
package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	root zerolog.Logger = zerolog.New(zerolog.NewConsoleWriter()).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
)

// Init configures the global logger. Unknown level strings fall back to info.
func Init(level string, jsonOutput bool) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if jsonOutput {
		l = zerolog.New(os.Stderr)
	} else {
		l = zerolog.New(zerolog.NewConsoleWriter())
	}

	mu.Lock()
	root = l.Level(parsed).With().Timestamp().Logger()
	mu.Unlock()
}

func component(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With().Str("component", name).Logger()
}

func withFields(ev *zerolog.Event, fields map[string]interface{}) *zerolog.Event {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	return ev
}

func DebugC(comp, msg string) {
	l := component(comp)
	l.Debug().Msg(msg)
}

func DebugCF(comp, msg string, fields map[string]interface{}) {
	l := component(comp)
	withFields(l.Debug(), fields).Msg(msg)
}

func InfoC(comp, msg string) {
	l := component(comp)
	l.Info().Msg(msg)
}

func InfoCF(comp, msg string, fields map[string]interface{}) {
	l := component(comp)
	withFields(l.Info(), fields).Msg(msg)
}

func WarnC(comp, msg string) {
	l := component(comp)
	l.Warn().Msg(msg)
}

func WarnCF(comp, msg string, fields map[string]interface{}) {
	l := component(comp)
	withFields(l.Warn(), fields).Msg(msg)
}

func ErrorC(comp, msg string) {
	l := component(comp)
	l.Error().Msg(msg)
}

func ErrorCF(comp, msg string, fields map[string]interface{}) {
	l := component(comp)
	withFields(l.Error(), fields).Msg(msg)
}
