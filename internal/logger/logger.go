// Package logger is a process-wide leveled logging facade. Calls made before
// Init are dropped, which keeps package tests quiet.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

type Backend interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
	Fatal(msg interface{}, keyvals ...interface{})
}

var (
	mu       sync.RWMutex
	backends []Backend
)

// Init replaces the active backends.
func Init(b ...Backend) {
	mu.Lock()
	defer mu.Unlock()
	backends = b
}

// NewConsole returns a charmbracelet logger writing to w (stderr when nil).
func NewConsole(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           ParseLevel(level),
	})
}

func ParseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	}
	return log.InfoLevel
}

func each(fn func(Backend)) {
	mu.RLock()
	defer mu.RUnlock()
	for _, b := range backends {
		fn(b)
	}
}

func Debug(msg string, keyvals ...any) { each(func(b Backend) { b.Debug(msg, keyvals...) }) }
func Info(msg string, keyvals ...any)  { each(func(b Backend) { b.Info(msg, keyvals...) }) }
func Warn(msg string, keyvals ...any)  { each(func(b Backend) { b.Warn(msg, keyvals...) }) }
func Error(msg string, keyvals ...any) { each(func(b Backend) { b.Error(msg, keyvals...) }) }

// Fatal logs and exits even when no backend is configured.
func Fatal(msg string, keyvals ...any) {
	each(func(b Backend) { b.Fatal(msg, keyvals...) })
	os.Exit(1)
}

// Mask hides a secret, keeping only its length visible.
func Mask(secret string) string {
	return strings.Repeat("*", len(secret))
}
