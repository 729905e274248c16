package main

import (
	"fmt"
	"log"
	"os"

	"github.com/vifei-systems/vifei/commbus"
	"github.com/vifei-systems/vifei/coreengine/observability"
)

// stdLogger implements both observability.Logger and commbus.Logger on top
// of the standard library logger, writing to stderr so stdout stays clean
// for robot-mode JSON and human-readable command output.
type stdLogger struct {
	verbose bool
	prefix  log.Logger
}

func newStdLogger(verbose bool) *stdLogger {
	return &stdLogger{
		verbose: verbose,
		prefix:  *log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *stdLogger) Debug(msg string, args ...any) {
	if !l.verbose {
		return
	}
	l.log("DEBUG", msg, args...)
}

func (l *stdLogger) Info(msg string, args ...any) {
	l.log("INFO", msg, args...)
}

func (l *stdLogger) Warning(msg string, args ...any) {
	l.log("WARN", msg, args...)
}

func (l *stdLogger) Error(msg string, args ...any) {
	l.log("ERROR", msg, args...)
}

// Bind returns the same logger: cmd/vifei's invocations are too
// short-lived to need per-field logger hierarchies.
func (l *stdLogger) Bind(args ...any) commbus.Logger { return l }

var (
	_ commbus.Logger       = (*stdLogger)(nil)
	_ observability.Logger = (*stdLogger)(nil)
)

// busLoggerAdapter bridges stdLogger to commbus.BusLogger, whose method set
// (Warn instead of Warning, no Bind) predates the protocol-level Logger
// interface the rest of the engine uses.
type busLoggerAdapter struct{ *stdLogger }

func newBusLogger(verbose bool) busLoggerAdapter {
	return busLoggerAdapter{newStdLogger(verbose)}
}

func (a busLoggerAdapter) Warn(msg string, args ...any) { a.stdLogger.Warning(msg, args...) }

var _ commbus.BusLogger = busLoggerAdapter{}

func (l *stdLogger) log(level, msg string, args ...any) {
	l.prefix.Printf("[%s] %s %s", level, msg, fmt.Sprint(args...))
}
