// File: internal/logger/logger.go
// Package logger
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Leveled logging over the standard log package with coloured level tags
// and a request access line.

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Level orders log severities.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "off"
}

// ParseLevel maps a level name to its Level. Unknown names yield LevelInfo
// and false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "off", "none":
		return LevelOff, true
	}
	return LevelInfo, false
}

// Logger is the logging surface the server depends on.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	// Access records one answered request.
	Access(method, path string, code int)
}

var tagAttrs = [...][]color.Attribute{
	LevelDebug: {color.FgCyan},
	LevelInfo:  {color.FgGreen},
	LevelWarn:  {color.FgYellow},
	LevelError: {color.FgRed, color.Bold},
}

var tagNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO ",
	LevelWarn:  "WARN ",
	LevelError: "ERROR",
}

// StdLogger writes through a *log.Logger.
type StdLogger struct {
	out   *log.Logger
	level atomic.Int32

	tags   [LevelOff]string
	ok     *color.Color
	redir  *color.Color
	failed *color.Color
}

// New returns a logger writing to w at the given minimum level. Output is
// coloured only when w is a terminal and colour is not globally disabled.
func New(w io.Writer, level Level) *StdLogger {
	return newLogger(w, level, isTerminal(w) && !color.NoColor)
}

func newLogger(w io.Writer, level Level, colored bool) *StdLogger {
	paint := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	l := &StdLogger{
		out:    log.New(w, "", log.LstdFlags|log.Lmicroseconds),
		ok:     paint(color.FgGreen),
		redir:  paint(color.FgYellow),
		failed: paint(color.FgRed),
	}
	for lvl := range l.tags {
		l.tags[lvl] = paint(tagAttrs[lvl]...).Sprint(tagNames[lvl])
	}
	l.level.Store(int32(level))
	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (l *StdLogger) SetLevel(level Level) { l.level.Store(int32(level)) }

func (l *StdLogger) Level() Level { return Level(l.level.Load()) }

func (l *StdLogger) Enabled(level Level) bool {
	return level < LevelOff && level >= l.Level()
}

func (l *StdLogger) logf(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	l.out.Print(l.tags[level] + " " + fmt.Sprintf(format, args...))
}

func (l *StdLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *StdLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *StdLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *StdLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// Access logs "METHOD path code", green for success, yellow for redirects,
// red for client and server errors.
func (l *StdLogger) Access(method, path string, code int) {
	if !l.Enabled(LevelInfo) {
		return
	}
	status := strconv.Itoa(code)
	c := l.failed
	switch {
	case code < 300:
		c = l.ok
	case code < 400:
		c = l.redir
	}
	l.out.Print(c.Sprintf("%s %s %s", method, path, status))
}

type nop struct{}

func (nop) Debugf(string, ...any)      {}
func (nop) Infof(string, ...any)       {}
func (nop) Warnf(string, ...any)       {}
func (nop) Errorf(string, ...any)      {}
func (nop) Access(string, string, int) {}

// Nop discards everything.
func Nop() Logger { return nop{} }
