// Package log is the node's structured, leveled logger
// (log.Info/Warn/Error/Debug/Trace with "key", value pairs). Level tags
// are colorized with fatih/color, gated on whether the logger's output
// file (stderr for the root logger) is a terminal (mattn/go-isatty) so
// piped/file output stays plain.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-colorable"
)

type Level int

const (
	LvlCrit Level = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

var levelNames = map[Level]string{
	LvlCrit:  "CRIT",
	LvlError: "ERROR",
	LvlWarn:  "WARN",
	LvlInfo:  "INFO",
	LvlDebug: "DEBUG",
	LvlTrace: "TRACE",
}

var levelColor = map[Level]*color.Color{
	LvlCrit:  color.New(color.FgRed, color.Bold),
	LvlError: color.New(color.FgRed),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgWhite),
}

type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	lvl      Level
	colorize bool
	ctx      []interface{}
}

var root = New(os.Stderr, LvlInfo)

// New builds a Logger writing to out at the given minimum level.
func New(out io.Writer, lvl Level) *Logger {
	colorize := false
	if f, ok := out.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd())
		out = colorable.NewColorable(f)
	}
	return &Logger{out: out, lvl: lvl, colorize: colorize}
}

// SetLevel changes the root logger's minimum level.
func SetLevel(lvl Level) { root.mu.Lock(); root.lvl = lvl; root.mu.Unlock() }

// With returns a child logger with extra persistent key/value context,
// mirroring the go-ethereum log.New(ctx...) idiom used for per-peer or
// per-job loggers.
func (l *Logger) With(ctx ...interface{}) *Logger {
	child := &Logger{out: l.out, lvl: l.lvl, colorize: l.colorize}
	child.ctx = append(append([]interface{}{}, l.ctx...), ctx...)
	return child
}

func (l *Logger) log(lvl Level, msg string, ctx []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl > l.lvl {
		return
	}
	tag := levelNames[lvl]
	if l.colorize {
		tag = levelColor[lvl].Sprint(tag)
	}
	line := fmt.Sprintf("%s [%s] %s", time.Now().Format("01-02|15:04:05.000"), tag, msg)
	all := append(append([]interface{}{}, l.ctx...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		line += fmt.Sprintf(" %v=%v", all[i], all[i+1])
	}
	fmt.Fprintln(l.out, line)
}

func (l *Logger) Crit(msg string, ctx ...interface{})  { l.log(LvlCrit, msg, ctx); os.Exit(1) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.log(LvlError, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log(LvlWarn, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log(LvlInfo, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log(LvlDebug, msg, ctx) }
func (l *Logger) Trace(msg string, ctx ...interface{}) { l.log(LvlTrace, msg, ctx) }

// Package-level shorthands delegate to the root logger.
func Crit(msg string, ctx ...interface{})  { root.Crit(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Trace(msg string, ctx ...interface{}) { root.Trace(msg, ctx...) }
