// Package chlog is a small leveled logger used to trace handshake,
// query dispatch, and connection-state transitions: a Level type,
// printf- and structured-field call variants, and a mutex-guarded set
// of writers. Lines are RFC5424-framed syslog messages, falling back
// to a plain timestamped line if marshalling fails.
package chlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

type Level int

const (
	Off Level = iota
	Debug
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Off:
		return "OFF"
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) priority() rfc5424.Priority {
	switch l {
	case Debug:
		return rfc5424.User | rfc5424.Debug
	case Info:
		return rfc5424.User | rfc5424.Info
	case Warn:
		return rfc5424.User | rfc5424.Warning
	case Error:
		return rfc5424.User | rfc5424.Error
	default:
		return rfc5424.User | rfc5424.Debug
	}
}

// Field is one key/value pair attached to a structured log line.
type Field struct {
	Key   string
	Value any
}

func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Logger writes RFC5424-framed log lines to one or more writers,
// gated by a minimum level.
type Logger struct {
	mu       sync.Mutex
	wtrs     []io.Writer
	lvl      Level
	hostname string
	appname  string
}

// New builds a Logger at Info level writing to w.
func New(w io.Writer) *Logger {
	host, _ := os.Hostname()
	return &Logger{
		wtrs:     []io.Writer{w},
		lvl:      Info,
		hostname: host,
		appname:  "chnative",
	}
}

// NewDiscard builds a Logger that drops every line; useful as a
// client's default when the caller supplies no logger.
func NewDiscard() *Logger { return New(io.Discard) }

func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	l.lvl = lvl
	l.mu.Unlock()
}

func (l *Logger) AddWriter(w io.Writer) {
	l.mu.Lock()
	l.wtrs = append(l.wtrs, w)
	l.mu.Unlock()
}

func (l *Logger) Debugf(f string, args ...any) { l.outputf(Debug, f, args...) }
func (l *Logger) Infof(f string, args ...any)  { l.outputf(Info, f, args...) }
func (l *Logger) Warnf(f string, args ...any)  { l.outputf(Warn, f, args...) }
func (l *Logger) Errorf(f string, args ...any) { l.outputf(Error, f, args...) }

func (l *Logger) Debug(msg string, fields ...Field) { l.output(Debug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.output(Info, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.output(Warn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.output(Error, msg, fields...) }

func (l *Logger) outputf(lvl Level, f string, args ...any) {
	l.output(lvl, fmt.Sprintf(f, args...))
}

func (l *Logger) output(lvl Level, msg string, fields ...Field) {
	l.mu.Lock()
	curLvl := l.lvl
	l.mu.Unlock()
	if curLvl == Off || lvl < curLvl {
		return
	}
	ln := l.render(time.Now(), lvl, msg, fields...)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.wtrs {
		io.WriteString(w, ln)
		io.WriteString(w, "\n")
	}
}

func (l *Logger) render(ts time.Time, lvl Level, msg string, fields ...Field) string {
	sds := make([]rfc5424.SDParam, 0, len(fields))
	for _, f := range fields {
		sds = append(sds, rfc5424.SDParam{Name: f.Key, Value: fmt.Sprint(f.Value)})
	}
	m := rfc5424.Message{
		Priority:  lvl.priority(),
		Timestamp: ts,
		Hostname:  trim(255, l.hostname),
		AppName:   trim(48, l.appname),
		Message:   []byte(msg),
	}
	if len(sds) > 0 {
		m.StructuredData = []rfc5424.StructuredData{{ID: "chnative@1", Parameters: sds}}
	}
	b, err := m.MarshalBinary()
	if err != nil {
		return ts.UTC().Format(time.RFC3339) + " " + lvl.String() + " " + msg
	}
	return strings.TrimRight(string(b), "\n\r")
}

func trim(n int, s string) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
