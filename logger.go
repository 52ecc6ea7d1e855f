// Copyright (c) 2012-present The upper.io/db authors. All rights reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining
// a copy of this software and associated documentation files (the
// "Software"), to deal in the Software without restriction, including
// without limitation the rights to use, copy, modify, merge, publish,
// distribute, sublicense, and/or sell copies of the Software, and to
// permit persons to whom the Software is furnished to do so, subject to
// the following conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
// LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
// OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
// WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package db

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents a verbosity level for logs
type LogLevel int8

// Log levels
const (
	LogLevelTrace LogLevel = -1

	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
	LogLevelPanic
)

var logLevels = map[LogLevel]string{
	LogLevelTrace: "TRACE",
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARNING",
	LogLevelError: "ERROR",
	LogLevelFatal: "FATAL",
	LogLevelPanic: "PANIC",
}

func (ll LogLevel) String() string {
	return logLevels[ll]
}

const (
	defaultLogLevel LogLevel = LogLevelWarn

	defaultSlowQueryThreshold = time.Second
)

var (
	reInvisibleChars = regexp.MustCompile(`[\s\r\n\t]+`)
)

// QueryStatus represents the status of a query after being executed.
type QueryStatus struct {
	SessID  uint64
	TxID    uint64
	QueryID uint64

	RowsAffected *int64
	LastInsertID *int64

	RawQuery string
	Args     []interface{}

	Err error

	Start time.Time
	End   time.Time

	Context interface{}
}

// Query returns the RawQuery with invisible characters collapsed.
func (q *QueryStatus) Query() string {
	query := reInvisibleChars.ReplaceAllString(q.RawQuery, " ")
	return strings.TrimSpace(query)
}

// Duration returns how long the query took.
func (q *QueryStatus) Duration() time.Duration {
	return q.End.Sub(q.Start)
}

func (q *QueryStatus) String() string {
	lines := make([]string, 0, 8)

	if q.SessID > 0 {
		lines = append(lines, fmt.Sprintf("Session ID:     %05d", q.SessID))
	}

	if q.TxID > 0 {
		lines = append(lines, fmt.Sprintf("Transaction ID: %05d", q.TxID))
	}

	if query := q.Query(); query != "" {
		lines = append(lines, fmt.Sprintf("Query:          %s", query))
	}

	if len(q.Args) > 0 {
		lines = append(lines, fmt.Sprintf("Arguments:      %#v", q.Args))
	}

	if q.RowsAffected != nil {
		lines = append(lines, fmt.Sprintf("Rows affected:  %d", *q.RowsAffected))
	}

	if q.LastInsertID != nil {
		lines = append(lines, fmt.Sprintf("Last insert ID: %d", *q.LastInsertID))
	}

	if q.Err != nil {
		lines = append(lines, fmt.Sprintf("Error:          %v", q.Err))
	}

	lines = append(lines, fmt.Sprintf("Time taken:     %0.5fs", q.Duration().Seconds()))

	return "\t" + strings.Replace(strings.Join(lines, "\n"), "\n", "\n\t", -1) + "\n\n"
}

// Logger represents a logging interface that is compatible with the standard
// "log" and with many other logging libraries.
type Logger interface {
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})

	Print(v ...interface{})
	Printf(format string, v ...interface{})

	Panic(v ...interface{})
	Panicf(format string, v ...interface{})
}

// leveledLogger is satisfied by *logrus.Logger and *logrus.Entry; when the
// configured logger implements it, messages keep their level.
type leveledLogger interface {
	Tracef(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// LoggingCollector provides different methods for collecting and classifying
// log messages.
type LoggingCollector interface {
	Enabled(LogLevel) bool

	Level() LogLevel

	SetLogger(Logger)
	SetLevel(LogLevel)

	SlowQueryThreshold() time.Duration
	SetSlowQueryThreshold(time.Duration)

	Trace(v ...interface{})
	Tracef(format string, v ...interface{})

	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warn(v ...interface{})
	Warnf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})

	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})

	Panic(v ...interface{})
	Panicf(format string, v ...interface{})

	// LogQuery reports an executed statement: failures are logged as
	// errors, slow statements as warnings, everything else at debug level.
	LogQuery(*QueryStatus)
}

type loggingCollector struct {
	mu sync.RWMutex

	level  LogLevel
	logger Logger

	slowQuery time.Duration
}

func (c *loggingCollector) current() (LogLevel, Logger) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level, c.logger
}

func (c *loggingCollector) Enabled(level LogLevel) bool {
	current, _ := c.current()
	return current <= level
}

func (c *loggingCollector) Level() LogLevel {
	level, _ := c.current()
	return level
}

func (c *loggingCollector) SetLevel(level LogLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
}

func (c *loggingCollector) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if logger == nil {
		logger = newDefaultLogger()
	}
	c.logger = logger
}

func (c *loggingCollector) SlowQueryThreshold() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slowQuery
}

func (c *loggingCollector) SetSlowQueryThreshold(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slowQuery = d
}

func (c *loggingCollector) logf(level LogLevel, f string, v ...interface{}) {
	current, logger := c.current()
	if level < current {
		return
	}

	msg := fmt.Sprintf(f, v...)

	switch level {
	case LogLevelFatal:
		logger.Fatal(msg)
		return
	case LogLevelPanic:
		logger.Panic(msg)
		return
	}

	if ll, ok := logger.(leveledLogger); ok {
		switch level {
		case LogLevelTrace:
			ll.Tracef("%s", msg)
		case LogLevelDebug:
			ll.Debugf("%s", msg)
		case LogLevelInfo:
			ll.Infof("%s", msg)
		case LogLevelWarn:
			ll.Warnf("%s", msg)
		default:
			ll.Errorf("%s", msg)
		}
		return
	}

	logger.Printf("cloudplane/db: %s: %s", level, msg)
}

func (c *loggingCollector) log(level LogLevel, v ...interface{}) {
	c.logf(level, "%s", fmt.Sprint(v...))
}

func (c *loggingCollector) Trace(v ...interface{}) { c.log(LogLevelTrace, v...) }
func (c *loggingCollector) Debug(v ...interface{}) { c.log(LogLevelDebug, v...) }
func (c *loggingCollector) Info(v ...interface{})  { c.log(LogLevelInfo, v...) }
func (c *loggingCollector) Warn(v ...interface{})  { c.log(LogLevelWarn, v...) }
func (c *loggingCollector) Error(v ...interface{}) { c.log(LogLevelError, v...) }
func (c *loggingCollector) Fatal(v ...interface{}) { c.log(LogLevelFatal, v...) }
func (c *loggingCollector) Panic(v ...interface{}) { c.log(LogLevelPanic, v...) }

func (c *loggingCollector) Tracef(f string, v ...interface{}) { c.logf(LogLevelTrace, f, v...) }
func (c *loggingCollector) Debugf(f string, v ...interface{}) { c.logf(LogLevelDebug, f, v...) }
func (c *loggingCollector) Infof(f string, v ...interface{})  { c.logf(LogLevelInfo, f, v...) }
func (c *loggingCollector) Warnf(f string, v ...interface{})  { c.logf(LogLevelWarn, f, v...) }
func (c *loggingCollector) Errorf(f string, v ...interface{}) { c.logf(LogLevelError, f, v...) }
func (c *loggingCollector) Fatalf(f string, v ...interface{}) { c.logf(LogLevelFatal, f, v...) }
func (c *loggingCollector) Panicf(f string, v ...interface{}) { c.logf(LogLevelPanic, f, v...) }

func (c *loggingCollector) LogQuery(q *QueryStatus) {
	if q.Err != nil {
		c.Errorf("\n%s", q.String())
		return
	}
	if threshold := c.SlowQueryThreshold(); threshold > 0 && q.Duration() >= threshold {
		c.Warnf("%v\n%s", ErrWarnSlowQuery, q.String())
		return
	}
	c.Debugf("\n%s", q.String())
}

func newDefaultLogger() Logger {
	lg := logrus.New()
	lg.SetLevel(logrus.TraceLevel)
	return lg.WithField("component", "cloudplane/db")
}

var defaultLoggingCollector LoggingCollector = &loggingCollector{
	level:     defaultLogLevel,
	logger:    newDefaultLogger(),
	slowQuery: defaultSlowQueryThreshold,
}

// LC returns the logging collector.
func LC() LoggingCollector {
	return defaultLoggingCollector
}

var _ = LoggingCollector(&loggingCollector{})
