// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel converts a config value such as "info" or "WARN" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger writes levelled lines to stdout (and optionally a file) and
// broadcasts each written line to live subscribers.
type Logger struct {
	file        *os.File
	logger      *log.Logger
	level       Level
	broadcast   chan string
	subscribers map[chan string]bool
	subMu       sync.RWMutex
	mu          sync.RWMutex
	closed      bool
}

var (
	defaultLogger *Logger
	defaultMu     sync.Mutex
)

// Init replaces the default logger with one writing to logFile (stdout only
// when logFile is empty) at the given level.
func Init(logFile string, level Level) (*Logger, error) {
	l, err := NewLogger(logFile, level)
	if err != nil {
		return nil, err
	}

	defaultMu.Lock()
	old := defaultLogger
	defaultLogger = l
	defaultMu.Unlock()

	if old != nil {
		old.Close()
	}
	return l, nil
}

// NewLogger creates a logger. An empty logFile logs to stdout only.
func NewLogger(logFile string, level Level) (*Logger, error) {
	var out io.Writer = os.Stdout
	var file *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		out = io.MultiWriter(os.Stdout, f)
	}

	return newLogger(out, file, level), nil
}

// NewWriterLogger creates a logger writing to w; used by tests and tools that
// capture output.
func NewWriterLogger(w io.Writer, level Level) *Logger {
	return newLogger(w, nil, level)
}

func newLogger(out io.Writer, file *os.File, level Level) *Logger {
	l := &Logger{
		file:        file,
		logger:      log.New(out, "", 0),
		level:       level,
		broadcast:   make(chan string, 100),
		subscribers: make(map[chan string]bool),
	}
	go l.broadcastLoop()
	return l
}

// GetDefault returns the default logger, creating a stdout logger when none
// is initialised or the current one was closed.
func GetDefault() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLogger != nil {
		defaultLogger.mu.RLock()
		closed := defaultLogger.closed
		defaultLogger.mu.RUnlock()
		if !closed {
			return defaultLogger
		}
	}

	defaultLogger = newLogger(os.Stdout, nil, LevelInfo)
	return defaultLogger
}

// SetLevel changes the threshold below which lines are dropped.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Subscribe returns a receive channel of log lines and the handle to pass to
// Unsubscribe. Both are nil when the logger is closed.
func (l *Logger) Subscribe() (<-chan string, chan string) {
	if l == nil {
		return nil, nil
	}

	l.mu.RLock()
	closed := l.closed
	l.mu.RUnlock()
	if closed {
		return nil, nil
	}

	ch := make(chan string, 10)

	l.subMu.Lock()
	l.subscribers[ch] = true
	l.subMu.Unlock()

	return ch, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (l *Logger) Unsubscribe(ch chan string) {
	if ch == nil {
		return
	}

	l.subMu.Lock()
	defer l.subMu.Unlock()

	if l.subscribers[ch] {
		delete(l.subscribers, ch)
		close(ch)
	}
}

func (l *Logger) broadcastLoop() {
	defer func() {
		l.subMu.Lock()
		for ch := range l.subscribers {
			close(ch)
		}
		l.subscribers = make(map[chan string]bool)
		l.subMu.Unlock()
	}()

	for line := range l.broadcast {
		l.subMu.RLock()
		for ch := range l.subscribers {
			select {
			case ch <- line:
			default:
				// slow subscriber, drop the line
			}
		}
		l.subMu.RUnlock()
	}
}

func (l *Logger) logMessage(level Level, format string, v ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed || level < l.level {
		return
	}

	line := fmt.Sprintf("[%s] [%s] %s", time.Now().Format("2006-01-02 15:04:05"), level, fmt.Sprintf(format, v...))
	l.logger.Print(line)

	select {
	case l.broadcast <- line:
	default:
	}
}

// Printf logs a message at INFO level
func (l *Logger) Printf(format string, v ...interface{}) {
	l.logMessage(LevelInfo, format, v...)
}

// Println logs a message at INFO level
func (l *Logger) Println(v ...interface{}) {
	l.logMessage(LevelInfo, "%s", fmt.Sprint(v...))
}

// Errorf logs a message at ERROR level
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logMessage(LevelError, format, v...)
}

// Warnf logs a message at WARN level
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logMessage(LevelWarn, format, v...)
}

// Debugf logs a message at DEBUG level
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logMessage(LevelDebug, format, v...)
}

// Fatalf logs a message at FATAL level and exits
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.logMessage(LevelFatal, format, v...)
	os.Exit(1)
}

// Close stops broadcasting and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	close(l.broadcast)

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Package-level convenience functions
func Printf(format string, v ...interface{}) {
	GetDefault().Printf(format, v...)
}

func Println(v ...interface{}) {
	GetDefault().Println(v...)
}

func Errorf(format string, v ...interface{}) {
	GetDefault().Errorf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	GetDefault().Warnf(format, v...)
}

func Debugf(format string, v ...interface{}) {
	GetDefault().Debugf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	GetDefault().Fatalf(format, v...)
}
