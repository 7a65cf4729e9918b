// Copyright The NRI Plugins Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log implements the structured, per-source leveled logger used
// throughout the scheduler core. Every package gets its own named Logger
// via Get(source), with debugging independently toggled per source.
package log

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Level is a logging severity level.
type Level int

const (
	// LevelDebug is the debug severity level.
	LevelDebug Level = iota
	// LevelInfo is the informational severity level.
	LevelInfo
	// LevelWarn is the warning severity level.
	LevelWarn
	// LevelError is the error severity level.
	LevelError
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
	return "unknown"
}

// Logger is the logging interface exposed to the rest of the kernel.
type Logger interface {
	// Debug logs a formatted debug message, if debugging is enabled for this source.
	Debug(format string, args ...interface{})
	// Info logs a formatted informational message.
	Info(format string, args ...interface{})
	// Warn logs a formatted warning message.
	Warn(format string, args ...interface{})
	// Warnf is an alias for Warn.
	Warnf(format string, args ...interface{})
	// Error logs a formatted error message.
	Error(format string, args ...interface{})
	// Errorf is an alias for Error.
	Errorf(format string, args ...interface{})
	// Panic logs a formatted error message, then panics with it.
	Panic(format string, args ...interface{})
	// Println logs its arguments as an error message, so a Logger can
	// serve as promhttp.HandlerOpts.ErrorLog.
	Println(v ...interface{})
	// DebugEnabled returns true if debug logging is enabled for this logger's source.
	DebugEnabled() bool
	// Source returns the name this logger was created for.
	Source() string
}

// logger is our concrete Logger implementation, named after a source package.
type logger struct {
	source string
}

var _ Logger = logger{}

// state is the global, mutex-guarded logging configuration.
type state struct {
	sync.Mutex
	level   Level
	dbgMap  srcmap
	prefix  bool
	loggers map[string]logger
	std     *log.Logger
}

var (
	logState = &state{
		level:   DefaultLevel,
		dbgMap:  srcmap{},
		loggers: map[string]logger{},
		std:     log.New(os.Stderr, "", log.LstdFlags),
	}
	deflog = Default()
)

// Default returns the logger for the unnamed ("default") source.
func Default() Logger {
	return logState.get("default")
}

// Get returns the named logger, creating it if necessary.
func Get(source string) Logger {
	return logState.get(source)
}

// NewLogger is an alias for Get, matching call sites that read more
// naturally as "create a logger for this source".
func NewLogger(source string) Logger {
	return logState.get(source)
}

func (s *state) get(source string) logger {
	s.Lock()
	defer s.Unlock()
	l, ok := s.loggers[source]
	if !ok {
		l = logger{source: source}
		s.loggers[source] = l
	}
	return l
}

func (s *state) setLevel(lvl Level) {
	s.Lock()
	defer s.Unlock()
	s.level = lvl
}

func (s *state) setDbgMap(m srcmap) {
	s.Lock()
	defer s.Unlock()
	s.dbgMap = m
}

func (s *state) setPrefix(enabled bool) {
	s.Lock()
	defer s.Unlock()
	s.prefix = enabled
}

func (s *state) debugEnabled(source string) bool {
	s.Lock()
	defer s.Unlock()
	if enabled, ok := s.dbgMap[source]; ok {
		return enabled
	}
	if enabled, ok := s.dbgMap["*"]; ok {
		return enabled
	}
	return s.level <= LevelDebug
}

func (s *state) write(lvl Level, source, msg string) {
	s.Lock()
	prefix := s.prefix
	s.Unlock()

	tag := lvl.String()
	if prefix {
		s.std.Printf("[%s] %s: %s", tag, source, msg)
	} else {
		s.std.Printf("%s: %s", tag, msg)
	}
}

func (l logger) Source() string {
	return l.source
}

func (l logger) DebugEnabled() bool {
	return logState.debugEnabled(l.source)
}

func (l logger) Debug(format string, args ...interface{}) {
	if !l.DebugEnabled() {
		return
	}
	logState.write(LevelDebug, l.source, fmt.Sprintf(format, args...))
}

func (l logger) Info(format string, args ...interface{}) {
	if logState.level > LevelInfo {
		return
	}
	logState.write(LevelInfo, l.source, fmt.Sprintf(format, args...))
}

func (l logger) Warn(format string, args ...interface{}) {
	if logState.level > LevelWarn {
		return
	}
	logState.write(LevelWarn, l.source, fmt.Sprintf(format, args...))
}

func (l logger) Warnf(format string, args ...interface{}) {
	l.Warn(format, args...)
}

func (l logger) Error(format string, args ...interface{}) {
	logState.write(LevelError, l.source, fmt.Sprintf(format, args...))
}

func (l logger) Errorf(format string, args ...interface{}) {
	l.Error(format, args...)
}

func (l logger) Println(v ...interface{}) {
	l.Error("%s", fmt.Sprint(v...))
}

func (l logger) Panic(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logState.write(LevelError, l.source, msg)
	panic(msg)
}

// loggerError formats an error local to this package.
func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("log: "+format, args...)
}
