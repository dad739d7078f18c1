// Package slog is a logger interface offering a uniformly unpleasant
// and wearying experience for application developers, users and operators.
//
// TODO replace this entirely with something else. Maybe zerolog?
package slog

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/ragona/clobber/lib/core"
)

// LogRecord holds data for a single log record.
type LogRecord struct {
	Msg        string       `json:"msg,omitempty"`        // Msg is an optional log message
	Error      error        `json:"error,omitempty"`      // Error is an optional error
	Details    any          `json:"details,omitempty"`    // Details are optional details
	StackTrace string       `json:"stacktrace,omitempty"` // StackTrace is optional stack trace
	Target     *core.Target `json:"target,omitempty"`     // Target is the dial target, if known.
	WorkerID   string       `json:"worker_id,omitempty"`  // WorkerID identifies the worker goroutine, if known.
}

// Logger is an abstract log interface for the driver.
//
// Multiple goroutines may invoke methods on a Logger simultaneously.
type Logger interface {
	Debug(record *LogRecord)
	Info(record *LogRecord)
	Warn(record *LogRecord)
	Error(record *LogRecord)
}

// Level orders the severities a Logger can emit, from Error (the most
// severe, smallest value) to Debug (the most verbose).
type Level uint8

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// TODO make the log output less awful to read by humans and machines.
type stdlibLogShim struct{}

type errorPayload struct {
	Type  string `json:"type,omitempty"`  // Type is the error type
	Error string `json:"error,omitempty"` // Error is the error message
}

func asErrorPayload(err error) *errorPayload {
	if err == nil {
		return nil
	}
	return &errorPayload{
		Type:  fmt.Sprintf("%T", err),
		Error: err.Error(),
	}
}

type recordPayload struct {
	Msg        string        `json:"msg,omitempty"`
	Error      *errorPayload `json:"error,omitempty"`
	Details    any           `json:"details,omitempty"`
	StackTrace string        `json:"stacktrace,omitempty"`
	Target     *core.Target  `json:"target,omitempty"`
	WorkerID   string        `json:"worker_id,omitempty"`
	Level      string        `json:"level,omitempty"`
}

func logRecordAsSemiJSON(level string, record *LogRecord) {
	var payload recordPayload
	payload.Level = level
	if record != nil {
		payload.Msg = record.Msg
		payload.Error = asErrorPayload(record.Error)
		payload.Details = record.Details
		payload.StackTrace = record.StackTrace
		payload.Target = record.Target
		payload.WorkerID = record.WorkerID
	}

	data, _ := json.Marshal(&payload)

	// TODO put the timestamps in the JSON as well.
	log.Println(string(data))
}

func (s *stdlibLogShim) Debug(record *LogRecord) {
	logRecordAsSemiJSON("debug", record)
}

func (s *stdlibLogShim) Info(record *LogRecord) {
	logRecordAsSemiJSON("info", record)
}

func (s *stdlibLogShim) Warn(record *LogRecord) {
	logRecordAsSemiJSON("warn", record)
}

func (s *stdlibLogShim) Error(record *LogRecord) {
	logRecordAsSemiJSON("error", record)
}

// GetDefaultLogger returns the default Logger, which logs everything from
// Error up to Debug.
func GetDefaultLogger() Logger {
	return &stdlibLogShim{}
}

// LeveledLogger wraps an inner Logger and drops any record whose severity
// is below Threshold. It backs the CLI's -v/-vv/-vvv flags: verbosity 0
// (no flag) keeps only Warn and Error, -v adds Info, -vv (or more) adds
// Debug.
type LeveledLogger struct {
	Inner     Logger
	Threshold Level
}

func (l *LeveledLogger) Debug(record *LogRecord) {
	if l.Threshold >= LevelDebug {
		l.Inner.Debug(record)
	}
}

func (l *LeveledLogger) Info(record *LogRecord) {
	if l.Threshold >= LevelInfo {
		l.Inner.Info(record)
	}
}

func (l *LeveledLogger) Warn(record *LogRecord) {
	if l.Threshold >= LevelWarn {
		l.Inner.Warn(record)
	}
}

func (l *LeveledLogger) Error(record *LogRecord) {
	l.Inner.Error(record)
}

var _ Logger = (*LeveledLogger)(nil) // type check

// RecordingLogger captures all logged events in memory. It is designed
// for use as a test fixture, including against a driver under test that
// logs from many concurrently-running worker goroutines at once, so
// every method takes mu before touching Events.
type RecordingLogger struct {
	mu     sync.Mutex
	Events []Event
}

type Event struct {
	Level string
	*LogRecord
}

func (l *RecordingLogger) record(level string, r *LogRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Events = append(l.Events, Event{Level: level, LogRecord: r})
}

func (l *RecordingLogger) Debug(record *LogRecord) { l.record("debug", record) }

func (l *RecordingLogger) Info(record *LogRecord) { l.record("info", record) }

func (l *RecordingLogger) Warn(record *LogRecord) { l.record("warn", record) }

func (l *RecordingLogger) Error(record *LogRecord) { l.record("error", record) }

// CountByMsg returns how many recorded events (at any level) have the given Msg.
func (l *RecordingLogger) CountByMsg(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.Events {
		if e.LogRecord != nil && e.Msg == msg {
			n++
		}
	}
	return n
}

var _ Logger = (*RecordingLogger)(nil) // type check
