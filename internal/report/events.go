// Package report emits the audit trail for a calculation run: a JSONL
// event stream, a per-scope QA summary, and a Markdown report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventLoad      EventType = "load"
	EventResolve   EventType = "resolve"
	EventAggregate EventType = "aggregate"
	EventCalculate EventType = "calculate"
	EventSkip      EventType = "skip"
	EventFlag      EventType = "flag"
	EventError     EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in a calculation run
type Event struct {
	Timestamp  time.Time         `json:"ts"`
	Level      EventLevel        `json:"level"`
	Event      EventType         `json:"event"`
	RunID      string            `json:"run_id,omitempty"`
	DistrictID string            `json:"district_id,omitempty"`
	Scope      string            `json:"scope,omitempty"`
	Source     string            `json:"source,omitempty"`
	Year       string            `json:"year,omitempty"`
	Rule       string            `json:"rule,omitempty"`
	LCT        float64           `json:"lct,omitempty"`
	Flags      string            `json:"flags,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Error      string            `json:"error,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
	runID    string
}

// NewEventLogger creates a new event logger with a minimum log level.
// minLevel determines which events are written (e.g., LevelInfo skips
// LevelDebug). The run id is stamped onto every event.
func NewEventLogger(outputDir, runID string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
		runID:    runID,
	}, nil
}

// SetRunID changes the run id stamped onto subsequent events. The runner
// calls this once it has minted the run id.
func (l *EventLogger) SetRunID(runID string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runID = runID
}

// NullLogger returns a logger that silently discards all events
func NullLogger() *EventLogger {
	return &EventLogger{}
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogResolve logs a precedence-resolution outcome
func (l *EventLogger) LogResolve(districtID, kind, source, year, rule string, span int, flags []string) error {
	level := LevelDebug
	if len(flags) > 0 {
		level = LevelWarning
	}
	return l.Log(&Event{
		Level:      level,
		Event:      EventResolve,
		DistrictID: districtID,
		Source:     source,
		Year:       year,
		Rule:       rule,
		Flags:      strings.Join(flags, ","),
		Extra: map[string]string{
			"kind": kind,
			"span": fmt.Sprintf("%d", span),
		},
	})
}

// LogCalculate logs one computed scope value
func (l *EventLogger) LogCalculate(districtID, scopeName string, lct float64, valid bool, flags []string) error {
	level := LevelDebug
	if len(flags) > 0 {
		level = LevelWarning
	}
	return l.Log(&Event{
		Level:      level,
		Event:      EventCalculate,
		DistrictID: districtID,
		Scope:      scopeName,
		LCT:        lct,
		Flags:      strings.Join(flags, ","),
		Extra: map[string]string{
			"valid": fmt.Sprintf("%t", valid),
		},
	})
}

// LogSkip logs a per-district skip with its reason
func (l *EventLogger) LogSkip(districtID, reason string) error {
	return l.Log(&Event{
		Level:      LevelWarning,
		Event:      EventSkip,
		DistrictID: districtID,
		Reason:     reason,
	})
}

// LogError logs a district-level failure
func (l *EventLogger) LogError(districtID string, err error) error {
	return l.Log(&Event{
		Level:      LevelError,
		Event:      EventError,
		DistrictID: districtID,
		Error:      err.Error(),
	})
}

// Path returns the event log file path
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close flushes and closes the event log
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close event log: %w", err)
	}
	l.file = nil

	return nil
}
