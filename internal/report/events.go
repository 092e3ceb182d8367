// Package report writes the JSONL event log of library actions and renders
// the library summary report.
package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/franz/movie-checklist/internal/library"
)

// EventType represents the type of event
type EventType string

const (
	EventAdd     EventType = "add"
	EventWatched EventType = "watched"
	EventPlanned EventType = "planned"
	EventRated   EventType = "rated"
	EventRemoved EventType = "removed"
	EventEnrich  EventType = "enrich"
	EventSearch  EventType = "search"
	EventError   EventType = "error"
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

// Event represents a single library event
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	SessionID string            `json:"session_id,omitempty"`
	CatalogID int64             `json:"catalog_id,omitempty"`
	MediaType string            `json:"media_type,omitempty"`
	Title     string            `json:"title,omitempty"`
	Status    string            `json:"status,omitempty"`
	Rating    int               `json:"rating,omitempty"`
	Query     string            `json:"query,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file. A nil *EventLogger is a valid
// no-op logger.
type EventLogger struct {
	file      *os.File
	encoder   *json.Encoder
	mu        sync.Mutex
	path      string
	minLevel  EventLevel
	sessionID string
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	sessionID := uuid.New().String()

	// One file per process run
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s-%s.jsonl", timestamp, sessionID[:8])
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:      file,
		encoder:   json.NewEncoder(file),
		path:      path,
		minLevel:  minLevel,
		sessionID: sessionID,
	}, nil
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
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogAction logs a user action on a library record. A failed action is
// logged at error level.
func (l *EventLogger) LogAction(event EventType, rec library.Record, err error) error {
	e := recordEvent(LevelInfo, event, rec)
	if err != nil {
		e.Level = LevelError
		e.Error = err.Error()
	}
	return l.Log(e)
}

// LogEnrich logs a detail refresh of a library record
func (l *EventLogger) LogEnrich(rec library.Record, duration time.Duration, err error) error {
	e := recordEvent(LevelInfo, EventEnrich, rec)
	e.Duration = duration.Milliseconds()
	e.Extra = map[string]string{
		"genres": fmt.Sprintf("%d", len(rec.Genres)),
	}
	if err != nil {
		e.Level = LevelWarning
		e.Error = err.Error()
	}
	return l.Log(e)
}

// LogSearch logs a catalog search
func (l *EventLogger) LogSearch(query string, results int, duration time.Duration, err error) error {
	e := &Event{
		Level:    LevelDebug,
		Event:    EventSearch,
		Query:    query,
		Duration: duration.Milliseconds(),
		Extra: map[string]string{
			"results": fmt.Sprintf("%d", results),
		},
	}
	if err != nil {
		e.Level = LevelWarning
		e.Error = err.Error()
	}
	return l.Log(e)
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, catalogID int64, err error) error {
	return l.Log(&Event{
		Level:     LevelError,
		Event:     event,
		CatalogID: catalogID,
		Error:     err.Error(),
	})
}

func recordEvent(level EventLevel, event EventType, rec library.Record) *Event {
	e := &Event{
		Level:     level,
		Event:     event,
		CatalogID: rec.ID,
		MediaType: string(rec.MediaType),
		Title:     rec.Title,
		Status:    rec.Ownership.State().String(),
	}
	if r, ok := rec.Ownership.Rating(); ok {
		e.Rating = int(r)
	}
	return e
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// SessionID returns the id stamped on every event of this logger
func (l *EventLogger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}

// ReadEvents decodes every event of a JSONL event log
func ReadEvents(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("failed to decode event log line %d: %w", line, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}

	return events, nil
}
