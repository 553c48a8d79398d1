package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Event types written by the assistant.
const (
	EventMessageProcessed = "message.processed"
	EventTaskCreated      = "task.created"
	EventTaskCompleted    = "task.completed"
	EventLLMFailed        = "llm.failed"
	EventSearchFailed     = "search.failed"
)

// Event represents a single observable event in the system.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`  // e.g. "message.processed", "llm.failed"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventFilter specifies criteria for reading events. TypePrefix matches a
// family of types such as "task.".
type EventFilter struct {
	Since      *time.Time
	Until      *time.Time
	Type       string
	TypePrefix string
	Level      string
}

// EventLog defines the interface for writing and reading events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// jsonlEventLog implements EventLog using an append-only JSONL file.
type jsonlEventLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLEventLog creates a new EventLog backed by a JSONL file at the given path.
func NewJSONLEventLog(path string) (EventLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{path: path, file: f}, nil
}

// Write appends one JSON-encoded event per line. A zero Time is stamped
// with the current UTC time.
func (l *jsonlEventLog) Write(event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if event.Level == "" {
		event.Level = LevelFor(event.Type)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read scans the log file and returns the events matching filter, oldest
// first. Malformed lines are skipped.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		if matchesEventFilter(event, filter) {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

// Close closes the underlying log file.
func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

func matchesEventFilter(event Event, filter EventFilter) bool {
	if filter.Since != nil && event.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Time.After(*filter.Until) {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.TypePrefix != "" && !strings.HasPrefix(event.Type, filter.TypePrefix) {
		return false
	}
	if filter.Level != "" && event.Level != filter.Level {
		return false
	}
	return true
}

// LevelFor derives the level of an event from its type: failures are WARN,
// everything else INFO.
func LevelFor(eventType string) string {
	if strings.HasSuffix(eventType, ".failed") {
		return "WARN"
	}
	return "INFO"
}

// Recorder adapts an EventLog to the single-method event logger used by
// the core services.
type Recorder struct {
	log EventLog
	now func() time.Time
}

// NewRecorder wraps log. A nil log yields a Recorder that drops events.
func NewRecorder(log EventLog) *Recorder {
	return &Recorder{log: log, now: time.Now}
}

// LogEvent writes an event of eventType carrying data.
func (r *Recorder) LogEvent(eventType string, data map[string]any) error {
	if r == nil || r.log == nil {
		return nil
	}
	return r.log.Write(Event{
		Time:    r.now().UTC(),
		Level:   LevelFor(eventType),
		Type:    eventType,
		Message: strings.ReplaceAll(eventType, ".", " "),
		Data:    data,
	})
}
