package core

import "time"

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// logEvent writes to an optional EventLogger, ignoring failures.
func logEvent(l EventLogger, eventType string, data map[string]any) {
	if l == nil {
		return
	}
	_ = l.LogEvent(eventType, data) // Non-fatal: observability must not break chat.
}
