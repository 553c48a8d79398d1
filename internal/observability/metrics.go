package observability

import (
	"fmt"
	"time"
)

// Stage names as recorded in message.processed events.
const (
	stageMatchedTask      = "matched-task"
	stageMatchedKnowledge = "matched-knowledge"
	stageModelSuccess     = "model-success"
	stageSearchSuccess    = "model-failed-search-success"
	stageAllFailed        = "all-failed"
)

// Metrics holds calculated metrics derived from the event log.
type Metrics struct {
	MessagesProcessed int            `json:"messages_processed"`
	ByStage           map[string]int `json:"by_stage"`
	ByIntent          map[string]int `json:"by_intent"`
	ModelAttempts     int            `json:"model_attempts"`
	ModelFailures     int            `json:"model_failures"`
	AuthFailures      int            `json:"auth_failures"`
	SearchFailures    int            `json:"search_failures"`
	// FallbackRate is the share of model attempts that did not end in a
	// model reply.
	FallbackRate   float64    `json:"fallback_rate"`
	TasksCreated   int        `json:"tasks_created"`
	TasksCompleted int        `json:"tasks_completed"`
	AvgLatencyMs   float64    `json:"avg_latency_ms"`
	EventCount     int        `json:"event_count"`
	OldestEvent    *time.Time `json:"oldest_event,omitempty"`
	NewestEvent    *time.Time `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		ByStage:    make(map[string]int),
		ByIntent:   make(map[string]int),
		EventCount: len(events),
	}

	var latencyTotal float64
	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case EventMessageProcessed:
			m.MessagesProcessed++
			stage, _ := event.Data["stage"].(string)
			if stage != "" {
				m.ByStage[stage]++
			}
			if intent, ok := event.Data["intent"].(string); ok && intent != "" {
				m.ByIntent[intent]++
			}
			if attempted, _ := event.Data["model_attempted"].(bool); attempted {
				m.ModelAttempts++
				if stage != stageModelSuccess {
					m.ModelFailures++
				}
			}
			latencyTotal += number(event.Data["duration_ms"])
		case EventLLMFailed:
			if auth, _ := event.Data["auth"].(bool); auth {
				m.AuthFailures++
			}
		case EventSearchFailed:
			m.SearchFailures++
		case EventTaskCreated:
			m.TasksCreated++
		case EventTaskCompleted:
			m.TasksCompleted++
		}
	}

	if m.ModelAttempts > 0 {
		m.FallbackRate = float64(m.ModelFailures) / float64(m.ModelAttempts)
	}
	if m.MessagesProcessed > 0 {
		m.AvgLatencyMs = latencyTotal / float64(m.MessagesProcessed)
	}
	return m, nil
}

// number reads a numeric event field. Values decoded from JSON are float64;
// values written in-process may still be integers.
func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

// ParseSince turns a window such as "7d", "30d" or "24h" into the instant
// that far before now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	var num int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if num < 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q: must not be negative", s)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
