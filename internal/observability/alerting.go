package observability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/valter-silva-au/kiya/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	Details     []AlertDetail `json:"details,omitempty"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertDetail is one labelled figure behind an alert, such as the observed
// fallback rate or the stages messages fell back to.
type AlertDetail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	// FallbackRate is the share of model attempts that may fail before
	// fallback_rate_high fires.
	FallbackRate float64 `yaml:"fallback_rate" json:"fallback_rate"`
	// MinMessages is the number of model attempts needed before the
	// fallback rate is judged.
	MinMessages int `yaml:"min_messages" json:"min_messages"`
	// AuthFailures is the count of credential rejections that fires
	// llm_auth_failing.
	AuthFailures int `yaml:"auth_failures" json:"auth_failures"`
	// SearchOutage is the number of consecutive search failures that
	// fires search_outage.
	SearchOutage int `yaml:"search_outage" json:"search_outage"`
	// Window bounds how far back events are considered.
	Window time.Duration `yaml:"window" json:"window"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		FallbackRate: 0.5,
		MinMessages:  10,
		AuthFailures: 3,
		SearchOutage: 3,
		Window:       24 * time.Hour,
	}
}

// ThresholdsFromConfig overlays the configured values on the defaults.
// Zero values keep the default.
func ThresholdsFromConfig(cfg models.AlertConfig) AlertThresholds {
	t := DefaultAlertThresholds()
	if cfg.FallbackRate > 0 {
		t.FallbackRate = cfg.FallbackRate
	}
	if cfg.MinMessages > 0 {
		t.MinMessages = cfg.MinMessages
	}
	if cfg.AuthFailures > 0 {
		t.AuthFailures = cfg.AuthFailures
	}
	return t
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

// alertEngine implements AlertEngine by reading events and checking thresholds.
type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate reads the events inside the alert window and checks every
// condition, returning any triggered alerts.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now()
	filter := EventFilter{}
	if ae.thresholds.Window > 0 {
		since := now.Add(-ae.thresholds.Window)
		filter.Since = &since
	}
	events, err := ae.eventLog.Read(filter)
	if err != nil {
		return nil, fmt.Errorf("reading events for alerts: %w", err)
	}

	var alerts []Alert
	if a, ok := ae.checkFallbackRate(events, now); ok {
		alerts = append(alerts, a)
	}
	if a, ok := ae.checkAuthFailures(events, now); ok {
		alerts = append(alerts, a)
	}
	if a, ok := ae.checkSearchOutage(events, now); ok {
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// checkFallbackRate fires when too many model attempts end somewhere other
// than a model reply.
func (ae *alertEngine) checkFallbackRate(events []Event, now time.Time) (Alert, bool) {
	attempts, failures := 0, 0
	fellBackTo := make(map[string]int)
	for _, event := range events {
		if event.Type != EventMessageProcessed {
			continue
		}
		if attempted, _ := event.Data["model_attempted"].(bool); !attempted {
			continue
		}
		attempts++
		if stage, _ := event.Data["stage"].(string); stage != stageModelSuccess {
			failures++
			fellBackTo[stage]++
		}
	}
	if attempts == 0 || attempts < ae.thresholds.MinMessages {
		return Alert{}, false
	}

	rate := float64(failures) / float64(attempts)
	if rate <= ae.thresholds.FallbackRate {
		return Alert{}, false
	}
	return Alert{
		ID:          "fallback-rate",
		Condition:   "fallback_rate_high",
		Severity:    SeverityMedium,
		Message:     fmt.Sprintf("%.0f%% of %d model attempts fell back past the language model (threshold %.0f%%)", rate*100, attempts, ae.thresholds.FallbackRate*100),
		Details: []AlertDetail{
			{Label: "Fallback rate", Value: fmt.Sprintf("%.0f%% (%d/%d)", rate*100, failures, attempts)},
			{Label: "Threshold", Value: fmt.Sprintf("%.0f%%", ae.thresholds.FallbackRate*100)},
			{Label: "Fell back to", Value: formatStageCounts(fellBackTo)},
		},
		TriggeredAt: now,
	}, true
}

// checkAuthFailures fires when the model keeps rejecting the credential.
func (ae *alertEngine) checkAuthFailures(events []Event, now time.Time) (Alert, bool) {
	count := 0
	for _, event := range events {
		if event.Type != EventLLMFailed {
			continue
		}
		if auth, _ := event.Data["auth"].(bool); auth {
			count++
		}
	}
	if ae.thresholds.AuthFailures <= 0 || count < ae.thresholds.AuthFailures {
		return Alert{}, false
	}
	return Alert{
		ID:          "llm-auth",
		Condition:   "llm_auth_failing",
		Severity:    SeverityHigh,
		Message:     fmt.Sprintf("the language model rejected the API key %d times; check the stored credential", count),
		Details: []AlertDetail{
			{Label: "Auth failures", Value: fmt.Sprintf("%d", count)},
			{Label: "Threshold", Value: fmt.Sprintf("%d", ae.thresholds.AuthFailures)},
		},
		TriggeredAt: now,
	}, true
}

// checkSearchOutage fires when the most recent search attempts all failed.
// A message that reached a search-backed reply resets the run.
func (ae *alertEngine) checkSearchOutage(events []Event, now time.Time) (Alert, bool) {
	run := 0
	lastStage := ""
	for _, event := range events {
		switch event.Type {
		case EventSearchFailed:
			run++
		case EventMessageProcessed:
			stage, _ := event.Data["stage"].(string)
			if stage == stageSearchSuccess {
				run = 0
			}
			lastStage = stage
		}
	}
	if ae.thresholds.SearchOutage <= 0 || run < ae.thresholds.SearchOutage {
		return Alert{}, false
	}
	return Alert{
		ID:          "search-outage",
		Condition:   "search_outage",
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("the last %d web searches failed", run),
		Details: []AlertDetail{
			{Label: "Consecutive failures", Value: fmt.Sprintf("%d", run)},
			{Label: "Threshold", Value: fmt.Sprintf("%d", ae.thresholds.SearchOutage)},
			{Label: "Last stage", Value: orNone(lastStage)},
		},
		TriggeredAt: now,
	}, true
}

// formatStageCounts renders stage counts as "stage=n" pairs, busiest first.
func formatStageCounts(counts map[string]int) string {
	stages := make([]string, 0, len(counts))
	for stage := range counts {
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool {
		if counts[stages[i]] != counts[stages[j]] {
			return counts[stages[i]] > counts[stages[j]]
		}
		return stages[i] < stages[j]
	})
	parts := make([]string, len(stages))
	for i, stage := range stages {
		parts[i] = fmt.Sprintf("%s=%d", orNone(stage), counts[stage])
	}
	return orNone(strings.Join(parts, ", "))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
