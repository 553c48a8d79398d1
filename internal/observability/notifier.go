package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notifier sends alert notifications to external channels.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}

// slackNotifier sends alert notifications to a Slack webhook.
type slackNotifier struct {
	webhookURL string
	title      string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier that posts alerts to the given Slack
// webhook URL under a header naming the assistant.
func NewSlackNotifier(webhookURL, assistantName string) Notifier {
	if assistantName == "" {
		assistantName = "KIYA"
	}
	return &slackNotifier{
		webhookURL: webhookURL,
		title:      assistantName + " Alert Summary",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify sends the given alerts to the configured Slack webhook.
// It returns nil without making a request if the alerts slice is empty.
func (s *slackNotifier) Notify(ctx context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(s.buildMessage(alerts))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *slackNotifier) buildMessage(alerts []Alert) slackMessage {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: s.title},
		},
	}

	for i, alert := range alerts {
		if i > 0 {
			blocks = append(blocks, slackBlock{Type: "divider"})
		}
		text := fmt.Sprintf("%s *[%s]* `%s` %s\n_%s_",
			severityEmoji(alert.Severity),
			strings.ToUpper(string(alert.Severity)),
			alert.Condition,
			alert.Message,
			alert.TriggeredAt.UTC().Format("2006-01-02 15:04 UTC"),
		)
		blocks = append(blocks, slackBlock{
			Type:   "section",
			Text:   &slackText{Type: "mrkdwn", Text: text},
			Fields: alertFields(alert),
		})
	}

	return slackMessage{Blocks: blocks}
}

// alertFields lays out the condition, severity and any details as a Slack
// fields grid. Slack renders at most ten fields per section.
func alertFields(alert Alert) []slackText {
	fields := []slackText{
		{Type: "mrkdwn", Text: "*Condition*\n" + alert.Condition},
		{Type: "mrkdwn", Text: "*Severity*\n" + string(alert.Severity)},
	}
	for _, d := range alert.Details {
		if len(fields) == maxSlackFields {
			break
		}
		fields = append(fields, slackText{Type: "mrkdwn", Text: "*" + d.Label + "*\n" + d.Value})
	}
	return fields
}

const maxSlackFields = 10

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}
