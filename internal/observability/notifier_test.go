package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSlackNotifier_NoAlerts(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, "KIYA")
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := n.Notify(context.Background(), []Alert{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if called {
		t.Fatal("expected no HTTP request for empty alerts")
	}
}

func TestSlackNotifier_SendsAlerts(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	at := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	alerts := []Alert{
		{ID: "llm-auth", Condition: "llm_auth_failing", Severity: SeverityHigh, Message: "key rejected 3 times", TriggeredAt: at},
		{ID: "search-outage", Condition: "search_outage", Severity: SeverityLow, Message: "the last 3 web searches failed", TriggeredAt: at},
	}

	if err := NewSlackNotifier(srv.URL, "Jarvis").Notify(context.Background(), alerts); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}

	var msg slackMessage
	if err := json.Unmarshal(receivedBody, &msg); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}

	// header + section + divider + section
	if len(msg.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(msg.Blocks))
	}
	if msg.Blocks[0].Text == nil || msg.Blocks[0].Text.Text != "Jarvis Alert Summary" {
		t.Errorf("expected header naming the assistant, got %v", msg.Blocks[0].Text)
	}
	wantTypes := []string{"header", "section", "divider", "section"}
	for i, want := range wantTypes {
		if msg.Blocks[i].Type != want {
			t.Errorf("block %d type = %s, want %s", i, msg.Blocks[i].Type, want)
		}
	}

	body := string(receivedBody)
	for _, want := range []string{"llm_auth_failing", "search_outage", "key rejected 3 times", "2026-01-15 10:30 UTC", "\U0001f534", "\U0001f535"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestSlackNotifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewSlackNotifier(srv.URL, "").Notify(context.Background(), []Alert{{Severity: SeverityMedium, Message: "x"}})
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected error to contain status code 500, got: %s", err.Error())
	}
}

func TestSlackNotifier_DefaultTitle(t *testing.T) {
	n := NewSlackNotifier("http://unused", "").(*slackNotifier)
	msg := n.buildMessage([]Alert{{Severity: AlertSeverity("unknown")}})
	if msg.Blocks[0].Text.Text != "KIYA Alert Summary" {
		t.Errorf("unexpected default title %q", msg.Blocks[0].Text.Text)
	}
	if !strings.Contains(msg.Blocks[1].Text.Text, "❓") {
		t.Errorf("expected fallback emoji for unknown severity, got %q", msg.Blocks[1].Text.Text)
	}
}

func TestSlackNotifier_FieldsCarryAlertContext(t *testing.T) {
	n := NewSlackNotifier("http://unused", "KIYA").(*slackNotifier)
	msg := n.buildMessage([]Alert{{
		Condition: "fallback_rate_high",
		Severity:  SeverityMedium,
		Message:   "80% of 5 model attempts fell back",
		Details: []AlertDetail{
			{Label: "Fallback rate", Value: "80% (4/5)"},
			{Label: "Fell back to", Value: "all-failed=3, model-failed-search-success=1"},
		},
	}})

	fields := msg.Blocks[1].Fields
	want := []string{
		"*Condition*\nfallback_rate_high",
		"*Severity*\nmedium",
		"*Fallback rate*\n80% (4/5)",
		"*Fell back to*\nall-failed=3, model-failed-search-success=1",
	}
	if len(fields) != len(want) {
		t.Fatalf("got %d fields, want %d: %+v", len(fields), len(want), fields)
	}
	for i, w := range want {
		if fields[i].Text != w || fields[i].Type != "mrkdwn" {
			t.Errorf("field %d = %+v, want %q", i, fields[i], w)
		}
	}
}

func TestSlackNotifier_FieldsCapped(t *testing.T) {
	details := make([]AlertDetail, 20)
	for i := range details {
		details[i] = AlertDetail{Label: "n", Value: "v"}
	}
	n := NewSlackNotifier("http://unused", "").(*slackNotifier)
	msg := n.buildMessage([]Alert{{Condition: "c", Severity: SeverityLow, Details: details}})
	if got := len(msg.Blocks[1].Fields); got != maxSlackFields {
		t.Errorf("fields = %d, want %d", got, maxSlackFields)
	}
}
