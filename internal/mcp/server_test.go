package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/internal/observability"
	"github.com/valter-silva-au/kiya/internal/storage"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// --- Fake implementations ---

type fakeMetricsCalculator struct {
	metrics *observability.Metrics
	err     error
}

func (f *fakeMetricsCalculator) Calculate(_ time.Time) (*observability.Metrics, error) {
	return f.metrics, f.err
}

type fakeAlertEngine struct {
	alerts []observability.Alert
	err    error
}

func (f *fakeAlertEngine) Evaluate() ([]observability.Alert, error) {
	return f.alerts, f.err
}

func newConversation(t *testing.T) (*core.Conversation, core.TaskStore) {
	t.Helper()
	kv := storage.NewMemoryKVStore()
	tasks := core.NewTaskStore(time.Now)
	history := core.NewConversationHistory(kv, core.DefaultHistoryNamespace, zerolog.Nop())
	router := core.NewRouter(core.RouterDeps{
		Tasks:     tasks,
		Knowledge: core.NewKnowledgeBase(core.DefaultKnowledgeEntries(), "KIYA", time.Now),
		Logger:    zerolog.Nop(),
	})
	return core.NewConversation(history, router, nil, 0, time.Now), tasks
}

// callTool is a helper that connects a client to the server and calls a tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	// Connect server (non-blocking).
	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}

	return result
}

// decode reads a tool's structured output, falling back to its text.
func decode(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	var data []byte
	if result.StructuredContent != nil {
		data, _ = json.Marshal(result.StructuredContent)
	} else {
		data = []byte(extractText(result))
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshalling tool output: %v (raw: %s)", err, data)
	}
}

// --- Tests ---

func TestSendMessage(t *testing.T) {
	conv, tasks := newConversation(t)
	srv := NewServer(conv, tasks, nil, nil, "test")

	result := callTool(t, srv, "send_message", map[string]any{"message": "add task water the plants"})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var out sendMessageOutput
	decode(t, result, &out)
	if out.Stage != string(models.StageMatchedTask) || out.Intent != "add_task" {
		t.Errorf("unexpected outcome %+v", out)
	}
	if !strings.Contains(out.Reply, "water the plants") {
		t.Errorf("reply = %q", out.Reply)
	}
	if len(tasks.ListTasks()) != 1 {
		t.Errorf("expected the task to be stored")
	}
	if conv.History().Len() != 2 {
		t.Errorf("expected user and reply in history, got %d", conv.History().Len())
	}
}

func TestSendMessageBlank(t *testing.T) {
	conv, tasks := newConversation(t)
	result := callTool(t, NewServer(conv, tasks, nil, nil, "test"), "send_message", map[string]any{"message": "   "})
	if !result.IsError {
		t.Fatal("expected an error result for blank input")
	}
}

func TestListTasks(t *testing.T) {
	conv, tasks := newConversation(t)
	_, _ = tasks.AddTask("first")
	_, _ = tasks.AddTask("second")
	_, _ = tasks.CompleteByIndex(1)

	result := callTool(t, NewServer(conv, tasks, nil, nil, "test"), "list_tasks", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	var out listTasksOutput
	decode(t, result, &out)
	if out.Count != 2 || out.Tasks[0].Index != 1 || !out.Tasks[0].Completed || out.Tasks[1].Title != "second" {
		t.Errorf("unexpected tasks %+v", out)
	}
}

func TestGetAndClearHistory(t *testing.T) {
	conv, tasks := newConversation(t)
	for _, m := range []string{"hello", "how are you", "list tasks"} {
		if _, err := conv.Submit(context.Background(), m); err != nil {
			t.Fatal(err)
		}
	}
	srv := NewServer(conv, tasks, nil, nil, "test")

	var all getHistoryOutput
	decode(t, callTool(t, srv, "get_history", map[string]any{}), &all)
	if all.Count != 6 || all.Messages[0].Content != "hello" || all.Messages[0].Role != "user" {
		t.Errorf("unexpected history %+v", all)
	}

	var recent getHistoryOutput
	decode(t, callTool(t, srv, "get_history", map[string]any{"limit": 2}), &recent)
	if recent.Count != 2 || recent.Messages[0].Content != "list tasks" {
		t.Errorf("unexpected limited history %+v", recent)
	}

	var cleared clearHistoryOutput
	decode(t, callTool(t, srv, "clear_history", map[string]any{}), &cleared)
	if cleared.ConversationID == "" || cleared.ConversationID == all.ConversationID {
		t.Errorf("expected a new conversation id, got %q", cleared.ConversationID)
	}
	if conv.History().Len() != 0 {
		t.Errorf("history not cleared")
	}
}

func TestGetMetrics(t *testing.T) {
	now := time.Now().UTC()
	mc := &fakeMetricsCalculator{
		metrics: &observability.Metrics{
			MessagesProcessed: 12,
			ByStage:           map[string]int{"model-success": 8, "all-failed": 4},
			ByIntent:          map[string]int{"escalate": 12},
			ModelAttempts:     12,
			ModelFailures:     4,
			FallbackRate:      1.0 / 3.0,
			EventCount:        30,
			OldestEvent:       &now,
			NewestEvent:       &now,
		},
	}
	conv, tasks := newConversation(t)
	result := callTool(t, NewServer(conv, tasks, mc, nil, "test"), "get_metrics", map[string]any{"since": "30d"})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var m metricsOutput
	decode(t, result, &m)
	if m.MessagesProcessed != 12 || m.ByStage["all-failed"] != 4 || m.EventCount != 30 {
		t.Errorf("unexpected metrics %+v", m)
	}
	if m.OldestEvent == "" {
		t.Error("expected oldest event timestamp")
	}
}

func TestGetMetricsErrors(t *testing.T) {
	conv, tasks := newConversation(t)
	tests := []struct {
		name string
		mc   observability.MetricsCalculator
		args map[string]any
	}{
		{"disabled", nil, map[string]any{}},
		{"bad since", &fakeMetricsCalculator{metrics: &observability.Metrics{}}, map[string]any{"since": "7x"}},
		{"calculator fails", &fakeMetricsCalculator{err: errors.New("disk gone")}, map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, NewServer(conv, tasks, tt.mc, nil, "test"), "get_metrics", tt.args)
			if !result.IsError || extractText(result) == "" {
				t.Fatalf("expected an error result with a message")
			}
		})
	}
}

func TestGetAlerts(t *testing.T) {
	now := time.Now().UTC()
	ae := &fakeAlertEngine{alerts: []observability.Alert{
		{ID: "llm-auth", Condition: "llm_auth_failing", Severity: observability.SeverityHigh, Message: "rejected", TriggeredAt: now},
	}}
	conv, tasks := newConversation(t)
	result := callTool(t, NewServer(conv, tasks, nil, ae, "test"), "get_alerts", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	var out getAlertsOutput
	decode(t, result, &out)
	if out.Count != 1 || out.Alerts[0].Severity != "high" {
		t.Errorf("unexpected alerts %+v", out)
	}
}

func TestGetAlertsDisabled(t *testing.T) {
	conv, tasks := newConversation(t)
	result := callTool(t, NewServer(conv, tasks, nil, nil, "test"), "get_alerts", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error when alert engine is nil")
	}
}

// extractText extracts the text from the first TextContent in a CallToolResult.
func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
