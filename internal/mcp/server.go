// Package mcp provides an MCP (Model Context Protocol) server that lets
// other agents talk to the assistant and inspect its state as tools.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/internal/observability"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// Server wraps the assistant's services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	conv        *core.Conversation
	tasks       core.TaskStore
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server. metricsCalc and alertEngine may be
// nil if observability is disabled.
func NewServer(conv *core.Conversation, tasks core.TaskStore, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		conv:        conv,
		tasks:       tasks,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "kiya", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type sendMessageInput struct {
	Message string `json:"message" jsonschema:"required,what to say to the assistant, e.g. 'add task buy milk' or 'what is the capital of Peru'"`
}

type sendMessageOutput struct {
	Reply          string `json:"reply"`
	Stage          string `json:"stage"`
	Intent         string `json:"intent"`
	ModelAttempted bool   `json:"model_attempted"`
	MessageID      string `json:"message_id"`
}

type taskOutput struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at"`
}

type listTasksInput struct{}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type getHistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"return only the most recent N messages; 0 returns all"`
}

type messageOutput struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type getHistoryOutput struct {
	ConversationID string          `json:"conversation_id"`
	Messages       []messageOutput `json:"messages"`
	Count          int             `json:"count"`
}

type clearHistoryInput struct{}

type clearHistoryOutput struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	MessagesProcessed int            `json:"messages_processed"`
	ByStage           map[string]int `json:"by_stage"`
	ByIntent          map[string]int `json:"by_intent"`
	ModelAttempts     int            `json:"model_attempts"`
	ModelFailures     int            `json:"model_failures"`
	AuthFailures      int            `json:"auth_failures"`
	SearchFailures    int            `json:"search_failures"`
	FallbackRate      float64        `json:"fallback_rate"`
	TasksCreated      int            `json:"tasks_created"`
	TasksCompleted    int            `json:"tasks_completed"`
	AvgLatencyMs      float64        `json:"avg_latency_ms"`
	EventCount        int            `json:"event_count"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "send_message",
		Description: "Send a message to the assistant and return its reply. Task commands, canned answers, the language model and web search are tried in that order.",
	}, s.handleSendMessage)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List the tasks created in this session, numbered from 1 in creation order.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_history",
		Description: "Return the persisted conversation history, oldest first.",
	}, s.handleGetHistory)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "clear_history",
		Description: "Delete the conversation history and start a new conversation.",
	}, s.handleClearHistory)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log: messages per escalation stage, model fallback rate, failures and task counts.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (high fallback rate, rejected API key, search outage).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleSendMessage(ctx context.Context, _ *gomcp.CallToolRequest, input sendMessageInput) (*gomcp.CallToolResult, sendMessageOutput, error) {
	if s.conv == nil {
		return errorResult("conversation not available"), sendMessageOutput{}, nil
	}
	ex, err := s.conv.Submit(ctx, input.Message)
	if err != nil {
		return errorResult(fmt.Sprintf("sending message: %s", err)), sendMessageOutput{}, nil
	}
	return nil, sendMessageOutput{
		Reply:          ex.Reply.Content,
		Stage:          string(ex.Outcome.Stage),
		Intent:         ex.Outcome.Intent,
		ModelAttempted: ex.Outcome.ModelAttempted,
		MessageID:      ex.Reply.ID,
	}, nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, _ listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	if s.tasks == nil {
		return errorResult("task store not available"), listTasksOutput{Tasks: []taskOutput{}}, nil
	}
	tasks := s.tasks.ListTasks()
	out := listTasksOutput{
		Tasks: make([]taskOutput, len(tasks)),
		Count: len(tasks),
	}
	for i, t := range tasks {
		out.Tasks[i] = taskToOutput(i+1, t)
	}
	return nil, out, nil
}

func (s *Server) handleGetHistory(_ context.Context, _ *gomcp.CallToolRequest, input getHistoryInput) (*gomcp.CallToolResult, getHistoryOutput, error) {
	if s.conv == nil {
		return errorResult("conversation not available"), getHistoryOutput{Messages: []messageOutput{}}, nil
	}
	if input.Limit < 0 {
		return errorResult("limit must not be negative"), getHistoryOutput{Messages: []messageOutput{}}, nil
	}

	h := s.conv.History()
	var msgs []models.Message
	if input.Limit > 0 {
		msgs = h.Window(input.Limit)
	} else {
		msgs = h.Messages()
	}

	out := getHistoryOutput{
		ConversationID: h.ConversationID(),
		Messages:       make([]messageOutput, len(msgs)),
		Count:          len(msgs),
	}
	for i, m := range msgs {
		out.Messages[i] = messageOutput{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func (s *Server) handleClearHistory(_ context.Context, _ *gomcp.CallToolRequest, _ clearHistoryInput) (*gomcp.CallToolResult, clearHistoryOutput, error) {
	if s.conv == nil {
		return errorResult("conversation not available"), clearHistoryOutput{}, nil
	}
	id := s.conv.StartNew()
	return nil, clearHistoryOutput{ConversationID: id, Message: "conversation history cleared"}, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := observability.ParseSince(sinceStr, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	m, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		MessagesProcessed: m.MessagesProcessed,
		ByStage:           m.ByStage,
		ByIntent:          m.ByIntent,
		ModelAttempts:     m.ModelAttempts,
		ModelFailures:     m.ModelFailures,
		AuthFailures:      m.AuthFailures,
		SearchFailures:    m.SearchFailures,
		FallbackRate:      m.FallbackRate,
		TasksCreated:      m.TasksCreated,
		TasksCompleted:    m.TasksCompleted,
		AvgLatencyMs:      m.AvgLatencyMs,
		EventCount:        m.EventCount,
	}
	if m.OldestEvent != nil {
		out.OldestEvent = m.OldestEvent.Format(time.RFC3339)
	}
	if m.NewestEvent != nil {
		out.NewestEvent = m.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (observability may be disabled)"), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(index int, t models.Task) taskOutput {
	return taskOutput{
		Index:     index,
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		ByStage:  make(map[string]int),
		ByIntent: make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
