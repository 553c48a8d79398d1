package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// DefaultContextWindow is how many prior messages are sent to the model.
const DefaultContextWindow = 10

// Reply texts that do not depend on state.
const (
	ApologyText        = "I'm sorry, I couldn't process your request. Please try again in a moment."
	missingTitleText   = "Please specify a task title. For example: 'Add task Buy groceries'"
	taskNotFoundText   = "I couldn't find that task. Try 'List tasks' to see all your tasks."
	taskCreatedFormat  = "✅ Task created: \"%s\""
	taskCompleteFormat = "✅ Marked task \"%s\" as complete"
)

// MessageRouter classifies inbound messages and resolves them to a reply.
// Neither method returns an error: every failure ends in readable text.
type MessageRouter interface {
	Process(ctx context.Context, message string, history []models.Message) string
	Resolve(ctx context.Context, message string, history []models.Message) models.Outcome
}

// RouterDeps are the collaborators of the router. Tasks is required; a nil
// Model or Search skips that escalation stage.
type RouterDeps struct {
	Tasks       TaskStore
	Knowledge   *KnowledgeBase
	Model       LanguageModel
	Search      WebSearcher
	Credentials CredentialStore
	Events      EventLogger
	Logger      zerolog.Logger
	Window      int
	Now         Clock
}

type router struct {
	deps RouterDeps
	log  zerolog.Logger
}

// NewRouter creates a MessageRouter over deps.
func NewRouter(deps RouterDeps) MessageRouter {
	if deps.Window <= 0 {
		deps.Window = DefaultContextWindow
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Tasks == nil {
		deps.Tasks = NewTaskStore(deps.Now)
	}
	return &router{deps: deps, log: deps.Logger.With().Str("component", "router").Logger()}
}

func (r *router) Process(ctx context.Context, message string, history []models.Message) string {
	return r.Resolve(ctx, message, history).Text
}

func (r *router) Resolve(ctx context.Context, message string, history []models.Message) (out models.Outcome) {
	start := r.deps.Now()
	cls := Classify(message, r.deps.Knowledge)

	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Str("intent", cls.Intent.String()).Msg("recovered while routing message")
			out = models.Outcome{Stage: models.StageAllFailed, Text: ApologyText, ModelAttempted: out.ModelAttempted}
		}
		out.Intent = cls.Intent.String()
		logEvent(r.deps.Events, "message.processed", map[string]any{
			"stage":           string(out.Stage),
			"intent":          out.Intent,
			"model_attempted": out.ModelAttempted,
			"duration_ms":     r.deps.Now().Sub(start).Milliseconds(),
		})
		r.log.Debug().Str("stage", string(out.Stage)).Str("intent", out.Intent).Msg("message resolved")
	}()

	switch cls.Intent {
	case IntentAddTask:
		return r.addTask(cls.Argument)
	case IntentListTasks:
		return models.Outcome{Stage: models.StageMatchedTask, Text: FormatTaskList(r.deps.Tasks.ListTasks())}
	case IntentCompleteTask:
		return r.completeTask(cls.Argument)
	case IntentKnowledge:
		return models.Outcome{Stage: models.StageMatchedKnowledge, Text: cls.Knowledge.Answer}
	default:
		return r.escalate(ctx, message, history)
	}
}

func (r *router) addTask(title string) models.Outcome {
	task, err := r.deps.Tasks.AddTask(title)
	if err != nil {
		return models.Outcome{Stage: models.StageMatchedTask, Text: missingTitleText}
	}
	logEvent(r.deps.Events, "task.created", map[string]any{"task_id": task.ID})
	return models.Outcome{Stage: models.StageMatchedTask, Text: fmt.Sprintf(taskCreatedFormat, task.Title)}
}

// completeTask tries the argument as a 1-based index first and falls back to
// a title search only when that fails.
func (r *router) completeTask(arg string) models.Outcome {
	if n, ok := leadingInt(arg); ok {
		if task, err := r.deps.Tasks.CompleteByIndex(n); err == nil {
			return r.completed(task)
		}
	}
	task, err := r.deps.Tasks.CompleteByTitleSubstring(arg)
	if err != nil {
		return models.Outcome{Stage: models.StageMatchedTask, Text: taskNotFoundText}
	}
	return r.completed(task)
}

func (r *router) completed(task models.Task) models.Outcome {
	logEvent(r.deps.Events, "task.completed", map[string]any{"task_id": task.ID})
	return models.Outcome{Stage: models.StageMatchedTask, Text: fmt.Sprintf(taskCompleteFormat, task.Title)}
}

// escalate walks model, then web search, then the static apology.
func (r *router) escalate(ctx context.Context, message string, history []models.Message) models.Outcome {
	var out models.Outcome

	if r.deps.Model != nil && r.deps.Credentials != nil {
		if key, ok := r.deps.Credentials.Get(); ok {
			out.ModelAttempted = true
			text, err := r.deps.Model.Complete(ctx, r.contextTurns(message, history), key)
			if err == nil && strings.TrimSpace(text) != "" {
				out.Stage, out.Text = models.StageModelSuccess, text
				return out
			}
			if err == nil {
				err = &UpstreamError{Op: "completing chat", Err: errors.New("empty completion")}
			}
			r.log.Warn().Err(err).Str("stage", "model").Msg("language model failed, falling back to web search")
			logEvent(r.deps.Events, "llm.failed", map[string]any{"auth": errors.Is(err, ErrAuth), "error": err.Error()})
		}
	}

	if r.deps.Search != nil {
		results, err := r.deps.Search.Search(ctx, message)
		if err == nil {
			out.Stage, out.Text = models.StageSearchSuccess, FormatSearchResults(message, results)
			return out
		}
		r.log.Warn().Err(err).Str("stage", "search").Msg("web search failed, replying with apology")
		logEvent(r.deps.Events, "search.failed", map[string]any{"error": err.Error()})
	}

	out.Stage, out.Text = models.StageAllFailed, ApologyText
	return out
}

// contextTurns maps the last Window prior messages to chat turns and
// appends the new user message.
func (r *router) contextTurns(message string, history []models.Message) []models.ChatTurn {
	if len(history) > r.deps.Window {
		history = history[len(history)-r.deps.Window:]
	}
	turns := models.Turns(history)
	return append(turns, models.ChatTurn{Role: models.RoleUser, Content: message})
}

// leadingInt parses the run of ASCII digits at the start of s.
func leadingInt(s string) (int, bool) {
	n, digits := 0, 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		digits++
		if digits > 9 {
			return 0, false
		}
	}
	return n, digits > 0 && n > 0
}
