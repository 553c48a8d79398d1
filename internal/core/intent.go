package core

import (
	"strings"
)

// Intent is the classified purpose of an inbound message.
type Intent int

const (
	IntentEscalate Intent = iota
	IntentAddTask
	IntentListTasks
	IntentCompleteTask
	IntentKnowledge
)

func (i Intent) String() string {
	switch i {
	case IntentAddTask:
		return "add_task"
	case IntentListTasks:
		return "list_tasks"
	case IntentCompleteTask:
		return "complete_task"
	case IntentKnowledge:
		return "knowledge"
	default:
		return "escalate"
	}
}

var (
	addTaskPhrases      = []string{"add task", "create task"}
	listTasksPhrases    = []string{"list tasks", "show tasks"}
	completeTaskPhrases = []string{"complete task", "mark task done"}
)

// Classification is the result of classifying a message. Argument holds the
// message with the matched command phrase removed and surrounding space
// trimmed; it is empty for intents that take no argument.
type Classification struct {
	Intent    Intent
	Argument  string
	Knowledge *KnowledgeMatch
}

// Classify determines the intent of message. Task commands are matched by
// case-insensitive substring containment in a fixed order; the first match
// wins. If kb is non-nil it is consulted before falling back to escalation.
func Classify(message string, kb *KnowledgeBase) Classification {
	lower := strings.ToLower(message)

	if containsAny(lower, addTaskPhrases) {
		return Classification{Intent: IntentAddTask, Argument: stripPhrase(message, addTaskPhrases)}
	}
	if containsAny(lower, listTasksPhrases) {
		return Classification{Intent: IntentListTasks}
	}
	if containsAny(lower, completeTaskPhrases) {
		return Classification{Intent: IntentCompleteTask, Argument: stripPhrase(message, completeTaskPhrases)}
	}
	if kb != nil {
		if m, ok := kb.Lookup(message); ok {
			return Classification{Intent: IntentKnowledge, Knowledge: &m}
		}
	}
	return Classification{Intent: IntentEscalate}
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// stripPhrase removes the leftmost occurrence of any phrase, ignoring case,
// and trims the remainder.
func stripPhrase(message string, phrases []string) string {
	lower := strings.ToLower(message)
	best, bestLen := -1, 0
	for _, p := range phrases {
		if i := strings.Index(lower, p); i >= 0 && (best < 0 || i < best) {
			best, bestLen = i, len(p)
		}
	}
	if best < 0 {
		return strings.TrimSpace(message)
	}
	// Offsets from the lowered string are only valid when lowering kept the
	// byte length; otherwise fall back to a rune-aware search.
	if len(lower) != len(message) {
		return strings.TrimSpace(foldRemove(message, lower[best:best+bestLen]))
	}
	return strings.TrimSpace(message[:best] + message[best+bestLen:])
}

// foldRemove removes the first case-insensitive occurrence of phrase.
func foldRemove(message, phrase string) string {
	runes := []rune(message)
	n := len([]rune(phrase))
	for i := 0; i+n <= len(runes); i++ {
		if strings.EqualFold(string(runes[i:i+n]), phrase) {
			return string(runes[:i]) + string(runes[i+n:])
		}
	}
	return message
}
