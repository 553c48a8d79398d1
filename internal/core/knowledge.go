package core

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/valter-silva-au/kiya/pkg/models"
)

const helpAnswer = `I can help you with various tasks. Try these commands:
- "Add task [description]" - Create a new task
- "List tasks" - Show all your tasks
- "Complete task [number or name]" - Mark a task as complete
- Ask me about the time, weather, or just chat with me!`

// DefaultKnowledgeEntries returns the built-in canned answers. Every entry
// matches only the whole utterance, so a question that merely mentions the
// time or asks for help with something still reaches the model.
func DefaultKnowledgeEntries() []models.KnowledgeEntry {
	return []models.KnowledgeEntry{
		{Name: "greeting", Patterns: []string{"hello", "hi", "hey", "good morning", "good evening"}, Answer: "Hello! How can I assist you today?", Exact: true},
		{Name: "wellbeing", Patterns: []string{"how are you", "how are you doing", "how are you today"}, Answer: "I am functioning optimally. Thank you for asking.", Exact: true},
		{Name: "weather", Patterns: []string{"weather", "what's the weather", "what is the weather", "what's the weather like", "what is the weather like", "how is the weather"}, Answer: "I currently don't have access to real-time weather data, but I can help you with many other requests.", Exact: true},
		{Name: "time", Patterns: []string{"what time is it", "what's the time", "what is the time", "current time", "tell me the time"}, Answer: "The current time is {time}.", Exact: true},
		{Name: "identity", Patterns: []string{"what's your name", "what is your name", "who are you"}, Answer: "I am {name}, your virtual assistant.", Exact: true},
		{Name: "help", Patterns: []string{"help", "what can you do"}, Answer: helpAnswer, Exact: true},
	}
}

// KnowledgeMatch is a resolved canned answer.
type KnowledgeMatch struct {
	Name   string
	Answer string
}

type compiledEntry struct {
	entry    models.KnowledgeEntry
	patterns []*regexp.Regexp
	exact    []string
}

// KnowledgeBase answers a fixed set of questions without leaving the
// process. It is immutable after construction and safe for concurrent use.
type KnowledgeBase struct {
	entries []compiledEntry
	name    string
	now     Clock
}

// NewKnowledgeBase compiles entries in order; earlier entries win. name
// fills the {name} placeholder and now fills {time}.
func NewKnowledgeBase(entries []models.KnowledgeEntry, name string, now Clock) *KnowledgeBase {
	if now == nil {
		now = time.Now
	}
	kb := &KnowledgeBase{name: name, now: now}
	for _, e := range entries {
		ce := compiledEntry{entry: e}
		for _, p := range e.Patterns {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				continue
			}
			if e.Exact {
				ce.exact = append(ce.exact, normalizeUtterance(p))
				continue
			}
			ce.patterns = append(ce.patterns, regexp.MustCompile(`(^|[^\pL\pN])`+regexp.QuoteMeta(p)+`($|[^\pL\pN])`))
		}
		kb.entries = append(kb.entries, ce)
	}
	return kb
}

// Lookup returns the first entry matching message.
func (kb *KnowledgeBase) Lookup(message string) (KnowledgeMatch, bool) {
	lower := strings.ToLower(message)
	norm := normalizeUtterance(lower)
	for _, ce := range kb.entries {
		if ce.matches(lower, norm) {
			return KnowledgeMatch{Name: ce.entry.Name, Answer: kb.render(ce.entry.Answer)}, true
		}
	}
	return KnowledgeMatch{}, false
}

// Entries returns a copy of the configured entries.
func (kb *KnowledgeBase) Entries() []models.KnowledgeEntry {
	out := make([]models.KnowledgeEntry, len(kb.entries))
	for i, ce := range kb.entries {
		out[i] = ce.entry
	}
	return out
}

func (ce compiledEntry) matches(lower, norm string) bool {
	for _, e := range ce.exact {
		if norm == e {
			return true
		}
	}
	for _, re := range ce.patterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func (kb *KnowledgeBase) render(answer string) string {
	r := strings.NewReplacer(
		"{time}", kb.now().Format("3:04:05 PM"),
		"{name}", kb.name,
	)
	return r.Replace(answer)
}

// normalizeUtterance trims surrounding punctuation and collapses inner
// whitespace so "Hi!" and "  hi " compare equal to "hi".
func normalizeUtterance(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return strings.Join(strings.Fields(s), " ")
}
