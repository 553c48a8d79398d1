package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// Exchange is one completed user/assistant round trip.
type Exchange struct {
	User    models.Message `json:"user"`
	Reply   models.Message `json:"reply"`
	Outcome models.Outcome `json:"outcome"`
}

// Conversation ties a history to a router and serializes submissions so
// history order always matches submission order.
type Conversation struct {
	mu      sync.Mutex
	history ConversationHistory
	router  MessageRouter
	speech  *SpeechController
	window  int
	now     Clock
}

// NewConversation creates a Conversation. speech may be nil.
func NewConversation(history ConversationHistory, router MessageRouter, speech *SpeechController, window int, now Clock) *Conversation {
	if window <= 0 {
		window = DefaultContextWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Conversation{history: history, router: router, speech: speech, window: window, now: now}
}

// Submit appends the user's text, resolves a reply, appends it and hands it
// to speech output. Concurrent calls are processed one at a time. Only
// blank input is rejected; routing failures come back as apology text.
func (c *Conversation) Submit(ctx context.Context, text string) (Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Exchange{}, &ValidationError{Field: "message", Reason: "must not be empty"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.history.ConversationID() == "" {
		c.history.SetConversationID(uuid.NewString())
	}

	// The window is captured before the new message is appended.
	window := c.history.Window(c.window)
	user := NewMessage(models.RoleUser, text, c.now())
	c.history.Append(user)

	outcome := c.router.Resolve(ctx, text, window)
	if strings.TrimSpace(outcome.Text) == "" {
		outcome.Text = ApologyText
	}
	reply := NewMessage(models.RoleAssistant, outcome.Text, c.now())
	c.history.Append(reply)

	if c.speech != nil {
		c.speech.Speak(reply.Content)
	}
	return Exchange{User: user, Reply: reply, Outcome: outcome}, nil
}

// StartNew clears the history and begins a new conversation id.
func (c *Conversation) StartNew() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.speech != nil {
		c.speech.Stop()
	}
	c.history.Clear()
	id := uuid.NewString()
	c.history.SetConversationID(id)
	return id
}

// History exposes the underlying history for listing and deletion.
func (c *Conversation) History() ConversationHistory { return c.history }

// Speech returns the speech controller, which may be nil.
func (c *Conversation) Speech() *SpeechController { return c.speech }
