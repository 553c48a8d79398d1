package core

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// DefaultHistoryNamespace is the key conversation state is stored under.
const DefaultHistoryNamespace = "jarvis-chat-storage"

// ConversationHistory is the ordered, persisted log of exchanged messages.
// Every mutation is saved immediately; save failures are logged and the
// in-memory state is kept.
type ConversationHistory interface {
	Append(msg models.Message)
	// Delete removes the message with the given id. Unknown ids are a no-op.
	Delete(id string) bool
	Clear()
	// Window returns a copy of the last n messages in original order.
	Window(n int) []models.Message
	Messages() []models.Message
	Len() int
	ConversationID() string
	SetConversationID(id string)
	Load() error
	Save() error
}

// historyEnvelope is the persisted document layout.
type historyEnvelope struct {
	State   historyState `json:"state"`
	Version int          `json:"version"`
}

type historyState struct {
	Messages       []models.Message `json:"messages"`
	ConversationID *string          `json:"conversationId"`
}

type persistedHistory struct {
	mu             sync.RWMutex
	saveMu         sync.Mutex // orders snapshot+write pairs
	store          KeyValueStore
	key            string
	messages       []models.Message
	conversationID string
	log            zerolog.Logger
}

// NewConversationHistory creates a history persisted under key in store.
// Call Load to restore previously saved state.
func NewConversationHistory(store KeyValueStore, key string, log zerolog.Logger) ConversationHistory {
	if key == "" {
		key = DefaultHistoryNamespace
	}
	return &persistedHistory{store: store, key: key, log: log.With().Str("component", "history").Logger()}
}

// NewMessage builds a message with a fresh id.
func NewMessage(role models.Role, content string, now time.Time) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      role,
		Timestamp: now.UTC(),
	}
}

func (h *persistedHistory) Append(msg models.Message) {
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()
	h.persist()
}

func (h *persistedHistory) Delete(id string) bool {
	h.mu.Lock()
	idx := -1
	for i, m := range h.messages {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		h.mu.Unlock()
		return false
	}
	h.messages = append(h.messages[:idx:idx], h.messages[idx+1:]...)
	h.mu.Unlock()
	h.persist()
	return true
}

func (h *persistedHistory) Clear() {
	h.mu.Lock()
	h.messages = nil
	h.mu.Unlock()
	h.persist()
}

func (h *persistedHistory) Window(n int) []models.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 {
		return []models.Message{}
	}
	start := len(h.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]models.Message, len(h.messages)-start)
	copy(out, h.messages[start:])
	return out
}

func (h *persistedHistory) Messages() []models.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *persistedHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

func (h *persistedHistory) ConversationID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conversationID
}

func (h *persistedHistory) SetConversationID(id string) {
	h.mu.Lock()
	h.conversationID = id
	h.mu.Unlock()
	h.persist()
}

// Load replaces the in-memory state with the stored document. An absent key
// yields an empty history. An unreadable or malformed value also yields an
// empty history and is reported as a PersistenceError.
func (h *persistedHistory) Load() error {
	raw, ok, err := h.store.Get(h.key)
	if err != nil {
		h.reset()
		return &PersistenceError{Op: "loading history", Key: h.key, Err: err}
	}
	if !ok || raw == "" {
		h.reset()
		return nil
	}

	var env historyEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		h.reset()
		return &PersistenceError{Op: "decoding history", Key: h.key, Err: err}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = env.State.Messages
	h.conversationID = ""
	if env.State.ConversationID != nil {
		h.conversationID = *env.State.ConversationID
	}
	return nil
}

// Save writes the current state to the store.
func (h *persistedHistory) Save() error {
	h.saveMu.Lock()
	defer h.saveMu.Unlock()

	h.mu.RLock()
	env := historyEnvelope{State: historyState{Messages: h.messages}}
	if env.State.Messages == nil {
		env.State.Messages = []models.Message{}
	}
	if h.conversationID != "" {
		id := h.conversationID
		env.State.ConversationID = &id
	}
	data, err := json.Marshal(env)
	h.mu.RUnlock()
	if err != nil {
		return &PersistenceError{Op: "encoding history", Key: h.key, Err: err}
	}

	if err := h.store.Set(h.key, string(data)); err != nil {
		return &PersistenceError{Op: "saving history", Key: h.key, Err: fmt.Errorf("writing store: %w", err)}
	}
	return nil
}

func (h *persistedHistory) persist() {
	if err := h.Save(); err != nil {
		h.log.Error().Err(err).Msg("history write discarded")
	}
}

func (h *persistedHistory) reset() {
	h.mu.Lock()
	h.messages = nil
	h.conversationID = ""
	h.mu.Unlock()
}
