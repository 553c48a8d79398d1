package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/valter-silva-au/kiya/pkg/models"
)

// --- Fakes shared by core tests ---

type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	setErr  error
	sets    int
	deletes int
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string]string{}} }

func (f *fakeKV) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.data, key)
	return nil
}

type fakeModel struct {
	mu       sync.Mutex
	calls    int
	lastKey  string
	lastTurn []models.ChatTurn
	fn       func(turns []models.ChatTurn) (string, error)
}

func (f *fakeModel) Complete(_ context.Context, turns []models.ChatTurn, key string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastKey = key
	f.lastTurn = turns
	f.mu.Unlock()
	if f.fn == nil {
		return "model reply", nil
	}
	return f.fn(turns)
}

type fakeSearch struct {
	calls     int
	lastQuery string
	fn        func(query string) ([]models.SearchResult, error)
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]models.SearchResult, error) {
	f.calls++
	f.lastQuery = query
	if f.fn == nil {
		return nil, &SearchError{Query: query, Err: errors.New("no sources")}
	}
	return f.fn(query)
}

type fakeCreds struct {
	key string
}

func (f *fakeCreds) Get() (string, bool) { return f.key, f.key != "" }
func (f *fakeCreds) Set(k string) error  { f.key = k; return nil }
func (f *fakeCreds) Clear() error        { f.key = ""; return nil }

type recordedEvent struct {
	Type string
	Data map[string]any
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) LogEvent(eventType string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Type: eventType, Data: data})
	return nil
}

func (f *fakeEvents) ofType(t string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeEngine records utterances. Speak completes only when finish is called,
// unless auto is set.
type fakeEngine struct {
	mu        sync.Mutex
	spoken    []Utterance
	cancels   int
	pending   []func(error)
	voices    []Voice
	listeners []func()
	speakErr  error
}

func (f *fakeEngine) Speak(u Utterance, done func(error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, u)
	f.pending = append(f.pending, done)
	return nil
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.cancels++
	f.mu.Unlock()
	for _, done := range pending {
		done(errors.New("cancelled"))
	}
}

func (f *fakeEngine) Voices() []Voice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Voice(nil), f.voices...)
}

func (f *fakeEngine) OnVoicesChanged(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

// finishAll completes every pending utterance naturally.
func (f *fakeEngine) finishAll() {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, done := range pending {
		done(nil)
	}
}

func (f *fakeEngine) setVoices(v []Voice) {
	f.mu.Lock()
	f.voices = v
	listeners := append([]func(){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }
