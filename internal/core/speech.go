package core

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Voice is a synthesizer voice offered by the speech platform.
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// Utterance is one unit of synthesized speech.
type Utterance struct {
	Text   string
	Voice  *Voice
	Rate   float64
	Pitch  float64
	Volume float64
}

// SpeechEngine is the platform speech capability. Speak starts an utterance
// and returns immediately; done is called once when it ends naturally, fails
// or is cancelled. Cancel stops whatever is in flight.
type SpeechEngine interface {
	Speak(u Utterance, done func(err error)) error
	Cancel()
	Voices() []Voice
	OnVoicesChanged(fn func())
}

// SpeechState is the controller's externally visible state.
type SpeechState int

const (
	SpeechIdle SpeechState = iota
	SpeechSpeaking
)

func (s SpeechState) String() string {
	if s == SpeechSpeaking {
		return "speaking"
	}
	return "idle"
}

var femaleVoiceHints = []string{"female", "woman", "samantha", "lisa", "google us english female"}

// SelectVoice picks the preferred voice: an exact name match for preferred,
// then a voice whose name suggests a female speaker, then any English voice,
// then the first voice. It returns nil when voices is empty.
func SelectVoice(voices []Voice, preferred string) *Voice {
	if len(voices) == 0 {
		return nil
	}
	pick := func(match func(Voice) bool) *Voice {
		for i := range voices {
			if match(voices[i]) {
				v := voices[i]
				return &v
			}
		}
		return nil
	}
	if preferred != "" {
		if v := pick(func(v Voice) bool { return strings.EqualFold(v.Name, preferred) }); v != nil {
			return v
		}
	}
	if v := pick(func(v Voice) bool {
		name := strings.ToLower(v.Name)
		for _, h := range femaleVoiceHints {
			if strings.Contains(name, h) {
				return true
			}
		}
		return false
	}); v != nil {
		return v
	}
	if v := pick(func(v Voice) bool {
		return strings.Contains(v.Lang, "en-") || strings.Contains(v.Lang, "en_")
	}); v != nil {
		return v
	}
	v := voices[0]
	return &v
}

// SpeechController serializes utterances so at most one is in flight and
// tracks the mute flag. A nil engine makes every call a no-op.
type SpeechController struct {
	op sync.Mutex // serializes Speak, Stop and ToggleMute

	mu        sync.Mutex
	engine    SpeechEngine
	state     SpeechState
	muted     bool
	gen       uint64
	current   string
	voice     *Voice
	preferred string
	log       zerolog.Logger
}

// NewSpeechController creates a controller over engine and resolves the
// preferred voice now and whenever the engine reports a voice change.
func NewSpeechController(engine SpeechEngine, preferredVoice string, log zerolog.Logger) *SpeechController {
	c := &SpeechController{
		engine:    engine,
		preferred: preferredVoice,
		log:       log.With().Str("component", "speech").Logger(),
	}
	if engine != nil {
		c.resolveVoice()
		engine.OnVoicesChanged(c.resolveVoice)
	}
	return c
}

func (c *SpeechController) resolveVoice() {
	v := SelectVoice(c.engine.Voices(), c.preferred)
	c.mu.Lock()
	c.voice = v
	c.mu.Unlock()
}

// Speak supersedes any in-flight utterance with text. It does nothing while
// muted.
func (c *SpeechController) Speak(text string) {
	if c.engine == nil || strings.TrimSpace(text) == "" {
		return
	}
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	if c.muted {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	c.state = SpeechSpeaking
	c.current = text
	u := Utterance{Text: text, Voice: c.voice, Rate: 1.0, Pitch: 1.0, Volume: 1.0}
	c.mu.Unlock()

	c.engine.Cancel()
	if err := c.engine.Speak(u, func(err error) { c.finish(gen, err) }); err != nil {
		c.finish(gen, err)
	}
}

// finish returns to idle unless a newer utterance or a stop has already
// superseded gen.
func (c *SpeechController) finish(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if err != nil {
		c.log.Debug().Err(err).Msg("utterance ended with error")
	}
	c.state = SpeechIdle
	c.current = ""
}

// Stop cancels any in-flight utterance and forces the idle state.
func (c *SpeechController) Stop() {
	if c.engine == nil {
		return
	}
	c.op.Lock()
	defer c.op.Unlock()
	c.stopLocked()
}

func (c *SpeechController) stopLocked() {
	c.engine.Cancel()
	c.mu.Lock()
	c.gen++
	c.state = SpeechIdle
	c.current = ""
	c.mu.Unlock()
}

// ToggleMute flips the mute flag, stopping speech when muting mid-utterance.
// It returns the new flag.
func (c *SpeechController) ToggleMute() bool {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	stop := c.state == SpeechSpeaking && !c.muted
	c.mu.Unlock()
	if stop && c.engine != nil {
		c.stopLocked()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = !c.muted
	return c.muted
}

// State reports whether an utterance is in flight.
func (c *SpeechController) State() SpeechState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsMuted reports the mute flag.
func (c *SpeechController) IsMuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Current returns the text of the in-flight utterance, if any.
func (c *SpeechController) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Voice returns the resolved voice, or nil when the engine offers none.
func (c *SpeechController) Voice() *Voice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voice
}
