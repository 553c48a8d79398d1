package core

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func newTestSpeech(engine *fakeEngine) *SpeechController {
	return NewSpeechController(engine, "", zerolog.Nop())
}

func TestSpeech_SpeakTransitions(t *testing.T) {
	e := &fakeEngine{}
	c := newTestSpeech(e)

	if c.State() != SpeechIdle {
		t.Fatalf("initial state = %s, want idle", c.State())
	}
	c.Speak("hello")
	if c.State() != SpeechSpeaking || c.Current() != "hello" {
		t.Fatalf("after Speak state = %s current = %q", c.State(), c.Current())
	}

	e.finishAll()
	if c.State() != SpeechIdle {
		t.Errorf("after completion state = %s, want idle", c.State())
	}
}

func TestSpeech_NewUtteranceSupersedesOld(t *testing.T) {
	e := &fakeEngine{}
	c := newTestSpeech(e)

	c.Speak("a")
	c.Speak("b")

	if c.State() != SpeechSpeaking || c.Current() != "b" {
		t.Fatalf("state = %s current = %q, want speaking b", c.State(), c.Current())
	}
	e.mu.Lock()
	pending := len(e.pending)
	e.mu.Unlock()
	if pending != 1 {
		t.Errorf("in-flight utterances = %d, want 1", pending)
	}

	c.Stop()
	if c.State() != SpeechIdle {
		t.Errorf("after Stop state = %s, want idle", c.State())
	}
}

func TestSpeech_StaleCallbackIgnored(t *testing.T) {
	e := &fakeEngine{}
	c := newTestSpeech(e)

	c.Speak("a")
	e.mu.Lock()
	staleDone := e.pending[0]
	e.pending = nil
	e.mu.Unlock()

	c.Speak("b")
	staleDone(nil) // late completion of "a"

	if c.State() != SpeechSpeaking || c.Current() != "b" {
		t.Errorf("stale callback changed state to %s/%q", c.State(), c.Current())
	}
}

func TestSpeech_MuteSuppressesSpeak(t *testing.T) {
	e := &fakeEngine{}
	c := newTestSpeech(e)

	if !c.ToggleMute() {
		t.Fatal("ToggleMute should return true when muting")
	}
	c.Speak("ignored")
	if c.State() != SpeechIdle {
		t.Errorf("state = %s, want idle while muted", c.State())
	}
	if len(e.spoken) != 0 {
		t.Errorf("engine spoke %d utterances while muted", len(e.spoken))
	}

	if c.ToggleMute() {
		t.Fatal("ToggleMute should return false when unmuting")
	}
	c.Speak("heard")
	if c.State() != SpeechSpeaking {
		t.Errorf("state = %s, want speaking after unmute", c.State())
	}
}

func TestSpeech_MutingWhileSpeakingStops(t *testing.T) {
	e := &fakeEngine{}
	c := newTestSpeech(e)

	c.Speak("long answer")
	cancelsBefore := e.cancels
	c.ToggleMute()

	if c.State() != SpeechIdle {
		t.Errorf("state = %s, want idle", c.State())
	}
	if e.cancels <= cancelsBefore {
		t.Error("muting while speaking should cancel the utterance")
	}
	if !c.IsMuted() {
		t.Error("IsMuted = false, want true")
	}
}

func TestSpeech_EngineErrorReturnsToIdle(t *testing.T) {
	e := &fakeEngine{speakErr: errors.New("no audio device")}
	c := newTestSpeech(e)

	c.Speak("hello")
	if c.State() != SpeechIdle {
		t.Errorf("state = %s, want idle after engine error", c.State())
	}
}

func TestSpeech_UtteranceProperties(t *testing.T) {
	e := &fakeEngine{voices: []Voice{{Name: "Alex", Lang: "en-US"}}}
	c := newTestSpeech(e)

	c.Speak("hi")
	u := e.spoken[0]
	if u.Rate != 1.0 || u.Pitch != 1.0 || u.Volume != 1.0 {
		t.Errorf("utterance = %+v, want rate/pitch/volume 1.0", u)
	}
	if u.Voice == nil || u.Voice.Name != "Alex" {
		t.Errorf("voice = %+v, want Alex", u.Voice)
	}
}

func TestSpeech_ReresolvesVoiceOnChange(t *testing.T) {
	e := &fakeEngine{}
	c := newTestSpeech(e)
	if c.Voice() != nil {
		t.Fatalf("voice = %+v, want nil with no voices", c.Voice())
	}

	e.setVoices([]Voice{{Name: "Daniel", Lang: "en-GB"}, {Name: "Samantha", Lang: "en-US"}})
	if v := c.Voice(); v == nil || v.Name != "Samantha" {
		t.Errorf("voice = %+v, want Samantha", v)
	}
}

func TestSpeech_NilEngine(t *testing.T) {
	c := NewSpeechController(nil, "", zerolog.Nop())
	c.Speak("x")
	c.Stop()
	if c.State() != SpeechIdle {
		t.Errorf("state = %s, want idle", c.State())
	}
	if !c.ToggleMute() {
		t.Error("mute flag should still toggle without an engine")
	}
}

func TestSelectVoice(t *testing.T) {
	tests := []struct {
		name      string
		voices    []Voice
		preferred string
		want      string
	}{
		{"empty", nil, "", ""},
		{"female hint", []Voice{{Name: "Alex", Lang: "en-US"}, {Name: "Google US English Female", Lang: "en-US"}}, "", "Google US English Female"},
		{"samantha case-insensitive", []Voice{{Name: "Thomas", Lang: "fr-FR"}, {Name: "SAMANTHA", Lang: "en-US"}}, "", "SAMANTHA"},
		{"english fallback", []Voice{{Name: "Thomas", Lang: "fr-FR"}, {Name: "Daniel", Lang: "en_GB"}}, "", "Daniel"},
		{"first fallback", []Voice{{Name: "Thomas", Lang: "fr-FR"}, {Name: "Anna", Lang: "de-DE"}}, "", "Thomas"},
		{"preferred wins", []Voice{{Name: "Samantha", Lang: "en-US"}, {Name: "Daniel", Lang: "en-GB"}}, "daniel", "Daniel"},
		{"unknown preferred ignored", []Voice{{Name: "Samantha", Lang: "en-US"}}, "Zed", "Samantha"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectVoice(tt.voices, tt.preferred)
			if tt.want == "" {
				if got != nil {
					t.Errorf("got %+v, want nil", got)
				}
				return
			}
			if got == nil || got.Name != tt.want {
				t.Errorf("got %+v, want %s", got, tt.want)
			}
		})
	}
}
