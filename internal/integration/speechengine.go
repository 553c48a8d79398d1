package integration

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/valter-silva-au/kiya/internal/core"
)

// ErrSpeechUnavailable is returned when no synthesizer command can be run.
var ErrSpeechUnavailable = errors.New("speech synthesizer unavailable")

// Base speaking rate in words per minute at Utterance.Rate 1.0.
const baseWordsPerMinute = 175

// CommandSpeechEngine implements core.SpeechEngine by running a
// text-to-speech command: macOS `say` or `espeak`/`espeak-ng`. Which
// flag dialect is used is decided by the command's base name.
type CommandSpeechEngine struct {
	command string
	espeak  bool

	mu        sync.Mutex
	cancel    context.CancelFunc
	voices    []core.Voice
	loaded    bool
	listeners []func()
}

var _ core.SpeechEngine = (*CommandSpeechEngine)(nil)

// NewCommandSpeechEngine creates an engine around command, which may be a
// bare name resolved through PATH or an absolute path.
func NewCommandSpeechEngine(command string) *CommandSpeechEngine {
	if command == "" {
		command = "say"
	}
	return &CommandSpeechEngine{
		command: command,
		espeak:  strings.HasPrefix(filepath.Base(command), "espeak"),
	}
}

// Available reports whether the synthesizer command can be found.
func (e *CommandSpeechEngine) Available() bool {
	_, err := exec.LookPath(e.command)
	return err == nil
}

// Speak starts the synthesizer and returns once it is running. done
// receives nil on a clean exit and the process error otherwise, including
// after Cancel.
func (e *CommandSpeechEngine) Speak(u core.Utterance, done func(err error)) error {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, e.command, e.args(u)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: starting %s: %v", ErrSpeechUnavailable, e.command, err)
	}

	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	go func() {
		err := cmd.Wait()
		cancel()
		if err != nil && stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		if done != nil {
			done(err)
		}
	}()
	return nil
}

// Cancel kills the utterance in flight, if any.
func (e *CommandSpeechEngine) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Voices returns the synthesizer's voices, enumerating them on first use.
func (e *CommandSpeechEngine) Voices() []core.Voice {
	e.mu.Lock()
	loaded := e.loaded
	voices := e.voices
	e.mu.Unlock()
	if loaded {
		return voices
	}
	return e.Refresh()
}

// OnVoicesChanged registers fn to run after every Refresh.
func (e *CommandSpeechEngine) OnVoicesChanged(fn func()) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

// Refresh re-enumerates voices and notifies listeners. Enumeration
// failures leave an empty list.
func (e *CommandSpeechEngine) Refresh() []core.Voice {
	voices := e.listVoices()

	e.mu.Lock()
	e.voices = voices
	e.loaded = true
	listeners := append([]func(){}, e.listeners...)
	e.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return voices
}

func (e *CommandSpeechEngine) listVoices() []core.Voice {
	var args []string
	if e.espeak {
		args = []string{"--voices"}
	} else {
		args = []string{"-v", "?"}
	}
	out, err := exec.Command(e.command, args...).Output()
	if err != nil {
		return nil
	}
	if e.espeak {
		return parseEspeakVoices(out)
	}
	return parseSayVoices(out)
}

func (e *CommandSpeechEngine) args(u core.Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	wpm := strconv.Itoa(int(rate * baseWordsPerMinute))

	var args []string
	if e.espeak {
		// espeak selects voices by language identifier.
		if u.Voice != nil && u.Voice.Lang != "" {
			args = append(args, "-v", u.Voice.Lang)
		}
		args = append(args, "-s", wpm)
		if u.Pitch > 0 {
			args = append(args, "-p", strconv.Itoa(clamp(int(u.Pitch*50), 0, 99)))
		}
		if u.Volume > 0 {
			args = append(args, "-a", strconv.Itoa(clamp(int(u.Volume*100), 0, 200)))
		}
	} else {
		if u.Voice != nil {
			args = append(args, "-v", u.Voice.Name)
		}
		args = append(args, "-r", wpm)
	}
	return append(args, "--", u.Text)
}

// sayVoiceLine matches `Alex                en_US    # Most people recognize me by my voice.`
var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`)

func parseSayVoices(out []byte) []core.Voice {
	var voices []core.Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := sayVoiceLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		voices = append(voices, core.Voice{Name: strings.TrimSpace(m[1]), Lang: strings.ReplaceAll(m[2], "_", "-")})
	}
	return voices
}

// parseEspeakVoices reads the `espeak --voices` table:
// `Pty Language Age/Gender VoiceName File Other Languages`.
func parseEspeakVoices(out []byte) []core.Voice {
	var voices []core.Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		voices = append(voices, core.Voice{Name: fields[3], Lang: fields[1]})
	}
	return voices
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
