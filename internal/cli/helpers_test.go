package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/internal/storage"
	"github.com/valter-silva-au/kiya/pkg/models"
)

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

type silentEngine struct{}

func (silentEngine) Speak(core.Utterance, func(error)) error { return nil }
func (silentEngine) Cancel()                                 {}
func (silentEngine) Voices() []core.Voice                    { return []core.Voice{{Name: "Samantha", Lang: "en-US"}} }
func (silentEngine) OnVoicesChanged(func())                  {}

// useTestServices wires real in-memory services into the package variables
// and restores the previous values when the test ends.
func useTestServices(t *testing.T, withSpeech bool) {
	t.Helper()

	origBase, origCfg, origConv := BasePath, Config, Conversation
	origTasks, origCreds, origKF := Tasks, Credentials, KnowledgeFile
	origHealth, origTargets := Health, HealthTargets
	origMetrics, origAlerts, origNotifier := MetricsCalc, AlertEngine, Notifier
	t.Cleanup(func() {
		BasePath, Config, Conversation = origBase, origCfg, origConv
		Tasks, Credentials, KnowledgeFile = origTasks, origCreds, origKF
		Health, HealthTargets = origHealth, origTargets
		MetricsCalc, AlertEngine, Notifier = origMetrics, origAlerts, origNotifier
	})

	now := func() time.Time { return fixedNow }
	kv := storage.NewMemoryKVStore()
	tasks := core.NewTaskStore(now)
	creds := core.NewCredentialStore(kv, "")
	history := core.NewConversationHistory(kv, core.DefaultHistoryNamespace, zerolog.Nop())
	router := core.NewRouter(core.RouterDeps{
		Tasks:       tasks,
		Knowledge:   core.NewKnowledgeBase(core.DefaultKnowledgeEntries(), "KIYA", now),
		Credentials: creds,
		Logger:      zerolog.Nop(),
		Now:         now,
	})
	var speech *core.SpeechController
	if withSpeech {
		speech = core.NewSpeechController(silentEngine{}, "", zerolog.Nop())
	}

	BasePath = t.TempDir()
	Config = &models.GlobalConfig{AssistantName: "KIYA"}
	Conversation = core.NewConversation(history, router, speech, 0, now)
	Tasks = tasks
	Credentials = creds
	KnowledgeFile = storage.NewKnowledgeFileStore(filepath.Join(BasePath, "knowledge.yaml"))
	Health = nil
	HealthTargets = nil
	MetricsCalc = nil
	AlertEngine = nil
	Notifier = nil
}

// run executes cmd's RunE with output captured.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	t.Cleanup(func() { cmd.SetOut(nil) })
	err := cmd.RunE(cmd, args)
	return out.String(), err
}
