// Package internal provides the App struct that wires all components of the
// KIYA assistant together and initializes the CLI layer.
package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/valter-silva-au/kiya/internal/cli"
	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/internal/integration"
	"github.com/valter-silva-au/kiya/internal/observability"
	"github.com/valter-silva-au/kiya/internal/storage"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// HomeEnv overrides the base directory.
const HomeEnv = "KIYA_HOME"

// App holds all service dependencies for the assistant.
type App struct {
	BasePath string
	Config   *models.GlobalConfig
	Logger   zerolog.Logger

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	KV            storage.KeyValueStore
	KnowledgeFile storage.KnowledgeFileStore

	// Core services
	Tasks        core.TaskStore
	History      core.ConversationHistory
	Credentials  core.CredentialStore
	Knowledge    *core.KnowledgeBase
	Router       core.MessageRouter
	Speech       *core.SpeechController
	Conversation *core.Conversation

	// Integration services
	Model  *integration.OpenAIChat
	Search *integration.WebSearch
	Health integration.HealthChecker

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier

	logFile *os.File
}

// NewApp creates and wires all components of the assistant. basePath is the
// directory holding .kiyaconfig, the key-value store, the knowledge file and
// the event log.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", basePath, err)
	}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Logging ---
	// Logs go to a file so the chat terminal stays clean.
	var logOut io.Writer = os.Stderr
	if f, err := observability.OpenLogFile(filepath.Join(basePath, "logs")); err == nil {
		app.logFile = f
		logOut = f
	}
	app.Logger = observability.NewLogger(cfg.Log, logOut)
	log := app.Logger

	// --- Storage ---
	app.KV, err = storage.Open(cfg.Storage, basePath)
	if err != nil {
		app.closeLog()
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
	}
	app.KnowledgeFile = storage.NewKnowledgeFileStore(resolvePath(basePath, cfg.KnowledgeFile))

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, ".kiya_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		log.Warn().Err(err).Str("path", eventLogPath).Msg("event log disabled")
		app.EventLog = nil
	}
	var events core.EventLogger
	if app.EventLog != nil {
		events = observability.NewRecorder(app.EventLog)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, observability.ThresholdsFromConfig(cfg.Alerts))
	}
	if cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL, cfg.AssistantName)
	}

	// --- Core services ---
	app.Tasks = core.NewTaskStore(time.Now)
	app.Credentials = core.NewCredentialStore(app.KV, cfg.LLM.APIKey)

	app.History = core.NewConversationHistory(app.KV, cfg.History.Namespace, log)
	if err := app.History.Load(); err != nil {
		// Non-fatal: a corrupt history starts empty.
		log.Error().Err(err).Msg("loading conversation history")
	}

	entries, ok, err := app.KnowledgeFile.Load()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("loading knowledge: %w", err)
	}
	if !ok {
		entries = core.DefaultKnowledgeEntries()
	}
	app.Knowledge = core.NewKnowledgeBase(entries, cfg.AssistantName, time.Now)

	// --- Integration services ---
	app.Model = integration.NewOpenAIChat(integration.OpenAIChatConfig{
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	})

	var sources []integration.SearchSource
	if cfg.Search.Wikipedia.Enabled {
		sources = append(sources, integration.NewWikipediaSource(cfg.Search.Wikipedia.BaseURL, cfg.Search.MaxResults, cfg.Search.Timeout))
	}
	sources = append(sources, integration.NewGoogleSearchSource(cfg.Search.Google, cfg.Search.MaxResults, cfg.Search.Timeout))
	app.Search = integration.NewWebSearch(log, sources...)

	if cfg.Speech.Enabled {
		engine := integration.NewCommandSpeechEngine(cfg.Speech.Command)
		if engine.Available() {
			app.Speech = core.NewSpeechController(engine, cfg.Speech.Voice, log)
		} else {
			// Non-fatal: replies are still shown as text.
			log.Warn().Str("command", cfg.Speech.Command).Msg("speech command not found, speech disabled")
		}
	}

	app.Health = integration.NewHealthChecker(5 * time.Second)

	app.Router = core.NewRouter(core.RouterDeps{
		Tasks:       app.Tasks,
		Knowledge:   app.Knowledge,
		Model:       app.Model,
		Search:      app.Search,
		Credentials: app.Credentials,
		Events:      events,
		Logger:      log,
		Window:      cfg.History.Window,
	})
	app.Conversation = core.NewConversation(app.History, app.Router, app.Speech, cfg.History.Window, time.Now)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Logger = log
	cli.Conversation = app.Conversation
	cli.Tasks = app.Tasks
	cli.Credentials = app.Credentials
	cli.KnowledgeFile = app.KnowledgeFile
	cli.Health = app.Health
	cli.HealthTargets = healthTargets(cfg)

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// healthTargets lists the upstream endpoints "kiya doctor" probes.
func healthTargets(cfg *models.GlobalConfig) []integration.ServiceEndpoint {
	targets := []integration.ServiceEndpoint{
		{Name: "language model", URL: strings.TrimSuffix(cfg.LLM.BaseURL, "/") + "/models"},
	}
	if cfg.Search.Wikipedia.Enabled {
		targets = append(targets, integration.ServiceEndpoint{Name: "wikipedia", URL: strings.TrimSuffix(cfg.Search.Wikipedia.BaseURL, "/") + "/w/api.php"})
	}
	if google := integration.NewGoogleSearchSource(cfg.Search.Google, cfg.Search.MaxResults, cfg.Search.Timeout); google.Configured() {
		targets = append(targets, integration.ServiceEndpoint{Name: "google search", URL: google.Endpoint()})
	}
	return targets
}

// Close stops speech and releases the event log, the key-value store and
// the log file. It is safe to call on a partially built App.
func (a *App) Close() error {
	var errs []string
	if a.Speech != nil {
		a.Speech.Stop()
	}
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if a.KV != nil {
		if err := a.KV.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	a.closeLog()
	if len(errs) > 0 {
		return fmt.Errorf("closing app: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (a *App) closeLog() {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

// ResolveBasePath determines the KIYA home directory. It checks KIYA_HOME,
// then walks up from the working directory looking for .kiyaconfig, and
// falls back to ~/.kiya.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	if dir, err := os.Getwd(); err == nil {
		for {
			if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
				return dir
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".kiya")
	}
	return "."
}

func resolvePath(basePath, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(basePath, path)
}
