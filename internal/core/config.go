// Package core contains the assistant's business logic: intent
// classification, the escalation-chain router, the task store, conversation
// history, canned knowledge, speech control and configuration.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// ConfigFileName is the base name of the global configuration file.
const ConfigFileName = ".kiyaconfig"

// ConfigurationManager loads and validates .kiyaconfig.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration and KIYA_* environment overrides.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		AssistantName: "KIYA",
		LLM: models.LLMConfig{
			Model:   "gpt-4o",
			BaseURL: "https://api.openai.com/v1",
			Timeout: 60 * time.Second,
		},
		History: models.HistoryConfig{
			Window:    DefaultContextWindow,
			Namespace: DefaultHistoryNamespace,
		},
		Storage: models.StorageConfig{Backend: "file"},
		Search: models.SearchConfig{
			Timeout:    10 * time.Second,
			MaxResults: MaxFormattedResults,
			Wikipedia:  models.WikipediaConfig{Enabled: true, BaseURL: "https://en.wikipedia.org"},
			Google:     models.GoogleSearchConfig{BaseURL: "https://www.googleapis.com/customsearch/v1"},
		},
		Speech:        models.SpeechConfig{Enabled: false, Command: "say"},
		KnowledgeFile: "knowledge.yaml",
		Server: models.ServerConfig{
			Addr:           "127.0.0.1:8080",
			AllowedOrigins: []string{"*"},
		},
		Log:    models.LogConfig{Level: "info", Format: "console"},
		Alerts: models.AlertConfig{FallbackRate: 0.5, MinMessages: 10, AuthFailures: 3},
	}
}

// LoadGlobalConfig reads .kiyaconfig from the base path. Missing files and
// keys fall back to defaults; KIYA_* environment variables override both.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("KIYA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", "KIYA_LLM_API_KEY", "OPENAI_API_KEY")

	v.SetDefault("assistant.name", cfg.AssistantName)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("history.window", cfg.History.Window)
	v.SetDefault("history.namespace", cfg.History.Namespace)
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.path", "")
	v.SetDefault("search.timeout", cfg.Search.Timeout)
	v.SetDefault("search.max_results", cfg.Search.MaxResults)
	v.SetDefault("search.wikipedia.enabled", cfg.Search.Wikipedia.Enabled)
	v.SetDefault("search.wikipedia.base_url", cfg.Search.Wikipedia.BaseURL)
	v.SetDefault("search.google.api_key", "")
	v.SetDefault("search.google.engine_id", "")
	v.SetDefault("search.google.base_url", cfg.Search.Google.BaseURL)
	v.SetDefault("speech.enabled", cfg.Speech.Enabled)
	v.SetDefault("speech.command", cfg.Speech.Command)
	v.SetDefault("speech.voice", "")
	v.SetDefault("knowledge.file", cfg.KnowledgeFile)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("alerts.fallback_rate", cfg.Alerts.FallbackRate)
	v.SetDefault("alerts.min_messages", cfg.Alerts.MinMessages)
	v.SetDefault("alerts.auth_failures", cfg.Alerts.AuthFailures)
	v.SetDefault("notifications.slack.webhook_url", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
		// No config file: defaults plus environment.
	}

	cfg.AssistantName = v.GetString("assistant.name")
	cfg.LLM = models.LLMConfig{
		Model:   v.GetString("llm.model"),
		BaseURL: v.GetString("llm.base_url"),
		Timeout: v.GetDuration("llm.timeout"),
		APIKey:  v.GetString("llm.api_key"),
	}
	cfg.History = models.HistoryConfig{
		Window:    v.GetInt("history.window"),
		Namespace: v.GetString("history.namespace"),
	}
	cfg.Storage = models.StorageConfig{
		Backend: v.GetString("storage.backend"),
		Path:    v.GetString("storage.path"),
	}
	cfg.Search = models.SearchConfig{
		Timeout:    v.GetDuration("search.timeout"),
		MaxResults: v.GetInt("search.max_results"),
		Wikipedia: models.WikipediaConfig{
			Enabled: v.GetBool("search.wikipedia.enabled"),
			BaseURL: v.GetString("search.wikipedia.base_url"),
		},
		Google: models.GoogleSearchConfig{
			APIKey:   v.GetString("search.google.api_key"),
			EngineID: v.GetString("search.google.engine_id"),
			BaseURL:  v.GetString("search.google.base_url"),
		},
	}
	cfg.Speech = models.SpeechConfig{
		Enabled: v.GetBool("speech.enabled"),
		Command: v.GetString("speech.command"),
		Voice:   v.GetString("speech.voice"),
	}
	cfg.KnowledgeFile = v.GetString("knowledge.file")
	cfg.Server = models.ServerConfig{
		Addr:           v.GetString("server.addr"),
		AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
	}
	cfg.Log = models.LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Alerts = models.AlertConfig{
		FallbackRate: v.GetFloat64("alerts.fallback_rate"),
		MinMessages:  v.GetInt("alerts.min_messages"),
		AuthFailures: v.GetInt("alerts.auth_failures"),
	}
	cfg.Notifications.Slack.WebhookURL = v.GetString("notifications.slack.webhook_url")

	return cfg, nil
}

var (
	validBackends   = map[string]bool{"file": true, "sqlite": true, "memory": true}
	validLogLevels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	validLogFormats = map[string]bool{"console": true, "json": true}
)

// ValidateConfig checks cfg for invalid values and reports every problem
// found in one error.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if strings.TrimSpace(cfg.AssistantName) == "" {
		errs = append(errs, "assistant.name must not be empty")
	}
	if cfg.LLM.Model == "" {
		errs = append(errs, "llm.model must not be empty")
	}
	if cfg.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("llm.timeout must be positive, got %s", cfg.LLM.Timeout))
	}
	if cfg.History.Window <= 0 {
		errs = append(errs, fmt.Sprintf("history.window must be positive, got %d", cfg.History.Window))
	}
	if cfg.History.Namespace == "" {
		errs = append(errs, "history.namespace must not be empty")
	}
	if !validBackends[cfg.Storage.Backend] {
		errs = append(errs, fmt.Sprintf("storage.backend %q is invalid, must be one of: file, sqlite, memory", cfg.Storage.Backend))
	}
	if cfg.Search.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("search.timeout must be positive, got %s", cfg.Search.Timeout))
	}
	if cfg.Search.MaxResults <= 0 {
		errs = append(errs, fmt.Sprintf("search.max_results must be positive, got %d", cfg.Search.MaxResults))
	}
	if cfg.Speech.Enabled && cfg.Speech.Command == "" {
		errs = append(errs, "speech.command must be set when speech is enabled")
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid", cfg.Log.Level))
	}
	if !validLogFormats[cfg.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format %q is invalid, must be console or json", cfg.Log.Format))
	}
	if cfg.Alerts.FallbackRate < 0 || cfg.Alerts.FallbackRate > 1 {
		errs = append(errs, fmt.Sprintf("alerts.fallback_rate %v must be between 0 and 1", cfg.Alerts.FallbackRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
