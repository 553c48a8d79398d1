package models

import "time"

// LLMConfig configures the hosted language-model adapter. Sampling
// parameters are fixed in the adapter and deliberately absent here.
type LLMConfig struct {
	Model   string        `yaml:"model" mapstructure:"model"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	APIKey  string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// HistoryConfig configures conversation persistence and context windowing.
type HistoryConfig struct {
	Window    int    `yaml:"window" mapstructure:"window"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// GoogleSearchConfig holds Custom Search credentials.
type GoogleSearchConfig struct {
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	EngineID string `yaml:"engine_id" mapstructure:"engine_id"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
}

// WikipediaConfig configures the encyclopedia source.
type WikipediaConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SearchConfig configures the web search adapter.
type SearchConfig struct {
	Timeout    time.Duration      `yaml:"timeout" mapstructure:"timeout"`
	MaxResults int                `yaml:"max_results" mapstructure:"max_results"`
	Wikipedia  WikipediaConfig    `yaml:"wikipedia" mapstructure:"wikipedia"`
	Google     GoogleSearchConfig `yaml:"google" mapstructure:"google"`
}

// SpeechConfig configures spoken output.
type SpeechConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Command string `yaml:"command" mapstructure:"command"`
	Voice   string `yaml:"voice,omitempty" mapstructure:"voice"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AlertConfig holds thresholds for escalation-chain health alerts.
type AlertConfig struct {
	FallbackRate float64 `yaml:"fallback_rate" mapstructure:"fallback_rate"`
	MinMessages  int     `yaml:"min_messages" mapstructure:"min_messages"`
	AuthFailures int     `yaml:"auth_failures" mapstructure:"auth_failures"`
}

// SlackConfig holds the webhook used for alert notifications.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig configures alert delivery.
type NotificationConfig struct {
	Slack SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// GlobalConfig holds system-wide settings read from .kiyaconfig via Viper.
type GlobalConfig struct {
	AssistantName string             `yaml:"assistant_name" mapstructure:"assistant_name"`
	LLM           LLMConfig          `yaml:"llm" mapstructure:"llm"`
	History       HistoryConfig      `yaml:"history" mapstructure:"history"`
	Storage       StorageConfig      `yaml:"storage" mapstructure:"storage"`
	Search        SearchConfig       `yaml:"search" mapstructure:"search"`
	Speech        SpeechConfig       `yaml:"speech" mapstructure:"speech"`
	KnowledgeFile string             `yaml:"knowledge_file" mapstructure:"knowledge_file"`
	Server        ServerConfig       `yaml:"server" mapstructure:"server"`
	Log           LogConfig          `yaml:"log" mapstructure:"log"`
	Alerts        AlertConfig        `yaml:"alerts" mapstructure:"alerts"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}
