package cli

import (
	"github.com/rs/zerolog"

	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/internal/integration"
	"github.com/valter-silva-au/kiya/internal/observability"
	"github.com/valter-silva-au/kiya/internal/storage"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// Assistant service instances, set during app initialization in app.go.
var (
	BasePath      string
	Config        *models.GlobalConfig
	Conversation  *core.Conversation
	Tasks         core.TaskStore
	Credentials   core.CredentialStore
	KnowledgeFile storage.KnowledgeFileStore
	Logger        zerolog.Logger
)

// Health probing, set during app initialization in app.go.
var (
	Health        integration.HealthChecker
	HealthTargets []integration.ServiceEndpoint
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)
