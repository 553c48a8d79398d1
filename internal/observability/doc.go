// Package observability records what the assistant does. It persists
// structured events as JSON Lines, derives escalation-chain metrics and
// health alerts from them on demand, and configures the zerolog loggers
// used across the application.
package observability
