package models

// Stage records how far a message travelled through the escalation chain.
type Stage string

const (
	StageMatchedTask      Stage = "matched-task"
	StageMatchedKnowledge Stage = "matched-knowledge"
	StageModelSuccess     Stage = "model-success"
	// StageSearchSuccess covers both a failed and a skipped model call.
	StageSearchSuccess Stage = "model-failed-search-success"
	StageAllFailed     Stage = "all-failed"
)

// Outcome is the result of routing one message.
type Outcome struct {
	Stage          Stage  `json:"stage"`
	Intent         string `json:"intent"`
	Text           string `json:"text"`
	ModelAttempted bool   `json:"model_attempted"`
}
