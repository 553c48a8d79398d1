package models

// KnowledgeEntry maps one or more question patterns to a canned answer.
// Answers may contain the {time} placeholder.
type KnowledgeEntry struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	Answer   string   `yaml:"answer"`
	// Exact entries match only when the whole message equals a pattern.
	Exact bool `yaml:"exact,omitempty"`
}

// KnowledgeFile is the on-disk layout of knowledge.yaml.
type KnowledgeFile struct {
	Entries []KnowledgeEntry `yaml:"entries"`
}
