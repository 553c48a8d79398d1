package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/kiya/pkg/models"
	"gopkg.in/yaml.v3"
)

// KnowledgeFileStore reads and writes the canned-answer file knowledge.yaml.
type KnowledgeFileStore interface {
	// Load returns the entries in the file. ok is false when the file does
	// not exist, in which case built-in defaults should be used.
	Load() (entries []models.KnowledgeEntry, ok bool, err error)
	Save(entries []models.KnowledgeEntry) error
	Path() string
}

type yamlKnowledgeFile struct {
	path string
}

// NewKnowledgeFileStore creates a KnowledgeFileStore for path.
func NewKnowledgeFileStore(path string) KnowledgeFileStore {
	return &yamlKnowledgeFile{path: path}
}

func (k *yamlKnowledgeFile) Path() string { return k.path }

func (k *yamlKnowledgeFile) Load() ([]models.KnowledgeEntry, bool, error) {
	data, err := os.ReadFile(k.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading knowledge file: %w", err)
	}

	var f models.KnowledgeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("parsing knowledge file %s: %w", k.path, err)
	}
	for i, e := range f.Entries {
		if e.Answer == "" || len(e.Patterns) == 0 {
			return nil, false, fmt.Errorf("knowledge entry %d (%q) needs patterns and an answer", i, e.Name)
		}
	}
	return f.Entries, true, nil
}

func (k *yamlKnowledgeFile) Save(entries []models.KnowledgeEntry) error {
	data, err := yaml.Marshal(models.KnowledgeFile{Entries: entries})
	if err != nil {
		return fmt.Errorf("encoding knowledge file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(k.path), 0o755); err != nil {
		return fmt.Errorf("creating knowledge directory: %w", err)
	}
	return os.WriteFile(k.path, data, 0o600)
}
