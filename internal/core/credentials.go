package core

import "strings"

// CredentialKey is the store key holding the language-model API key.
const CredentialKey = "kiya_openai_api_key"

// CredentialStore keeps the single language-model API key. Absence of a
// key is a normal state that routes escalation straight to web search.
type CredentialStore interface {
	Get() (string, bool)
	Set(key string) error
	Clear() error
}

type kvCredentialStore struct {
	store    KeyValueStore
	fallback string
}

// NewCredentialStore stores the key in kv. fallback, typically from
// configuration or the environment, is returned when nothing is stored.
func NewCredentialStore(kv KeyValueStore, fallback string) CredentialStore {
	return &kvCredentialStore{store: kv, fallback: strings.TrimSpace(fallback)}
}

func (c *kvCredentialStore) Get() (string, bool) {
	v, ok, err := c.store.Get(CredentialKey)
	if err == nil && ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}
	if c.fallback != "" {
		return c.fallback, true
	}
	return "", false
}

func (c *kvCredentialStore) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &ValidationError{Field: "api key", Reason: "must not be empty"}
	}
	if err := c.store.Set(CredentialKey, key); err != nil {
		return &PersistenceError{Op: "saving credential", Key: CredentialKey, Err: err}
	}
	return nil
}

func (c *kvCredentialStore) Clear() error {
	if err := c.store.Delete(CredentialKey); err != nil {
		return &PersistenceError{Op: "clearing credential", Key: CredentialKey, Err: err}
	}
	return nil
}
