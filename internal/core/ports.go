package core

import (
	"context"

	"github.com/valter-silva-au/kiya/pkg/models"
)

// KeyValueStore is an opaque string store with load/save semantics. A
// missing key is reported with ok=false rather than an error.
type KeyValueStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// LanguageModel completes a conversation. Implementations prepend the
// assistant persona themselves and fail with AuthError or UpstreamError.
type LanguageModel interface {
	Complete(ctx context.Context, turns []models.ChatTurn, credential string) (string, error)
}

// WebSearcher looks a query up on the web and fails with SearchError when
// no source could answer.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}
