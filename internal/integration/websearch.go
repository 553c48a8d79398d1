package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// SearchSource is one backend consulted by WebSearch.
type SearchSource interface {
	Name() string
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// configurable is implemented by sources that may be switched off by
// missing credentials.
type configurable interface {
	Configured() bool
}

// WebSearch fans a query out to every configured source and concatenates
// their results in source order, so the encyclopedia comes first.
type WebSearch struct {
	sources []SearchSource
	log     zerolog.Logger
}

var _ core.WebSearcher = (*WebSearch)(nil)

// NewWebSearch creates a composite searcher over sources, most trusted
// first.
func NewWebSearch(log zerolog.Logger, sources ...SearchSource) *WebSearch {
	return &WebSearch{sources: sources, log: log.With().Str("component", "websearch").Logger()}
}

// Search fails with SearchError only when no source answered. A source
// that answered with zero results still counts as an answer.
func (s *WebSearch) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	active := make([]SearchSource, 0, len(s.sources))
	for _, src := range s.sources {
		if c, ok := src.(configurable); ok && !c.Configured() {
			continue
		}
		active = append(active, src)
	}
	if len(active) == 0 {
		return nil, &core.SearchError{Query: query, Err: errors.New("no search source configured")}
	}

	perSource := make([][]models.SearchResult, len(active))
	errs := make([]error, len(active))

	// Sources fail independently, so one failure never cancels the others.
	var g errgroup.Group
	for i, src := range active {
		g.Go(func() error {
			res, err := src.Search(ctx, query)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				return nil
			}
			perSource[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var results []models.SearchResult
	answered := 0
	for i := range active {
		if errs[i] != nil {
			s.log.Warn().Err(errs[i]).Str("source", active[i].Name()).Msg("search source failed")
			continue
		}
		answered++
		results = append(results, perSource[i]...)
	}
	if answered == 0 {
		return nil, &core.SearchError{Query: query, Err: errors.Join(errs...)}
	}
	return results, nil
}
