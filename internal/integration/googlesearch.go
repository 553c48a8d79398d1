package integration

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// SourceWeb labels results that came from the general search service.
const SourceWeb = "Web"

// Placeholder credentials shipped in sample configs. They count as unset.
const (
	placeholderGoogleKey    = "YOUR_GOOGLE_API_KEY"
	placeholderGoogleEngine = "YOUR_SEARCH_ENGINE_ID"
)

// GoogleSearchSource queries the Google Custom Search JSON API.
type GoogleSearchSource struct {
	apiKey     string
	engineID   string
	endpoint   string
	limit      int
	httpClient *http.Client
}

// NewGoogleSearchSource creates the source. Without usable credentials it
// reports itself unconfigured and is skipped by WebSearch.
func NewGoogleSearchSource(cfg models.GoogleSearchConfig, limit int, timeout time.Duration) *GoogleSearchSource {
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = "https://www.googleapis.com/customsearch/v1"
	}
	if limit <= 0 {
		limit = core.MaxFormattedResults
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleSearchSource{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		engineID:   strings.TrimSpace(cfg.EngineID),
		endpoint:   endpoint,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the source label.
func (g *GoogleSearchSource) Name() string { return SourceWeb }

// Endpoint returns the Custom Search URL queries are sent to.
func (g *GoogleSearchSource) Endpoint() string { return g.endpoint }

// Configured reports whether real credentials are present.
func (g *GoogleSearchSource) Configured() bool {
	return g.apiKey != "" && g.apiKey != placeholderGoogleKey &&
		g.engineID != "" && g.engineID != placeholderGoogleEngine
}

// Search returns up to limit items. A response without items is an empty,
// successful result.
func (g *GoogleSearchSource) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if !g.Configured() {
		return nil, &core.UpstreamError{Op: "google search", Err: errors.New("credentials not configured")}
	}

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)

	body, err := getBody(ctx, g.httpClient, g.endpoint+"?"+params.Encode(), "google search")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, &core.UpstreamError{Op: "google search", Err: errors.New("malformed JSON")}
	}

	var results []models.SearchResult
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		results = append(results, models.SearchResult{
			Title:   item.Get("title").String(),
			Link:    item.Get("link").String(),
			Snippet: strings.TrimSpace(item.Get("snippet").String()),
			Source:  SourceWeb,
		})
		return len(results) < g.limit
	})
	return results, nil
}
