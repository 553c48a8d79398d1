package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// SourceWikipedia labels results that came from the encyclopedia.
const SourceWikipedia = "Wikipedia"

const maxResponseBytes = 2 << 20

// WikipediaSource searches the MediaWiki API and enriches each hit with
// its page summary.
type WikipediaSource struct {
	baseURL    string
	limit      int
	httpClient *http.Client
}

// NewWikipediaSource creates a source rooted at baseURL, for example
// https://en.wikipedia.org, returning at most limit results.
func NewWikipediaSource(baseURL string, limit int, timeout time.Duration) *WikipediaSource {
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org"
	}
	if limit <= 0 {
		limit = core.MaxFormattedResults
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WikipediaSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the source label.
func (w *WikipediaSource) Name() string { return SourceWikipedia }

// Search returns up to limit articles for query. A summary that cannot be
// fetched leaves the cleaned search snippet in place.
func (w *WikipediaSource) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")
	params.Set("srlimit", fmt.Sprint(w.limit))

	body, err := getBody(ctx, w.httpClient, w.baseURL+"/w/api.php?"+params.Encode(), "wikipedia search")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, &core.UpstreamError{Op: "wikipedia search", Err: errors.New("malformed JSON")}
	}

	hits := gjson.GetBytes(body, "query.search").Array()
	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		title := hit.Get("title").String()
		if title == "" {
			continue
		}
		results = append(results, models.SearchResult{
			Title:   title,
			Link:    w.pageURL(title),
			Snippet: stripHTML(hit.Get("snippet").String()),
			Source:  SourceWikipedia,
		})
		if len(results) == w.limit {
			break
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			extract, link, err := w.summary(gctx, results[i].Title)
			if err != nil {
				return nil // Non-fatal: the search snippet stands in.
			}
			if extract != "" {
				results[i].Snippet = extract
			}
			if link != "" {
				results[i].Link = link
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (w *WikipediaSource) summary(ctx context.Context, title string) (extract, link string, err error) {
	endpoint := w.baseURL + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	body, err := getBody(ctx, w.httpClient, endpoint, "wikipedia summary")
	if err != nil {
		return "", "", err
	}
	doc := gjson.ParseBytes(body)
	return strings.TrimSpace(doc.Get("extract").String()), doc.Get("content_urls.desktop.page").String(), nil
}

func (w *WikipediaSource) pageURL(title string) string {
	return w.baseURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// stripHTML reduces a search snippet such as
// `the <span class="searchmatch">capital</span>` to its text.
func stripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// getBody performs a GET and returns the body of a 2xx response.
func getBody(ctx context.Context, client *http.Client, endpoint, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "kiya/1.0 (virtual assistant)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &core.UpstreamError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &core.UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	return body, nil
}
