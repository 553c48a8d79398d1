package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/valter-silva-au/kiya/internal/core"
)

func wikiServer(t *testing.T, search string, summaries map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/w/api.php":
			if r.URL.Query().Get("list") != "search" || r.URL.Query().Get("srsearch") == "" {
				t.Errorf("unexpected search query %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(search))
		case strings.HasPrefix(r.URL.Path, "/api/rest_v1/page/summary/"):
			title := strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/summary/")
			body, ok := summaries[title]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(body))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

const wikiSearchBody = `{"query":{"search":[
 {"title":"Paris","snippet":"<span class=\"searchmatch\">Paris</span> is the capital &amp; largest city"},
 {"title":"Paris Hilton","snippet":"American media personality"},
 {"title":"Paris Agreement","snippet":"climate treaty"},
 {"title":"Paris Commune","snippet":"1871"}
]}}`

func TestWikipediaSource_Search(t *testing.T) {
	srv := wikiServer(t, wikiSearchBody, map[string]string{
		"Paris":         `{"extract":"Paris is the capital of France.","content_urls":{"desktop":{"page":"https://en.wikipedia.org/wiki/Paris"}}}`,
		"Paris_Hilton": `{"extract":"Paris Hilton is an American media personality."}`,
	})

	results, err := NewWikipediaSource(srv.URL, 3, 0).Search(context.Background(), "capital of France")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected limit of 3 results, got %d", len(results))
	}

	if results[0].Snippet != "Paris is the capital of France." {
		t.Errorf("expected summary extract, got %q", results[0].Snippet)
	}
	if results[0].Link != "https://en.wikipedia.org/wiki/Paris" {
		t.Errorf("expected summary link, got %q", results[0].Link)
	}
	if results[2].Snippet != "climate treaty" {
		t.Errorf("missing summary should keep the snippet, got %q", results[2].Snippet)
	}
	if results[2].Link != srv.URL+"/wiki/Paris_Agreement" {
		t.Errorf("expected derived page link, got %q", results[2].Link)
	}
	for _, r := range results {
		if r.Source != SourceWikipedia {
			t.Errorf("source = %q", r.Source)
		}
	}
}

func TestWikipediaSource_Failures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		_, err := NewWikipediaSource(srv.URL, 3, 0).Search(context.Background(), "x")
		if !errors.Is(err, core.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
	})
	t.Run("malformed body", func(t *testing.T) {
		srv := wikiServer(t, `not json`, nil)
		_, err := NewWikipediaSource(srv.URL, 3, 0).Search(context.Background(), "x")
		if !errors.Is(err, core.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
	})
	t.Run("no hits", func(t *testing.T) {
		srv := wikiServer(t, `{"query":{"search":[]}}`, nil)
		results, err := NewWikipediaSource(srv.URL, 3, 0).Search(context.Background(), "x")
		if err != nil || len(results) != 0 {
			t.Errorf("expected empty success, got %v, %v", results, err)
		}
	})
}

func TestStripHTML(t *testing.T) {
	tests := map[string]string{
		`plain text`: "plain text",
		`<span class="searchmatch">Paris</span> is  big`: "Paris is big",
		`Tom &amp; Jerry`: "Tom & Jerry",
	}
	for in, want := range tests {
		if got := stripHTML(in); got != want {
			t.Errorf("stripHTML(%q) = %q, want %q", in, got, want)
		}
	}
}
