package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/pkg/models"
)

func TestGoogleSearchSource_Configured(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.GoogleSearchConfig
		want bool
	}{
		{"empty", models.GoogleSearchConfig{}, false},
		{"placeholders", models.GoogleSearchConfig{APIKey: "YOUR_GOOGLE_API_KEY", EngineID: "YOUR_SEARCH_ENGINE_ID"}, false},
		{"placeholder engine", models.GoogleSearchConfig{APIKey: "k", EngineID: "YOUR_SEARCH_ENGINE_ID"}, false},
		{"real", models.GoogleSearchConfig{APIKey: "k", EngineID: "cx"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewGoogleSearchSource(tt.cfg, 3, 0).Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGoogleSearchSource_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("cx") != "cx" || q.Get("q") != "go generics" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"items":[
			{"title":"A","link":"https://a","snippet":"first "},
			{"title":"B","link":"https://b","snippet":"second"},
			{"title":"C","link":"https://c","snippet":"third"},
			{"title":"D","link":"https://d","snippet":"fourth"}]}`))
	}))
	defer srv.Close()

	src := NewGoogleSearchSource(models.GoogleSearchConfig{APIKey: "k", EngineID: "cx", BaseURL: srv.URL}, 3, 0)
	results, err := src.Search(context.Background(), "go generics")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0] != (models.SearchResult{Title: "A", Link: "https://a", Snippet: "first", Source: SourceWeb}) {
		t.Errorf("unexpected first result %+v", results[0])
	}
}

func TestGoogleSearchSource_NoItemsIsEmptySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"searchInformation":{"totalResults":"0"}}`))
	}))
	defer srv.Close()

	src := NewGoogleSearchSource(models.GoogleSearchConfig{APIKey: "k", EngineID: "cx", BaseURL: srv.URL}, 3, 0)
	results, err := src.Search(context.Background(), "zzz")
	if err != nil || len(results) != 0 {
		t.Errorf("expected empty success, got %v, %v", results, err)
	}
}

func TestGoogleSearchSource_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewGoogleSearchSource(models.GoogleSearchConfig{APIKey: "k", EngineID: "cx", BaseURL: srv.URL}, 3, 0)
	if _, err := src.Search(context.Background(), "q"); !errors.Is(err, core.ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}

	unconfigured := NewGoogleSearchSource(models.GoogleSearchConfig{}, 3, 0)
	if _, err := unconfigured.Search(context.Background(), "q"); err == nil {
		t.Error("expected an error without credentials")
	}
}
