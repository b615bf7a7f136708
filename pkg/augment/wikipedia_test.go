package augment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newMockWikipedia serves both the MediaWiki api.php and REST summary
// endpoints from a single test server.
func newMockWikipedia(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Errorf("missing User-Agent")
		}
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("list") == "search":
			if q.Get("srsearch") == "nothing" {
				w.Write([]byte(`{"query":{"search":[]}}`))
				return
			}
			// Ranked with the higher page id first.
			w.Write([]byte(`{"query":{"search":[
				{"title":"Go (programming language)","pageid":25039021},
				{"title":"Gopher","pageid":12}
			]}}`))
		case q.Get("prop") == "extracts|info":
			if q.Get("pageids") != "25039021|12" {
				t.Errorf("pageids = %q", q.Get("pageids"))
			}
			w.Write([]byte(`{"query":{"pages":{
				"12":{"pageid":12,"title":"Gopher","extract":"A rodent.","fullurl":"https://en.wikipedia.org/wiki/Gopher"},
				"25039021":{"pageid":25039021,"title":"Go (programming language)","extract":"Go is a language.","fullurl":"https://en.wikipedia.org/wiki/Go_(programming_language)"}
			}}}`))
		default:
			http.Error(w, "unexpected query", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/api/rest_v1/page/summary/{title}", func(w http.ResponseWriter, r *http.Request) {
		title := r.PathValue("title")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"title":   title,
			"extract": "Summary of " + title,
			"content_urls": map[string]any{
				"desktop": map[string]any{"page": "https://en.wikipedia.org/wiki/" + strings.ReplaceAll(title, " ", "_")},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestWikipediaSearch(t *testing.T) {
	srv := newMockWikipedia(t)
	w := NewWikipedia(srv.URL+"/w/api.php", srv.URL+"/api/rest_v1", "")

	results, err := w.Search(context.Background(), "golang", 3)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Go (programming language)" {
		t.Errorf("results should keep search rank, first = %q", results[0].Title)
	}
	if results[1].URL != "https://en.wikipedia.org/wiki/Gopher" {
		t.Errorf("URL = %q", results[1].URL)
	}
}

func TestWikipediaSearchNoHits(t *testing.T) {
	srv := newMockWikipedia(t)
	w := NewWikipedia(srv.URL+"/w/api.php", "", "")

	results, err := w.Search(context.Background(), "nothing", 3)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestWikipediaSummaries(t *testing.T) {
	srv := newMockWikipedia(t)
	w := NewWikipedia(srv.URL+"/w/api.php", srv.URL+"/api/rest_v1", "")

	results, err := w.Summaries(context.Background(), "golang", 5)
	if err != nil {
		t.Fatalf("Summaries() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Go (programming language)" || results[0].Extract != "Summary of Go (programming language)" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].URL != "https://en.wikipedia.org/wiki/Gopher" {
		t.Errorf("URL = %q", results[1].URL)
	}
}

func TestWikipediaBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	w := NewWikipedia(srv.URL, "", "")
	if _, err := w.Search(context.Background(), "golang", 3); err == nil {
		t.Fatal("expected error for 503 response")
	}

	a := &SearchAugmenter{Backend: "wikipedia", Searcher: w}
	if got := a.Lookup(context.Background(), "golang"); got != "" {
		t.Errorf("Lookup() = %q, want empty", got)
	}
}

func TestWikipediaMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	w := NewWikipedia(srv.URL, "", "")
	if _, err := w.Search(context.Background(), "golang", 3); err == nil {
		t.Fatal("expected decode error")
	}
}
