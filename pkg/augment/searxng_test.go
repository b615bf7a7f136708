package augment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// searxngHandler returns a handler that serves a fixed set of SearXNG results.
func searxngHandler(results []searxngResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := searxngResponse{Results: results}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func TestSearXNGSearch(t *testing.T) {
	server := httptest.NewServer(searxngHandler([]searxngResult{
		{Title: "<b>Go</b> Programming", URL: "https://go.dev", Content: "The <em>Go</em> programming language"},
		{Title: "Go Tutorial", URL: "https://go.dev/tour", Content: "A tour of Go"},
		{Title: "Go Docs", URL: "https://go.dev/doc", Content: "Documentation for Go"},
	}))
	defer server.Close()

	s := NewSearXNG(server.URL + "/")
	results, err := s.Search(context.Background(), "golang", 2)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Go Programming" {
		t.Errorf("Title = %q, want HTML stripped", results[0].Title)
	}
	if results[0].Extract != "The Go programming language" {
		t.Errorf("Extract = %q, want HTML stripped", results[0].Extract)
	}
}

func TestSearXNGBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := NewSearXNG(server.URL).Search(context.Background(), "golang", 3); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestStripHTML(t *testing.T) {
	tests := map[string]string{
		"plain":                  "plain",
		"<b>bold</b>":            "bold",
		"  <p>spaced</p>  ":      "spaced",
		"a <a href='x'>link</a>": "a link",
	}
	for in, want := range tests {
		if got := stripHTML(in); got != want {
			t.Errorf("stripHTML(%q) = %q, want %q", in, got, want)
		}
	}
}
