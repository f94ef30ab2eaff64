package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearchSendsQueryAndDecodesResults(t *testing.T) {
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Go","url":"https://go.dev","content":"the go language","score":0.9}
		]}`))
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, APIKey: "k", MaxResults: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := client.Search(context.Background(), "golang")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotPayload["query"] != "golang" || gotPayload["api_key"] != "k" || gotPayload["max_results"] != float64(2) {
		t.Fatalf("payload = %#v", gotPayload)
	}
	if len(results) != 1 || results[0].URL != "https://go.dev" {
		t.Fatalf("results = %#v", results)
	}
}

func TestSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL, APIKey: "k"})
	if _, err := client.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Fatal("expected base URL error")
	}
	if _, err := New(Config{BaseURL: "http://x"}); err == nil {
		t.Fatal("expected api key error")
	}
}

func TestRenderContext(t *testing.T) {
	if RenderContext(nil) != "" {
		t.Fatal("empty results should render empty")
	}
	rendered := RenderContext([]Result{
		{Title: "A", URL: "http://a", Content: "alpha"},
		{Title: "B", URL: "http://b", Content: "beta"},
	})
	for _, needle := range []string{"[1] A (http://a)", "alpha", "[2] B (http://b)", "beta"} {
		if !strings.Contains(rendered, needle) {
			t.Fatalf("rendered missing %q:\n%s", needle, rendered)
		}
	}
}
