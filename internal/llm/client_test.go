package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCompleteSendsPayloadAndDecodesResponse(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Fatalf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello there"}}]}`))
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := client.Complete(context.Background(), "test-model", []Message{
		System("be brief"),
		User(Text("hi")),
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "hello there" {
		t.Fatalf("Complete() = %q", got)
	}
	if captured["model"] != "test-model" {
		t.Fatalf("model = %v", captured["model"])
	}
	messages, ok := captured["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %#v", captured["messages"])
	}
}

func TestCompleteFailsOnHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.Complete(context.Background(), "m", []Message{User(Text("hi"))}); err == nil {
		t.Fatal("Complete() should fail on 429")
	}
}

func TestCompleteFailsOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.Complete(context.Background(), "m", []Message{User(Text("hi"))}); err == nil {
		t.Fatal("Complete() should fail on empty choices")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Fatal("New() should require base URL")
	}
	if _, err := New(Config{BaseURL: "http://x"}); err == nil {
		t.Fatal("New() should require api key")
	}
}

func TestMultimodalParts(t *testing.T) {
	image := Image([]byte{0xFF, 0xD8})
	if !strings.HasPrefix(image.ImageURL, "data:image/jpeg;base64,") {
		t.Fatalf("ImageURL = %q", image.ImageURL)
	}
	audio := Audio([]byte("RIFF"))
	if audio.InputAudio == "" || audio.Type != "input_audio" {
		t.Fatalf("audio part = %+v", audio)
	}
}
