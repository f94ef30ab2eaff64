package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("chatmesh-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.LLM.ChatModel != "mistral-small-latest" {
		t.Fatalf("LLM.ChatModel = %q", cfg.LLM.ChatModel)
	}
	if cfg.LLM.AudioModel != "voxtral-mini-latest" {
		t.Fatalf("LLM.AudioModel = %q", cfg.LLM.AudioModel)
	}
	if cfg.Index.TopK != 5 {
		t.Fatalf("Index.TopK = %d", cfg.Index.TopK)
	}
	if cfg.History.Enabled {
		t.Fatal("History.Enabled should default to false")
	}
	if cfg.Search.MaxResults != 3 {
		t.Fatalf("Search.MaxResults = %d", cfg.Search.MaxResults)
	}
	if cfg.Limits.ChunkSize != 1000 || cfg.Limits.ChunkOverlap != 200 {
		t.Fatalf("Limits = %+v", cfg.Limits)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"CHATMESH_PROFILE": "prod"})
	cfg, err := Load("chatmesh-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Archive.UseSSL {
		t.Fatal("Archive.UseSSL should default to true in prod")
	}
	if cfg.Archive.AutoCreateBucket {
		t.Fatal("Archive.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"CHATMESH_HTTP_ADDR":            ":9191",
		"CHATMESH_LLM_BASE_URL":         "http://localhost:9999",
		"CHATMESH_LLM_CHAT_MODEL":       "test-model",
		"CHATMESH_LLM_TIMEOUT":          "5s",
		"CHATMESH_LLM_TEMPERATURE":      "0.4",
		"CHATMESH_HISTORY_ENABLED":      "true",
		"CHATMESH_HISTORY_RECENT_TURNS": "8",
		"CHATMESH_QUERY_ROW_LIMIT":      "500",
		"CHATMESH_LOG_LEVEL":            "warn",
	})
	cfg, err := Load("chatmesh-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":9191" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.LLM.BaseURL != "http://localhost:9999" {
		t.Fatalf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.ChatModel != "test-model" {
		t.Fatalf("LLM.ChatModel = %q", cfg.LLM.ChatModel)
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Fatalf("LLM.Timeout = %v", cfg.LLM.Timeout)
	}
	if cfg.LLM.Temperature != 0.4 {
		t.Fatalf("LLM.Temperature = %v", cfg.LLM.Temperature)
	}
	if !cfg.History.Enabled || cfg.History.RecentTurns != 8 {
		t.Fatalf("History = %+v", cfg.History)
	}
	if cfg.Limits.QueryRowLimit != 500 {
		t.Fatalf("Limits.QueryRowLimit = %d", cfg.Limits.QueryRowLimit)
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{"CHATMESH_PROFILE": "staging"})
	if _, err := Load("chatmesh-api", lookup); err == nil {
		t.Fatal("Load() should reject unknown profile")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad duration":  {"CHATMESH_LLM_TIMEOUT": "fast"},
		"bad int":       {"CHATMESH_INDEX_TOP_K": "many"},
		"bad bool":      {"CHATMESH_HISTORY_ENABLED": "yep"},
		"bad level":     {"CHATMESH_LOG_LEVEL": "loud"},
		"overlap >= sz": {"CHATMESH_CHUNK_SIZE": "100", "CHATMESH_CHUNK_OVERLAP": "100"},
	}
	for name, env := range cases {
		if _, err := Load("chatmesh-api", mapLookup(env)); err == nil {
			t.Fatalf("%s: Load() should fail", name)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
