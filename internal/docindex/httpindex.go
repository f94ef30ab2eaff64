package docindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPIndexConfig configures the remote vector index client. The service is
// expected to embed text server-side; only chunk text crosses the wire.
type HTTPIndexConfig struct {
	BaseURL   string
	APIKey    string
	IndexName string
	Namespace string
	Timeout   time.Duration
}

type HTTPIndex struct {
	baseURL   string
	apiKey    string
	indexName string
	namespace string
	client    *http.Client
}

func NewHTTPIndex(cfg HTTPIndexConfig) (*HTTPIndex, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("index base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("index api key is required")
	}
	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" {
		namespace = "default"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPIndex{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		indexName: strings.TrimSpace(cfg.IndexName),
		namespace: namespace,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

type indexRecord struct {
	ID     string `json:"_id"`
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

func (x *HTTPIndex) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, chunk := range chunks {
		record := indexRecord{ID: chunk.ID, Text: chunk.Text, Source: chunk.Source, Page: chunk.Page}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("encode index record: %w", err)
		}
	}
	url := fmt.Sprintf("%s/records/namespaces/%s/upsert", x.baseURL, x.namespace)
	return x.send(ctx, url, "application/x-ndjson", buf.Bytes(), nil)
}

func (x *HTTPIndex) DeleteBySource(ctx context.Context, source string) error {
	payload, err := json.Marshal(map[string]any{
		"namespace": x.namespace,
		"filter":    map[string]any{"source": map[string]any{"$eq": source}},
	})
	if err != nil {
		return fmt.Errorf("marshal delete filter: %w", err)
	}
	return x.send(ctx, x.baseURL+"/vectors/delete", "application/json", payload, nil)
}

func (x *HTTPIndex) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	payload, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"inputs": map[string]any{"text": query},
			"top_k":  topK,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search payload: %w", err)
	}

	var parsed struct {
		Result struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Fields struct {
					Text   string `json:"text"`
					Source string `json:"source"`
				} `json:"fields"`
			} `json:"hits"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/records/namespaces/%s/search", x.baseURL, x.namespace)
	if err := x.send(ctx, url, "application/json", payload, &parsed); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(parsed.Result.Hits))
	for _, hit := range parsed.Result.Hits {
		hits = append(hits, Hit{
			ID:     hit.ID,
			Text:   hit.Fields.Text,
			Source: hit.Fields.Source,
			Score:  hit.Score,
		})
	}
	return hits, nil
}

func (x *HTTPIndex) send(ctx context.Context, url, contentType string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build index request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Api-Key", x.apiKey)
	if x.indexName != "" {
		req.Header.Set("X-Index-Name", x.indexName)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("request index: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read index response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("index request failed status=%d body=%s", resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode index response: %w", err)
	}
	return nil
}
