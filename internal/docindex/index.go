package docindex

import "context"

// Chunk is one indexable slice of an uploaded document.
type Chunk struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// Hit is a retrieved chunk with its relevance score.
type Hit struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Index stores document chunks and retrieves the ones most relevant to a
// question. Implementations own embedding; callers only move text.
type Index interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	DeleteBySource(ctx context.Context, source string) error
	Search(ctx context.Context, query string, topK int) ([]Hit, error)
}
