package tool

import (
	"context"

	"github.com/chatmesh/chatmesh/internal/attachment"
)

// Request is the uniform input every capability receives. Spooled is nil for
// plain-text requests; TableName is only meaningful for tabular attachments.
type Request struct {
	Query     string
	Spooled   *attachment.Spooled
	TableName string
}

// Tool is one callable capability. Invoke never returns an error: failures
// are reported in-band as the single-row sentinel so the orchestrating agent
// can treat every tool result identically.
type Tool interface {
	Name() string
	Invoke(ctx context.Context, req Request) []map[string]any
}

// ErrorResult is the one-element sentinel shape shared by all tools.
func ErrorResult(message string) []map[string]any {
	return []map[string]any{{"content": message}}
}

// IsErrorResult reports whether rows is exactly the sentinel shape.
func IsErrorResult(rows []map[string]any) bool {
	if len(rows) != 1 {
		return false
	}
	_, ok := rows[0]["content"]
	return ok && len(rows[0]) == 1
}

// Registry maps attachment kinds to their handling tool.
type Registry struct {
	byKind map[attachment.Kind]Tool
}

func NewRegistry() *Registry {
	return &Registry{byKind: map[attachment.Kind]Tool{}}
}

func (r *Registry) Register(kind attachment.Kind, t Tool) {
	r.byKind[kind] = t
}

func (r *Registry) For(kind attachment.Kind) (Tool, bool) {
	t, ok := r.byKind[kind]
	return t, ok
}
