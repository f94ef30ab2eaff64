package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chatmesh/chatmesh/internal/attachment"
	"github.com/chatmesh/chatmesh/internal/docindex"
	"github.com/chatmesh/chatmesh/internal/llm"
)

// Completer is the chat completion backend shared by the non-SQL tools.
type Completer interface {
	Complete(ctx context.Context, model string, messages []llm.Message) (string, error)
}

const docSystemPrompt = `You answer questions using ONLY the provided document excerpts.
If the excerpts do not contain the answer, say so plainly. Cite nothing else.`

// DocTool answers questions against indexed documents. When a PDF is attached
// it is chunked and upserted first, so the question can be asked in the same
// request that delivers the document.
type DocTool struct {
	Completer Completer
	Model     string
	Index     docindex.Index
	Chunker   docindex.Chunker
	TopK      int
	Logger    *slog.Logger
}

func (t *DocTool) Name() string { return "query_from_document" }

func (t *DocTool) Invoke(ctx context.Context, req Request) []map[string]any {
	if req.Spooled != nil && req.Spooled.Kind == attachment.KindPDF {
		chunks, err := t.Chunker.ChunkPDF(req.Spooled.Path, req.Spooled.Filename)
		if err != nil {
			t.logError(ctx, "chunk document", err)
			return ErrorResult("could not read the uploaded document")
		}
		if err := t.Index.Upsert(ctx, chunks); err != nil {
			t.logError(ctx, "index document", err)
			return ErrorResult("could not index the uploaded document")
		}
	}

	hits, err := t.Index.Search(ctx, req.Query, t.TopK)
	if err != nil {
		t.logError(ctx, "search index", err)
		return ErrorResult("could not search the document index")
	}
	if len(hits) == 0 {
		return ErrorResult("no relevant document content was found for this question")
	}

	var excerpts strings.Builder
	for i, hit := range hits {
		if i > 0 {
			excerpts.WriteString("\n\n")
		}
		fmt.Fprintf(&excerpts, "[%s] %s", hit.Source, hit.Text)
	}

	answer, err := t.Completer.Complete(ctx, t.Model, []llm.Message{
		llm.System(docSystemPrompt),
		llm.User(llm.Text(fmt.Sprintf("Document excerpts:\n\n%s\n\nQuestion:\n%s", excerpts.String(), req.Query))),
	})
	if err != nil {
		t.logError(ctx, "complete document answer", err)
		return ErrorResult("could not answer from the document")
	}
	return []map[string]any{{"content": answer}}
}

func (t *DocTool) logError(ctx context.Context, op string, err error) {
	if t.Logger == nil {
		return
	}
	t.Logger.ErrorContext(ctx, "document tool failed", slog.String("op", op), slog.String("error", err.Error()))
}

var _ Tool = (*DocTool)(nil)
