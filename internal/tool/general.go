package tool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chatmesh/chatmesh/internal/llm"
	"github.com/chatmesh/chatmesh/internal/websearch"
)

// Searcher is satisfied by *websearch.Client.
type Searcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

const generalSystemPrompt = `You are a helpful assistant. Answer concisely and factually.
When web results are provided, ground your answer in them.`

// GeneralTool handles plain questions with no usable attachment. When a
// search backend is configured the question is enriched with live results;
// search failures degrade to an unassisted answer rather than an error.
type GeneralTool struct {
	Completer Completer
	Model     string
	Searcher  Searcher
	Logger    *slog.Logger
}

func (t *GeneralTool) Name() string { return "general_reasoning" }

func (t *GeneralTool) Invoke(ctx context.Context, req Request) []map[string]any {
	prompt := req.Query
	if t.Searcher != nil {
		results, err := t.Searcher.Search(ctx, req.Query)
		if err != nil {
			t.logWarn(ctx, "web search failed", err)
		} else if rendered := websearch.RenderContext(results); rendered != "" {
			prompt = fmt.Sprintf("Web results:\n\n%s\n\nQuestion:\n%s", rendered, req.Query)
		}
	}

	answer, err := t.Completer.Complete(ctx, t.Model, []llm.Message{
		llm.System(generalSystemPrompt),
		llm.User(llm.Text(prompt)),
	})
	if err != nil {
		if t.Logger != nil {
			t.Logger.ErrorContext(ctx, "general tool failed", slog.String("error", err.Error()))
		}
		return ErrorResult("could not generate an answer")
	}
	return []map[string]any{{"content": answer}}
}

func (t *GeneralTool) logWarn(ctx context.Context, msg string, err error) {
	if t.Logger == nil {
		return
	}
	t.Logger.WarnContext(ctx, msg, slog.String("error", err.Error()))
}

var _ Tool = (*GeneralTool)(nil)
