package tool

import (
	"context"
	"log/slog"
	"os"

	"github.com/chatmesh/chatmesh/internal/llm"
)

// AudioTool answers questions about an attached audio clip by sending the
// encoded audio inline with the question to an audio-capable model.
type AudioTool struct {
	Completer Completer
	Model     string
	Logger    *slog.Logger
}

func (t *AudioTool) Name() string { return "audio_understanding" }

func (t *AudioTool) Invoke(ctx context.Context, req Request) []map[string]any {
	if req.Spooled == nil {
		return ErrorResult("an audio attachment is required")
	}
	data, err := os.ReadFile(req.Spooled.Path)
	if err != nil {
		t.logError(ctx, "read audio", err)
		return ErrorResult("could not read the uploaded audio")
	}

	answer, err := t.Completer.Complete(ctx, t.Model, []llm.Message{
		llm.User(llm.Text(req.Query), llm.Audio(data)),
	})
	if err != nil {
		t.logError(ctx, "complete audio answer", err)
		return ErrorResult("could not analyze the uploaded audio")
	}
	return []map[string]any{{"content": answer}}
}

func (t *AudioTool) logError(ctx context.Context, op string, err error) {
	if t.Logger == nil {
		return
	}
	t.Logger.ErrorContext(ctx, "audio tool failed", slog.String("op", op), slog.String("error", err.Error()))
}

var _ Tool = (*AudioTool)(nil)
