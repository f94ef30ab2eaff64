package tool

import (
	"context"
	"log/slog"
	"os"

	"github.com/chatmesh/chatmesh/internal/llm"
)

// VisionTool answers questions about an attached image by sending the image
// bytes inline with the question to a vision-capable model.
type VisionTool struct {
	Completer Completer
	Model     string
	Logger    *slog.Logger
}

func (t *VisionTool) Name() string { return "image_understanding" }

func (t *VisionTool) Invoke(ctx context.Context, req Request) []map[string]any {
	if req.Spooled == nil {
		return ErrorResult("an image attachment is required")
	}
	data, err := os.ReadFile(req.Spooled.Path)
	if err != nil {
		t.logError(ctx, "read image", err)
		return ErrorResult("could not read the uploaded image")
	}

	answer, err := t.Completer.Complete(ctx, t.Model, []llm.Message{
		llm.User(llm.Text(req.Query), llm.Image(data)),
	})
	if err != nil {
		t.logError(ctx, "complete vision answer", err)
		return ErrorResult("could not analyze the uploaded image")
	}
	return []map[string]any{{"content": answer}}
}

func (t *VisionTool) logError(ctx context.Context, op string, err error) {
	if t.Logger == nil {
		return
	}
	t.Logger.ErrorContext(ctx, "vision tool failed", slog.String("op", op), slog.String("error", err.Error()))
}

var _ Tool = (*VisionTool)(nil)
