package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chatmesh/chatmesh/internal/attachment"
	"github.com/chatmesh/chatmesh/internal/history"
	"github.com/chatmesh/chatmesh/internal/llm"
	"github.com/chatmesh/chatmesh/internal/observability"
	"github.com/chatmesh/chatmesh/internal/tool"
)

// ErrUnsupportedAttachment is returned for attachment kinds no tool handles.
var ErrUnsupportedAttachment = fmt.Errorf("unsupported attachment type")

// Completer is the chat backend used to compose the final answer.
type Completer interface {
	Complete(ctx context.Context, model string, messages []llm.Message) (string, error)
}

type Config struct {
	ChatModel   string
	RecentTurns int
}

// Agent routes a request to the right tool and turns the tool's rows into a
// plain-language answer. History is optional; a nil store disables it.
type Agent struct {
	registry  *tool.Registry
	fallback  tool.Tool
	completer Completer
	store     history.Store
	cfg       Config
	logger    *slog.Logger
}

type Input struct {
	ConversationID string
	Query          string
	Spooled        *attachment.Spooled
}

type Output struct {
	Answer string
	Tool   string
}

func New(registry *tool.Registry, fallback tool.Tool, completer Completer, store history.Store, cfg Config, logger *slog.Logger) *Agent {
	if cfg.RecentTurns <= 0 {
		cfg.RecentTurns = 6
	}
	return &Agent{
		registry:  registry,
		fallback:  fallback,
		completer: completer,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}
}

const composeSystemPrompt = `You are a conversational assistant. A tool already processed the user's
request; its raw result is provided as JSON rows. Write the final answer in
plain language. If the rows report a failure, explain it briefly and suggest
what the user can try instead. Never show raw JSON.`

func (a *Agent) Respond(ctx context.Context, in Input) (Output, error) {
	selected, err := a.selectTool(in.Spooled)
	if err != nil {
		return Output{}, err
	}

	req := tool.Request{Query: in.Query, Spooled: in.Spooled}
	if in.Spooled != nil && in.Spooled.Kind.Tabular() {
		req.TableName = attachment.TableName(in.Spooled.Filename)
	}

	start := time.Now()
	rows := selected.Invoke(ctx, req)
	outcome := "ok"
	if tool.IsErrorResult(rows) {
		outcome = "error"
	}
	observability.ObserveToolInvocation(selected.Name(), outcome, time.Since(start))

	answer, err := a.compose(ctx, in, selected.Name(), rows)
	if err != nil {
		return Output{}, err
	}

	a.persistTurn(ctx, in, selected.Name(), answer)
	return Output{Answer: answer, Tool: selected.Name()}, nil
}

func (a *Agent) selectTool(spooled *attachment.Spooled) (tool.Tool, error) {
	if spooled == nil {
		return a.fallback, nil
	}
	selected, ok := a.registry.For(spooled.Kind)
	if !ok {
		return nil, ErrUnsupportedAttachment
	}
	return selected, nil
}

func (a *Agent) compose(ctx context.Context, in Input, toolName string, rows []map[string]any) (string, error) {
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshal tool rows: %w", err)
	}

	messages := []llm.Message{llm.System(composeSystemPrompt)}
	if transcript := a.recentTranscript(ctx, in.ConversationID); transcript != "" {
		messages = append(messages, llm.User(llm.Text("Conversation so far:\n"+transcript)))
	}
	messages = append(messages, llm.User(llm.Text(fmt.Sprintf(
		"User question:\n%s\n\nTool used: %s\nTool result (JSON rows):\n%s",
		in.Query, toolName, string(rowsJSON),
	))))

	answer, err := a.completer.Complete(ctx, a.cfg.ChatModel, messages)
	if err != nil {
		return "", fmt.Errorf("compose answer: %w", err)
	}
	return answer, nil
}

// recentTranscript renders prior turns for prompt context. History errors
// are logged and skipped; a missing transcript never blocks an answer.
func (a *Agent) recentTranscript(ctx context.Context, conversationID string) string {
	if a.store == nil || conversationID == "" {
		return ""
	}
	turns, err := a.store.Recent(ctx, conversationID, a.cfg.RecentTurns)
	if err != nil {
		if a.logger != nil {
			a.logger.WarnContext(ctx, "load conversation history failed", slog.String("error", err.Error()))
		}
		return ""
	}
	var b strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&b, "user: %s\nassistant: %s\n", turn.UserMessage, turn.Answer)
	}
	return strings.TrimSpace(b.String())
}

func (a *Agent) persistTurn(ctx context.Context, in Input, toolName, answer string) {
	if a.store == nil || in.ConversationID == "" {
		return
	}
	attachmentName := ""
	if in.Spooled != nil {
		attachmentName = in.Spooled.Filename
	}
	if _, err := a.store.AppendTurn(ctx, history.AppendTurnInput{
		ConversationID: in.ConversationID,
		UserMessage:    in.Query,
		Answer:         answer,
		Tool:           toolName,
		Attachment:     attachmentName,
	}); err != nil && a.logger != nil {
		a.logger.WarnContext(ctx, "persist conversation turn failed", slog.String("error", err.Error()))
	}
}
