package history

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("history: not found")

// Turn is one stored exchange in a conversation: the user's message and the
// assistant's final answer, plus which tool produced it.
type Turn struct {
	TurnID         int64     `json:"turn_id"`
	ConversationID string    `json:"conversation_id"`
	UserMessage    string    `json:"user_message"`
	Answer         string    `json:"answer"`
	Tool           string    `json:"tool"`
	Attachment     string    `json:"attachment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type AppendTurnInput struct {
	ConversationID string
	UserMessage    string
	Answer         string
	Tool           string
	Attachment     string
}

// Store persists conversation turns. Recent returns the newest turns in
// chronological order so they can be replayed straight into a prompt.
type Store interface {
	AppendTurn(ctx context.Context, in AppendTurnInput) (Turn, error)
	Recent(ctx context.Context, conversationID string, limit int) ([]Turn, error)
	HealthCheck(ctx context.Context) error
}
