package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chatmesh/chatmesh/internal/history"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

func (r *Repository) AppendTurn(ctx context.Context, in history.AppendTurnInput) (history.Turn, error) {
	query := `
INSERT INTO conversation_turn (conversation_id, user_message, answer, tool, attachment)
VALUES ($1, $2, $3, $4, $5)
RETURNING turn_id, created_at`

	turn := history.Turn{
		ConversationID: in.ConversationID,
		UserMessage:    in.UserMessage,
		Answer:         in.Answer,
		Tool:           in.Tool,
		Attachment:     in.Attachment,
	}
	if err := r.db.QueryRowContext(ctx, query,
		in.ConversationID,
		in.UserMessage,
		in.Answer,
		in.Tool,
		in.Attachment,
	).Scan(&turn.TurnID, &turn.CreatedAt); err != nil {
		return history.Turn{}, fmt.Errorf("append turn: %w", err)
	}
	return turn, nil
}

func (r *Repository) Recent(ctx context.Context, conversationID string, limit int) ([]history.Turn, error) {
	if limit <= 0 {
		limit = 10
	}

	// Newest first in SQL, then reversed so callers get chronological order.
	query := `
SELECT turn_id, conversation_id, user_message, answer, tool, attachment, created_at
FROM conversation_turn
WHERE conversation_id = $1
ORDER BY turn_id DESC
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	turns := make([]history.Turn, 0)
	for rows.Next() {
		var turn history.Turn
		if err := rows.Scan(
			&turn.TurnID,
			&turn.ConversationID,
			&turn.UserMessage,
			&turn.Answer,
			&turn.Tool,
			&turn.Attachment,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
