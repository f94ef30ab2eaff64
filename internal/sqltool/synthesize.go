package sqltool

import (
	"context"
	"fmt"
	"strings"

	"github.com/chatmesh/chatmesh/internal/llm"
)

// Completer is the completion backend; satisfied by *llm.Client.
type Completer interface {
	Complete(ctx context.Context, model string, messages []llm.Message) (string, error)
}

// The markers are a wire contract shared with the prompt below. Any backend
// swapped in must reproduce them exactly.
const (
	markerSQL         = "SQL_QUERY:"
	markerExplanation = "EXPLANATION:"
	markerPlotCode    = "PLOT_CODE:"
)

const synthesisSystemPrompt = `You are an expert data analyst generating SQL for DuckDB.

STRICT RULES:
- There is ONLY ONE TABLE available
- Table name is EXACT and CASE-SENSITIVE
- You MUST use the table name exactly as provided
- Do NOT invent or rename tables
- Do NOT pluralize table names
- Generate ONLY executable SQL

Explain results in simple language.`

const synthesisUserTemplate = `Available database information:

Table name (EXACT, case-sensitive):
%[1]s

Table schema:
%[2]s

User question:
%[3]s

IMPORTANT:
- Use ONLY the table name: %[1]s
- Do NOT use any other table names

Respond in this format:

SQL_QUERY:
<sql>

EXPLANATION:
<text>`

// Synthesize asks the completion service for a candidate query. Single
// blocking call, no retries; any backend error propagates as a synthesis
// failure for the caller to convert into the sentinel.
func Synthesize(ctx context.Context, completer Completer, model, tableName string, schema Schema, userQuery string) (string, error) {
	if strings.TrimSpace(tableName) == "" {
		return "", fmt.Errorf("table name is required")
	}
	messages := []llm.Message{
		llm.System(synthesisSystemPrompt),
		llm.User(llm.Text(fmt.Sprintf(synthesisUserTemplate, tableName, schema.Render(), userQuery))),
	}
	raw, err := completer.Complete(ctx, model, messages)
	if err != nil {
		return "", fmt.Errorf("synthesize query: %w", err)
	}
	return raw, nil
}
