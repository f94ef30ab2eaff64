package sqltool

import (
	"context"
	"log/slog"
	"time"

	"github.com/chatmesh/chatmesh/internal/observability"
	"github.com/chatmesh/chatmesh/internal/tool"
)

// Tool is the natural-language-to-SQL capability: introspect the uploaded
// table, synthesize a candidate query, parse and clean it, validate it is a
// single read against the declared table, and execute it in a request-scoped
// engine.
type Tool struct {
	Completer Completer
	Model     string
	Logger    *slog.Logger
	RowLimit  int
}

func (t *Tool) Name() string { return "query_from_table" }

func (t *Tool) Invoke(ctx context.Context, req tool.Request) []map[string]any {
	if req.Spooled == nil || !req.Spooled.Kind.Tabular() {
		return tool.ErrorResult("a csv or xlsx attachment is required")
	}
	ext := req.Spooled.Kind.Extension()

	schema, err := Describe(ctx, req.Spooled.Path, ext, req.TableName)
	if err != nil {
		t.logError(ctx, "schema introspection failed", req.TableName, err)
		return tool.ErrorResult("could not read the uploaded table")
	}

	synthStart := time.Now()
	raw, err := Synthesize(ctx, t.Completer, t.Model, req.TableName, schema, req.Query)
	observability.ObserveSynthesis(time.Since(synthStart))
	if err != nil {
		t.logError(ctx, "query synthesis failed", req.TableName, err)
		return tool.ErrorResult("could not generate a query for this question")
	}

	sections := ParseResponse(raw)
	if !sections.HasSQL {
		observability.IncrementQueryRejected("missing_marker")
		t.logError(ctx, "synthesizer response missing query marker", req.TableName, nil)
		return tool.ErrorResult("the generated response did not contain a query")
	}

	cleaned := CleanSQL(sections.SQL)
	if err := ValidateReadOnly(cleaned, req.TableName); err != nil {
		observability.IncrementQueryRejected("validation")
		t.logError(ctx, "generated query rejected", req.TableName, err)
		return tool.ErrorResult("the generated query was rejected: " + err.Error())
	}

	executor := &Executor{Logger: t.Logger, RowLimit: t.RowLimit}
	rows := executor.Execute(ctx, cleaned, req.TableName, req.Spooled.Path, ext)

	if t.Logger != nil && sections.HasExplanation {
		t.Logger.DebugContext(ctx, "query explanation",
			slog.String("table", req.TableName),
			slog.String("explanation", sections.Explanation),
		)
	}
	return rows
}

func (t *Tool) logError(ctx context.Context, msg, tableName string, err error) {
	if t.Logger == nil {
		return
	}
	attrs := []any{slog.String("table", tableName)}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	t.Logger.ErrorContext(ctx, msg, attrs...)
}
