package sqltool

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatmesh/chatmesh/internal/observability"
)

// Executor runs a validated query against a brand-new in-memory DuckDB
// instance created for this call alone. The instance is closed on every exit
// path, so concurrent invocations never observe each other's tables even
// when table names collide.
type Executor struct {
	Logger   *slog.Logger
	RowLimit int
}

// Execute loads the source file under tableName and runs the query verbatim.
// Failures of any kind come back as the one-row sentinel; this boundary
// never raises toward the orchestrating agent.
func (e *Executor) Execute(ctx context.Context, cleanedSQL, tableName, filePath, fileExtension string) []map[string]any {
	start := time.Now()
	rows, err := e.execute(ctx, cleanedSQL, tableName, filePath, fileExtension)
	observability.ObserveQueryExecution(time.Since(start))
	if err != nil {
		if e.Logger != nil {
			e.Logger.ErrorContext(ctx, "sql execution failed",
				slog.String("table", tableName),
				slog.Any("error", err),
			)
		}
		return []map[string]any{{"content": "query execution failed: " + err.Error()}}
	}
	return rows
}

func (e *Executor) execute(ctx context.Context, cleanedSQL, tableName, filePath, fileExtension string) ([]map[string]any, error) {
	sqlText := stripTrailingSemicolons(cleanedSQL)
	if sqlText == "" {
		return nil, fmt.Errorf("sql is required")
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Pin one connection so the external-access lockdown below applies to
	// the same DuckDB session the generated query runs on.
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := loadTable(ctx, conn, tableName, filePath, fileExtension); err != nil {
		return nil, err
	}

	// The source file is loaded; nothing the generated query does after
	// this point may touch the filesystem or the network.
	if _, err := conn.ExecContext(ctx, "SET enable_external_access = false"); err != nil {
		return nil, fmt.Errorf("disable external access: %w", err)
	}

	if e.RowLimit > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, e.RowLimit)
	}

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		record := make(map[string]any, len(columns))
		for i, name := range columns {
			record[name] = normalizeValue(values[i])
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return results, nil
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	default:
		return typed
	}
}
