package sqltool

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// Column is one (name, type) pair in source column order. Type names are
// whatever DuckDB reports (BIGINT, DOUBLE, VARCHAR, ...), consistent across
// both the csv and xlsx load paths.
type Column struct {
	Name string
	Type string
}

type Schema []Column

// Render produces the schema block embedded in the synthesis prompt, one
// "name (type)" line per column.
func (s Schema) Render() string {
	lines := make([]string, 0, len(s))
	for _, col := range s {
		lines = append(lines, fmt.Sprintf("%s (%s)", col.Name, col.Type))
	}
	return strings.Join(lines, "\n")
}

// Describe loads the tabular file into a fresh in-memory DuckDB instance
// under tableName and reports its schema. The instance is torn down before
// returning; nothing is cached.
func Describe(ctx context.Context, filePath, fileExtension, tableName string) (Schema, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := loadTable(ctx, db, tableName, filePath, fileExtension); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "DESCRIBE "+quoteIdent(tableName))
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", tableName, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}

	schema := make(Schema, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan describe row: %w", err)
		}
		schema = append(schema, Column{
			Name: asString(values[0]),
			Type: asString(values[1]),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate describe rows: %w", err)
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("table %q has no columns", tableName)
	}
	return schema, nil
}

func asString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
