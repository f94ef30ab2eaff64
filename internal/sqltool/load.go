package sqltool

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// session is the slice of database/sql shared by *sql.DB and *sql.Conn that
// the load path needs. The executor loads through a pinned connection so the
// lockdown that follows applies to the same DuckDB session.
type session interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// loadTable materializes one tabular file as a table named tableName inside
// the given in-memory DuckDB instance. Only "csv" and "xlsx" are accepted;
// the router rejects everything else before this point.
func loadTable(ctx context.Context, db session, tableName, filePath, fileExtension string) error {
	switch strings.ToLower(strings.TrimSpace(fileExtension)) {
	case "csv":
		return loadCSV(ctx, db, tableName, filePath)
	case "xlsx":
		return loadExcel(ctx, db, tableName, filePath)
	default:
		return fmt.Errorf("unsupported tabular extension %q", fileExtension)
	}
}

func loadCSV(ctx context.Context, db session, tableName, filePath string) error {
	stmt := fmt.Sprintf(
		"CREATE TABLE %s AS SELECT * FROM read_csv_auto(%s)",
		quoteIdent(tableName), quoteString(filePath),
	)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("load csv into table %q: %w", tableName, err)
	}
	return nil
}

// loadExcel reads the first sheet with excelize, infers a column type from
// the data rows, and inserts everything through one prepared statement.
func loadExcel(ctx context.Context, db session, tableName, filePath string) error {
	file, err := excelize.OpenFile(filePath)
	if err != nil {
		return fmt.Errorf("open xlsx %q: %w", filePath, err)
	}
	defer func() { _ = file.Close() }()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("xlsx %q has no sheets", filePath)
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("sheet %q is empty", sheets[0])
	}

	headers := normalizeHeaders(rows[0])
	dataRows := rows[1:]
	types := inferColumnTypes(headers, dataRows)

	columnDefs := make([]string, len(headers))
	for i, name := range headers {
		columnDefs[i] = quoteIdent(name) + " " + types[i]
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(tableName), strings.Join(columnDefs, ", "))
	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("create table %q: %w", tableName, err)
	}
	if len(dataRows) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(headers)), ",")
	insertStmt, err := db.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(tableName), placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert for table %q: %w", tableName, err)
	}
	defer func() { _ = insertStmt.Close() }()

	for _, row := range dataRows {
		values := make([]any, len(headers))
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			values[i] = convertCell(cell, types[i])
		}
		if _, err := insertStmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("insert row into table %q: %w", tableName, err)
		}
	}
	return nil
}

// normalizeHeaders fills blanks and deduplicates so column names stay unique
// in source order.
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := map[string]int{}
	for i, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "col_" + strconv.Itoa(i+1)
		}
		if count, ok := seen[name]; ok {
			seen[name] = count + 1
			name = name + "_" + strconv.Itoa(count+1)
		}
		seen[name] = 1
		headers[i] = name
	}
	return headers
}

// inferColumnTypes picks the narrowest DuckDB type every non-empty cell in a
// column satisfies: BIGINT, then DOUBLE, then BOOLEAN, falling back to
// VARCHAR. Empty columns stay VARCHAR.
func inferColumnTypes(headers []string, rows [][]string) []string {
	types := make([]string, len(headers))
	for col := range headers {
		isInt, isFloat, isBool := true, true, true
		sawValue := false
		for _, row := range rows {
			if col >= len(row) || strings.TrimSpace(row[col]) == "" {
				continue
			}
			cell := strings.TrimSpace(row[col])
			sawValue = true
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
			switch strings.ToLower(cell) {
			case "true", "false":
			default:
				isBool = false
			}
		}
		switch {
		case !sawValue:
			types[col] = "VARCHAR"
		case isInt:
			types[col] = "BIGINT"
		case isFloat:
			types[col] = "DOUBLE"
		case isBool:
			types[col] = "BOOLEAN"
		default:
			types[col] = "VARCHAR"
		}
	}
	return types
}

func convertCell(cell, columnType string) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	switch columnType {
	case "BIGINT":
		if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return v
		}
	case "DOUBLE":
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return v
		}
	case "BOOLEAN":
		return strings.EqualFold(cell, "true")
	}
	return cell
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
