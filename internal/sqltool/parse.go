package sqltool

import (
	"regexp"
	"strings"
)

// Sections is the parsed form of the synthesizer's free-text response.
// HasSQL false means the query marker was missing entirely; callers must
// treat that as a failure, never as an empty query.
type Sections struct {
	SQL            string
	Explanation    string
	HasSQL         bool
	HasExplanation bool
}

// ParseResponse splits the raw model text on the literal section markers.
// The query is everything between SQL_QUERY: and EXPLANATION: (or end of
// text); the explanation runs until PLOT_CODE: (reserved) or end of text.
// Markers are matched at any position; a marker appearing inside generated
// text is a known limitation of the wire format.
func ParseResponse(raw string) Sections {
	var sections Sections

	if _, after, found := strings.Cut(raw, markerSQL); found {
		sqlPart := after
		if before, _, hasExplanation := strings.Cut(after, markerExplanation); hasExplanation {
			sqlPart = before
		}
		sections.SQL = strings.TrimSpace(sqlPart)
		sections.HasSQL = true
	}

	if _, after, found := strings.Cut(raw, markerExplanation); found {
		explanationPart := after
		if before, _, hasPlot := strings.Cut(after, markerPlotCode); hasPlot {
			explanationPart = before
		}
		sections.Explanation = strings.TrimSpace(explanationPart)
		sections.HasExplanation = true
	}

	return sections
}

var sqlFencePattern = regexp.MustCompile("(?i)```sql")

// CleanSQL strips markdown code fences (with or without the language tag)
// anywhere in the text and trims surrounding whitespace. It performs no SQL
// validation; that is the guard's job.
func CleanSQL(sqlText string) string {
	if sqlText == "" {
		return sqlText
	}
	sqlText = sqlFencePattern.ReplaceAllString(sqlText, "")
	sqlText = strings.ReplaceAll(sqlText, "```", "")
	return strings.TrimSpace(sqlText)
}
