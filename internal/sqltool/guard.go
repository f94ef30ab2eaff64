package sqltool

import (
	"fmt"
	"strings"
	"unicode"
)

// The generated query is untrusted input. The prompt instructs the model to
// stay read-only and to use the declared table verbatim, but instructions
// are not enforcement: ValidateReadOnly is the actual gate before execution.

var forbiddenKeywords = map[string]struct{}{
	"insert": {}, "update": {}, "delete": {}, "merge": {},
	"create": {}, "drop": {}, "alter": {}, "truncate": {},
	"attach": {}, "detach": {}, "copy": {}, "export": {}, "import": {},
	"install": {}, "load": {}, "pragma": {}, "set": {}, "reset": {},
	"call": {}, "vacuum": {}, "checkpoint": {}, "grant": {}, "revoke": {},
}

// ValidateReadOnly rejects anything that is not a single SELECT/WITH read
// statement referencing exactly the declared table (case-sensitive). It
// returns a descriptive error for the sentinel; the query must not run when
// it fails.
func ValidateReadOnly(sqlText, tableName string) error {
	stripped := stripTrailingSemicolons(sqlText)
	if stripped == "" {
		return fmt.Errorf("query is empty")
	}

	tokens := tokenize(stripped)
	if len(tokens) == 0 {
		return fmt.Errorf("query is empty")
	}

	first := strings.ToLower(tokens[0].value)
	if first != "select" && first != "with" {
		return fmt.Errorf("only read-only SELECT/WITH queries are allowed, got %q", tokens[0].value)
	}

	allowed := map[string]struct{}{tableName: {}}
	for i, tok := range tokens {
		if tok.kind != tokenWord && tok.kind != tokenQuotedIdent {
			if tok.kind == tokenPunct && tok.value == ";" {
				return fmt.Errorf("multiple statements are not allowed")
			}
			continue
		}
		lower := strings.ToLower(tok.value)
		if tok.kind == tokenWord {
			if _, forbidden := forbiddenKeywords[lower]; forbidden {
				return fmt.Errorf("statement keyword %q is not allowed", tok.value)
			}
		}
		// CTE names declared as `name AS (` join the allowed set.
		if i+2 < len(tokens) &&
			strings.EqualFold(tokens[i+1].value, "as") &&
			tokens[i+2].value == "(" &&
			(tok.kind == tokenQuotedIdent || !isKeywordLike(lower)) {
			allowed[tok.value] = struct{}{}
		}
	}

	for i, tok := range tokens {
		if tok.kind != tokenWord {
			continue
		}
		lower := strings.ToLower(tok.value)
		if lower != "from" && lower != "join" {
			continue
		}
		if err := validateRelations(tokens, i+1, lower == "from", allowed, tableName, strings.ToUpper(lower)); err != nil {
			return err
		}
	}

	return nil
}

// validateRelations checks every relation a FROM or JOIN clause introduces.
// FROM may carry a comma-separated list, so the walk continues past aliases
// and join conditions to each depth-zero comma until a clause keyword or the
// end of the enclosing scope terminates the list. JOIN introduces exactly
// one relation.
func validateRelations(tokens []token, i int, commaList bool, allowed map[string]struct{}, tableName, clause string) error {
	for {
		if i >= len(tokens) {
			return fmt.Errorf("dangling %s clause", clause)
		}
		next, err := validateRelation(tokens, i, allowed, tableName, clause)
		if err != nil {
			return err
		}
		i = next
		if !commaList {
			return nil
		}
		for i < len(tokens) {
			tok := tokens[i]
			if tok.kind == tokenPunct && tok.value == "," {
				break
			}
			if tok.kind == tokenPunct && tok.value == "(" {
				i = skipParens(tokens, i)
				continue
			}
			if tok.kind == tokenPunct && tok.value == ")" {
				return nil
			}
			if tok.kind == tokenWord && endsRelationList(strings.ToLower(tok.value)) {
				return nil
			}
			i++
		}
		if i >= len(tokens) {
			return nil
		}
		i++ // past the comma, on to the next relation
	}
}

func validateRelation(tokens []token, i int, allowed map[string]struct{}, tableName, clause string) (int, error) {
	tok := tokens[i]
	if tok.kind == tokenPunct && tok.value == "(" {
		// Subquery; its own FROM/JOIN clauses are validated by the outer
		// token scan.
		return skipParens(tokens, i), nil
	}
	if tok.kind == tokenWord && strings.EqualFold(tok.value, "lateral") {
		if i+1 >= len(tokens) {
			return 0, fmt.Errorf("dangling %s clause", clause)
		}
		return validateRelation(tokens, i+1, allowed, tableName, clause)
	}
	if tok.kind != tokenWord && tok.kind != tokenQuotedIdent {
		return 0, fmt.Errorf("unexpected token %q after %s", tok.value, clause)
	}
	// Table functions (read_csv, read_parquet, ...) can reach the
	// filesystem; never allowed.
	if i+1 < len(tokens) && tokens[i+1].kind == tokenPunct && tokens[i+1].value == "(" {
		return 0, fmt.Errorf("table function %q is not allowed", tok.value)
	}
	if _, ok := allowed[tok.value]; !ok {
		return 0, fmt.Errorf("query references table %q, only %q is available", tok.value, tableName)
	}
	return i + 1, nil
}

// skipParens advances past a balanced parenthesized region starting at an
// opening paren and returns the index after its match.
func skipParens(tokens []token, start int) int {
	depth := 0
	for i := start; i < len(tokens); i++ {
		if tokens[i].kind != tokenPunct {
			continue
		}
		switch tokens[i].value {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(tokens)
}

func endsRelationList(lower string) bool {
	switch lower {
	case "where", "group", "having", "order", "limit", "offset",
		"union", "intersect", "except", "qualify", "window":
		return true
	default:
		return false
	}
}

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenQuotedIdent
	tokenStringLiteral
	tokenNumber
	tokenPunct
)

type token struct {
	kind  tokenKind
	value string
}

// tokenize is a lightweight SQL scanner: enough to find statement keywords,
// string literals, quoted identifiers, and punctuation. Not a full parser.
func tokenize(input string) []token {
	var tokens []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\'':
			value, next := scanQuoted(runes, i, '\'')
			tokens = append(tokens, token{kind: tokenStringLiteral, value: value})
			i = next
		case r == '"':
			value, next := scanQuoted(runes, i, '"')
			tokens = append(tokens, token{kind: tokenQuotedIdent, value: value})
			i = next
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_' || runes[i] == '$') {
				i++
			}
			tokens = append(tokens, token{kind: tokenWord, value: string(runes[start:i])})
		case unicode.IsDigit(r):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.' || runes[i] == 'e' || runes[i] == 'E') {
				i++
			}
			tokens = append(tokens, token{kind: tokenNumber, value: string(runes[start:i])})
		default:
			tokens = append(tokens, token{kind: tokenPunct, value: string(r)})
			i++
		}
	}
	return tokens
}

// scanQuoted consumes a quoted region starting at start, honoring doubled
// quote escapes, and returns the unquoted value plus the next index.
func scanQuoted(runes []rune, start int, quote rune) (string, int) {
	var value strings.Builder
	i := start + 1
	for i < len(runes) {
		if runes[i] == quote {
			if i+1 < len(runes) && runes[i+1] == quote {
				value.WriteRune(quote)
				i += 2
				continue
			}
			return value.String(), i + 1
		}
		value.WriteRune(runes[i])
		i++
	}
	return value.String(), i
}

func isKeywordLike(lower string) bool {
	switch lower {
	case "select", "with", "from", "join", "where", "group", "order", "by",
		"having", "limit", "offset", "union", "all", "distinct", "as", "on",
		"and", "or", "not", "case", "when", "then", "else", "end":
		return true
	default:
		return false
	}
}
