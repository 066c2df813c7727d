// Package sqlfront parses the constrained SELECT grammar the CLI accepts,
// independent of any table's schema — column and table names are carried
// as plain strings for the caller to resolve.
package sqlfront

import (
	"fmt"
	"strings"

	"github.com/nnamm/litesql/internal/liteerr"
	"github.com/nnamm/litesql/internal/predicate"
)

// RawExpr is one WHERE comparison before its column name has been resolved
// against a table's schema.
type RawExpr struct {
	Column string
	Op     predicate.Op
	Value  string
}

// RawWhere is a left-associative chain of RawExpr joined by AND/OR.
type RawWhere struct {
	Expr       RawExpr
	Combinator predicate.Combinator
	Next       *RawWhere
}

// RawQuery is a parsed SELECT statement. An empty string in Columns means
// the literal COUNT(*).
type RawQuery struct {
	TableName string
	Columns   []string
	Where     *RawWhere
}

// ParseSelect parses "SELECT <cols> FROM <table> [WHERE <cond> (AND|OR <cond>)*]".
func ParseSelect(query string) (*RawQuery, error) {
	src := strings.TrimLeft(query, " \t\n\r")
	upper := strings.ToUpper(src)

	selectIdx := strings.Index(upper, "SELECT")
	fromIdx := strings.Index(upper, "FROM")
	if selectIdx == -1 || fromIdx == -1 {
		return nil, invalidStatement(query, "missing SELECT or FROM")
	}
	if selectIdx >= fromIdx {
		return nil, invalidStatement(query, "SELECT must precede FROM")
	}

	var whereIdx = -1
	if idx := strings.Index(upper, "WHERE"); idx != -1 {
		if idx <= fromIdx {
			return nil, invalidStatement(query, "WHERE must follow FROM")
		}
		whereIdx = idx
	}

	columns := parseCommaSeparatedAfter(src, "SELECT", selectIdx, ptrTo(fromIdx))
	for i, c := range columns {
		if strings.EqualFold(c, "COUNT(*)") {
			columns[i] = ""
		}
	}
	if len(columns) == 0 {
		return nil, invalidStatement(query, "no columns in SELECT list")
	}

	fromLimit := len(src)
	if whereIdx != -1 {
		fromLimit = whereIdx
	}
	tables := parseCommaSeparatedAfter(src, "FROM", fromIdx, ptrTo(fromLimit))
	if len(tables) != 1 {
		return nil, invalidStatement(query, "exactly one table is supported")
	}

	var where *RawWhere
	if whereIdx != -1 {
		w, err := parseWhere(src, whereIdx+len("WHERE"))
		if err != nil {
			return nil, err
		}
		where = w
	}

	return &RawQuery{TableName: tables[0], Columns: columns, Where: where}, nil
}

func ptrTo(i int) *int { return &i }

// parseCommaSeparatedAfter splits the text between keyword (at index) and
// limit (or end of string, if nil) on commas, trimming each piece.
func parseCommaSeparatedAfter(src, keyword string, index int, limit *int) []string {
	begin := index + len(keyword)
	var value string
	if limit != nil {
		value = src[begin:*limit]
	} else {
		value = src[begin:]
	}
	parts := strings.Split(value, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// findNextWhereComp finds the next AND/OR keyword at or after index,
// returning its offset relative to index and whether it was AND. A keyword
// counts only when a space precedes and follows it, so "OR" inside an
// identifier such as "color" is not a match.
func findNextWhereComp(src string, index int) (offset int, isAnd bool, found bool) {
	rest := strings.ToUpper(src[index:])
	andIdx := strings.Index(rest, " AND ")
	if andIdx != -1 {
		andIdx++
	}
	orIdx := strings.Index(rest, " OR ")
	if orIdx != -1 {
		orIdx++
	}
	switch {
	case andIdx != -1 && orIdx != -1:
		if andIdx < orIdx {
			return andIdx, true, true
		}
		return orIdx, false, true
	case andIdx != -1:
		return andIdx, true, true
	case orIdx != -1:
		return orIdx, false, true
	default:
		return 0, false, false
	}
}

// parseWhereCmp parses a single "<col> <op> <value>" comparison.
func parseWhereCmp(segment string) (RawExpr, error) {
	segment = strings.TrimSpace(segment)
	fields := strings.Fields(segment)
	if len(fields) < 3 {
		return RawExpr{}, invalidStatement(segment, "comparison needs column, operator and value")
	}
	column := fields[0]
	op, ok := predicate.ParseOp(fields[1])
	if !ok {
		return RawExpr{}, invalidStatement(segment, fmt.Sprintf("unsupported operator %q", fields[1]))
	}
	opIdx := strings.Index(segment, fields[1])
	if opIdx == -1 {
		return RawExpr{}, invalidStatement(segment, "operator not found")
	}
	value := strings.TrimSpace(segment[opIdx+len(fields[1]):])
	return RawExpr{Column: column, Op: op, Value: parseValue(value)}, nil
}

// parseValue normalizes single-quoted literals to double-quoted compare
// form; double-quoted and bare literals pass through unchanged.
func parseValue(v string) string {
	if strings.HasPrefix(v, `'`) && strings.HasSuffix(v, `'`) && len(v) >= 2 {
		return `"` + v[1:len(v)-1] + `"`
	}
	return v
}

// parseWhere recursively parses the WHERE clause starting at index,
// splitting on the next AND/OR keyword.
func parseWhere(src string, index int) (*RawWhere, error) {
	offset, isAnd, found := findNextWhereComp(src, index)
	if !found {
		expr, err := parseWhereCmp(src[index:])
		if err != nil {
			return nil, err
		}
		return &RawWhere{Expr: expr}, nil
	}

	end := index + offset
	expr, err := parseWhereCmp(src[index:end])
	if err != nil {
		return nil, err
	}

	var nextStart int
	combinator := predicate.Or
	if isAnd {
		combinator = predicate.And
		nextStart = end + len("AND")
	} else {
		nextStart = end + len("OR")
	}
	next, err := parseWhere(src, nextStart)
	if err != nil {
		return nil, err
	}
	return &RawWhere{Expr: expr, Combinator: combinator, Next: next}, nil
}

func invalidStatement(query, reason string) error {
	return liteerr.New("sqlfront.ParseSelect", liteerr.InvalidStatement,
		fmt.Errorf("%s", reason), map[string]any{"query": query})
}
