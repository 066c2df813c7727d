package ddl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nnamm/litesql/internal/liteerr"
)

// IndexDescriptor is a parsed CREATE INDEX statement.
type IndexDescriptor struct {
	Name      string
	TableName string
	RootPage  int
	Columns   []string // only the first column matters for index-eligibility (§4.7.1)
}

var (
	createKeyword = regexp.MustCompile(`(?i)\bCREATE\b`)
	indexKeyword  = regexp.MustCompile(`(?i)\bINDEX\b`)
	onKeyword     = regexp.MustCompile(`(?i)\bON\b`)
)

// ParseCreateIndex extracts the table name and indexed columns from a
// CREATE INDEX statement by keyword scan, preserving the original
// identifier case (column names are matched case-sensitively against the
// owning table's column list). The CREATE, INDEX and ON keywords, the
// column-list open paren and its close paren must appear strictly in that
// order, or the statement is rejected outright rather than partially
// parsed.
func ParseCreateIndex(rootPage int, name string, sql string) (IndexDescriptor, error) {
	sql = strings.TrimSpace(sql)

	create := createKeyword.FindStringIndex(sql)
	index := indexKeyword.FindStringIndex(sql)
	on := onKeyword.FindStringIndex(sql)
	if create == nil || index == nil || on == nil {
		return IndexDescriptor{}, invalidIndexStatement(sql)
	}

	tableNameEnd := strings.Index(sql, "(")
	columnsEnd := strings.LastIndex(sql, ")")
	if tableNameEnd == -1 || columnsEnd == -1 {
		return IndexDescriptor{}, invalidIndexStatement(sql)
	}

	if !(create[0] < index[0] && index[0] < on[0] && on[0] < tableNameEnd && tableNameEnd < columnsEnd) {
		return IndexDescriptor{}, invalidIndexStatement(sql)
	}

	tableName := strings.TrimSpace(sql[on[1]:tableNameEnd])
	if tableName == "" {
		return IndexDescriptor{}, invalidIndexStatement(sql)
	}

	parts := strings.Split(sql[tableNameEnd+1:columnsEnd], ",")
	columns := make([]string, len(parts))
	for i, p := range parts {
		columns[i] = strings.TrimSpace(p)
	}

	return IndexDescriptor{
		Name:      name,
		TableName: tableName,
		RootPage:  rootPage,
		Columns:   columns,
	}, nil
}

func invalidIndexStatement(sql string) error {
	return liteerr.New("ddl.ParseCreateIndex", liteerr.InvalidStatement,
		fmt.Errorf("malformed CREATE INDEX statement: %q", sql), map[string]any{"sql": sql})
}
