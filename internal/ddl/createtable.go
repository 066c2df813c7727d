// Package ddl parses the CREATE TABLE and CREATE INDEX text stored in the
// schema table, to recover column lists and indexed columns.
package ddl

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/nnamm/litesql/internal/liteerr"
)

// ColumnDescriptor is one column of a parsed CREATE TABLE statement.
type ColumnDescriptor struct {
	Name            string
	Type            string
	Index           int
	IsIntegerRowID  bool // INTEGER PRIMARY KEY alias for rowid
	IsAutoIncrement bool
}

// ParseCreateTable parses a CREATE TABLE statement's column list. SQLite's
// grammar is normalized to something xwb1989/sqlparser's MySQL-flavored
// grammar accepts before parsing.
func ParseCreateTable(sql string) ([]ColumnDescriptor, error) {
	normalized := normalizeToMySQL(sql)

	stmt, err := sqlparser.Parse(normalized)
	if err != nil {
		return nil, liteerr.New("ddl.ParseCreateTable", liteerr.InvalidStatement, err,
			map[string]any{"sql": sql, "normalized": normalized})
	}

	parsed, ok := stmt.(*sqlparser.DDL)
	if !ok || parsed.Action != "create" || parsed.TableSpec == nil {
		return nil, liteerr.New("ddl.ParseCreateTable", liteerr.InvalidStatement,
			fmt.Errorf("not a CREATE TABLE statement"), map[string]any{"sql": sql})
	}

	cols := make([]ColumnDescriptor, len(parsed.TableSpec.Columns))
	for i, col := range parsed.TableSpec.Columns {
		autoInc := bool(col.Type.Autoincrement)
		cols[i] = ColumnDescriptor{
			Name:            col.Name.String(),
			Type:            col.Type.Type,
			Index:           i,
			IsIntegerRowID:  isIntegerPrimaryKey(sql, col.Name.String(), col.Type.Type),
			IsAutoIncrement: autoInc,
		}
	}
	return cols, nil
}

// isIntegerPrimaryKey reports whether columnName is declared "INTEGER
// PRIMARY KEY" in the original CREATE TABLE text. AUTOINCREMENT is not
// required: any single INTEGER PRIMARY KEY column aliases the rowid, and
// sqlparser's column-constraint parsing doesn't carry the PRIMARY KEY flag
// through far enough to read it back off the AST, so the declaration text
// itself is checked directly, case-insensitively and whitespace-normalized.
func isIntegerPrimaryKey(sql, columnName, columnType string) bool {
	if !strings.EqualFold(columnType, "INTEGER") {
		return false
	}
	normalized := strings.Join(strings.Fields(strings.ToLower(sql)), " ")
	needle := strings.ToLower(columnName) + " integer primary key"
	return strings.Contains(normalized, needle)
}

// normalizeToMySQL rewrites the SQLite-specific spellings this grammar
// subset allows into the MySQL syntax xwb1989/sqlparser expects: unquoted
// identifiers and AUTO_INCREMENT ahead of PRIMARY KEY.
func normalizeToMySQL(sql string) string {
	normalized := strings.ReplaceAll(sql, `"`, "")
	normalized = replaceFold(normalized, "primary key autoincrement", "AUTO_INCREMENT PRIMARY KEY")
	normalized = replaceFold(normalized, "PRIMARY KEY AUTOINCREMENT", "AUTO_INCREMENT PRIMARY KEY")
	return strings.TrimSpace(normalized)
}

// replaceFold replaces all case-insensitive occurrences of old with new.
func replaceFold(s, old, new string) string {
	lower := strings.ToLower(s)
	oldLower := strings.ToLower(old)
	var b strings.Builder
	for {
		i := strings.Index(lower, oldLower)
		if i == -1 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(new)
		s = s[i+len(old):]
		lower = lower[i+len(old):]
	}
}
