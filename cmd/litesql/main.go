// Command litesql is a read-only query engine over the on-disk SQLite
// file format: a `.dbinfo`/`.tables` meta-command shell plus a small
// SELECT subset, backed by direct B-tree traversal rather than a real
// SQLite library.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/nnamm/litesql/internal/btree"
	"github.com/nnamm/litesql/internal/liteerr"
	"github.com/nnamm/litesql/internal/pageformat"
	"github.com/nnamm/litesql/internal/pager"
	"github.com/nnamm/litesql/internal/planner"
	"github.com/nnamm/litesql/internal/predicate"
	"github.com/nnamm/litesql/internal/schema"
	"github.com/nnamm/litesql/internal/sqlfront"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: litesql <db-path> <command>")
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2]); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func run(dbPath, command string) error {
	f, err := os.Open(dbPath)
	if err != nil {
		return liteerr.New("main.run", liteerr.Io, err, map[string]any{"path": dbPath})
	}
	defer f.Close()

	fileHeader := make([]byte, pageformat.FileHeaderSize)
	if _, err := f.ReadAt(fileHeader, 0); err != nil {
		return liteerr.New("main.run", liteerr.Io, err, map[string]any{"path": dbPath})
	}
	header, err := pageformat.ParseFileHeader(fileHeader)
	if err != nil {
		return err
	}

	p := pager.New(f, header.RealPageSize(), pager.WithPageCacheSize(64))
	tree := btree.New(p)

	page1, err := p.ReadPage(1)
	if err != nil {
		return err
	}

	switch command {
	case ".dbinfo":
		fmt.Printf("database page size: %d\n", header.RealPageSize())
		fmt.Printf("number of tables: %d\n", page1.Header.CellCount)
		return nil
	case ".tables":
		cat, err := schema.Bootstrap(tree, header.RealPageSize(), int(page1.Header.CellCount))
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(cat.Tables(), " "))
		return nil
	default:
		return runQuery(tree, header.RealPageSize(), int(page1.Header.CellCount), command)
	}
}

func runQuery(tree *btree.Tree, pageSize, schemaCellCount int, query string) error {
	raw, err := sqlfront.ParseSelect(query)
	if err != nil {
		return err
	}

	cat, err := schema.Bootstrap(tree, pageSize, schemaCellCount)
	if err != nil {
		return err
	}
	table, ok := cat.Table(raw.TableName)
	if !ok {
		return liteerr.New("main.runQuery", liteerr.InvalidStatement,
			fmt.Errorf("no such table: %s", raw.TableName), nil)
	}

	projection, ok := table.ResolveProjection(raw.Columns)
	if !ok {
		return liteerr.New("main.runQuery", liteerr.InvalidStatement,
			fmt.Errorf("unresolved column in projection %v", raw.Columns), nil)
	}

	where, err := resolveWhere(table, raw.Where)
	if err != nil {
		return err
	}

	plan := &planner.Plan{
		TableRoot:  table.RootPage,
		Projection: projection,
		Where:      where,
		IndexPlan:  planner.ChoosePlan(table.ColumnNames(), table.IndexDescriptors(), where),
	}

	rows, err := plan.Execute(tree)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Println(strings.Join(row, "|"))
	}
	return nil
}

// resolveWhere binds a sqlfront.RawWhere's column names against table's
// schema, producing a predicate.Where chain of resolved ColumnRefs.
func resolveWhere(table *schema.Table, raw *sqlfront.RawWhere) (*predicate.Where, error) {
	if raw == nil {
		return nil, nil
	}
	col, ok := table.ResolveColumn(raw.Expr.Column)
	if !ok {
		return nil, liteerr.New("main.resolveWhere", liteerr.InvalidStatement,
			fmt.Errorf("no such column: %s", raw.Expr.Column), nil)
	}
	next, err := resolveWhere(table, raw.Next)
	if err != nil {
		return nil, err
	}
	return &predicate.Where{
		Expr:       predicate.Expr{Column: col, Op: raw.Expr.Op, Value: raw.Expr.Value},
		Combinator: raw.Combinator,
		Next:       next,
	}, nil
}

// printError writes a single diagnostic line to stderr. liteerr.Error's own
// Error() already renders as "<operation>: <kind>: <cause>", followed by
// " (context: ...)" when the error carries context.
func printError(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
}
