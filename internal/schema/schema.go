// Package schema bootstraps the table/index catalog out of the schema
// table stored at page 1, by running the query planner against it twice:
// once for CREATE TABLE rows, once for CREATE INDEX rows.
package schema

import (
	"strconv"

	"github.com/nnamm/litesql/internal/btree"
	"github.com/nnamm/litesql/internal/ddl"
	"github.com/nnamm/litesql/internal/liteerr"
	"github.com/nnamm/litesql/internal/planner"
	"github.com/nnamm/litesql/internal/predicate"
)

// schemaRoot is the fixed root page of every SQLite database's schema table.
const schemaRoot = 1

// schema table column positions, per the sqlite_master record layout:
// type, name, tbl_name, rootpage, sql.
const (
	colType = iota
	colName
	colTblName
	colRootPage
	colSQL
)

// Table is a bootstrapped table: its root page, column list (from its
// CREATE TABLE text) and the indexes defined on it.
type Table struct {
	Name     string
	RootPage int
	Columns  []ddl.ColumnDescriptor
	Indexes  []Index
}

// Index is a bootstrapped index, reduced to its first indexed column.
type Index struct {
	Name     string
	RootPage int
	Column   string
}

// ColumnNames returns the table's column names in declaration order, for
// use with planner.ChoosePlan.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// IndexDescriptors adapts this table's indexes to planner.ChoosePlan's input shape.
func (t *Table) IndexDescriptors() []planner.IndexDescriptor {
	out := make([]planner.IndexDescriptor, len(t.Indexes))
	for i, idx := range t.Indexes {
		out[i] = planner.IndexDescriptor{Root: idx.RootPage, Column: idx.Column}
	}
	return out
}

// ResolveColumn maps a column name to a ColumnRef, substituting the row-id
// sentinel for an INTEGER PRIMARY KEY column (its on-disk value is NULL;
// the row-id itself is the column's real value).
func (t *Table) ResolveColumn(name string) (predicate.ColumnRef, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			if c.IsIntegerRowID {
				return predicate.RowID, true
			}
			return predicate.Column(i), true
		}
	}
	return predicate.ColumnRef{}, false
}

// ResolveProjection maps a raw SELECT column list (an empty name element
// means COUNT(*)) to planner.ProjItem. Reports false if any name doesn't
// resolve to a column of this table.
func (t *Table) ResolveProjection(names []string) ([]planner.ProjItem, bool) {
	items := make([]planner.ProjItem, len(names))
	for i, n := range names {
		if n == "" {
			items[i] = planner.ProjItem{Kind: planner.ProjCount}
			continue
		}
		ref, ok := t.ResolveColumn(n)
		if !ok {
			return nil, false
		}
		if ref.IsRowID {
			items[i] = planner.ProjItem{Kind: planner.ProjRowID}
		} else {
			items[i] = planner.ProjItem{Kind: planner.ProjColumn, ColumnIndex: ref.Index}
		}
	}
	return items, true
}

// Catalog is the bootstrapped database schema, plus the two fields
// `.dbinfo` needs straight from the file/page headers.
type Catalog struct {
	PageSize        int
	SchemaCellCount int

	order  []string
	tables map[string]*Table
}

// Tables returns table names in schema order, for `.tables`.
func (c *Catalog) Tables() []string {
	return append([]string(nil), c.order...)
}

// Table looks up a bootstrapped table by name.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Bootstrap reads the schema table at page 1 through tree and resolves
// every table's columns and indexes. pageSize and schemaCellCount are
// read directly from the file header and page 1's page header by the
// caller and simply carried on the Catalog (the CLI's `.dbinfo` prints them
// from those headers directly, without bootstrapping a Catalog).
func Bootstrap(tree *btree.Tree, pageSize, schemaCellCount int) (*Catalog, error) {
	tableRows, err := runSchemaQuery(tree, "table")
	if err != nil {
		return nil, err
	}
	indexRows, err := runSchemaQuery(tree, "index")
	if err != nil {
		return nil, err
	}

	cat := &Catalog{
		PageSize:        pageSize,
		SchemaCellCount: schemaCellCount,
		tables:          make(map[string]*Table),
	}

	for _, row := range tableRows {
		name, rootPage, sql := row[0], row[1], row[2]
		root, err := strconv.Atoi(rootPage)
		if err != nil {
			return nil, liteerr.New("schema.Bootstrap", liteerr.InvalidStatement, err,
				map[string]any{"table": name, "rootpage": rootPage})
		}
		cols, err := ddl.ParseCreateTable(sql)
		if err != nil {
			return nil, err
		}
		cat.tables[name] = &Table{Name: name, RootPage: root, Columns: cols}
		cat.order = append(cat.order, name)
	}

	for _, row := range indexRows {
		name, tblName, rootPage, sql := row[0], row[1], row[2], row[3]
		root, err := strconv.Atoi(rootPage)
		if err != nil {
			return nil, liteerr.New("schema.Bootstrap", liteerr.InvalidStatement, err,
				map[string]any{"index": name, "rootpage": rootPage})
		}
		desc, err := ddl.ParseCreateIndex(root, name, sql)
		if err != nil {
			return nil, err
		}
		if len(desc.Columns) == 0 {
			continue
		}
		table, ok := cat.tables[tblName]
		if !ok {
			continue // index on a table we failed to resolve; ignore rather than fail the whole catalog
		}
		table.Indexes = append(table.Indexes, Index{Name: name, RootPage: root, Column: desc.Columns[0]})
	}

	return cat, nil
}

// runSchemaQuery runs a full scan over the schema table filtered to the
// given type ("table" or "index"), projecting the columns each caller
// needs out of the sqlite_master record layout.
func runSchemaQuery(tree *btree.Tree, typ string) ([][]string, error) {
	var projection []planner.ProjItem
	switch typ {
	case "table":
		projection = []planner.ProjItem{
			{Kind: planner.ProjColumn, ColumnIndex: colName},
			{Kind: planner.ProjColumn, ColumnIndex: colRootPage},
			{Kind: planner.ProjColumn, ColumnIndex: colSQL},
		}
	case "index":
		projection = []planner.ProjItem{
			{Kind: planner.ProjColumn, ColumnIndex: colName},
			{Kind: planner.ProjColumn, ColumnIndex: colTblName},
			{Kind: planner.ProjColumn, ColumnIndex: colRootPage},
			{Kind: planner.ProjColumn, ColumnIndex: colSQL},
		}
	}

	plan := &planner.Plan{
		TableRoot:  schemaRoot,
		Projection: projection,
		Where: &predicate.Where{
			Expr: predicate.Expr{Column: predicate.Column(colType), Op: predicate.Eq, Value: typ},
		},
	}
	return plan.Execute(tree)
}
