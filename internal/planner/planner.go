// Package planner turns a table root, a projection list and an optional
// WHERE clause into a concrete execution against the B-tree layer, and
// decides when that execution can be index-assisted.
package planner

import (
	"strconv"

	"github.com/nnamm/litesql/internal/btree"
	"github.com/nnamm/litesql/internal/predicate"
	"github.com/nnamm/litesql/internal/record"
)

// ProjKind identifies what a single projected output column comes from.
type ProjKind int

const (
	ProjRowID ProjKind = iota
	ProjCount
	ProjColumn
)

// ProjItem is one item of a SELECT projection list.
type ProjItem struct {
	Kind        ProjKind
	ColumnIndex int // valid iff Kind == ProjColumn
}

// IndexPlan names the index-assisted path: search Root for rows whose
// indexed column satisfies `Op Value`, then materialize those row-ids
// against the table.
type IndexPlan struct {
	Root   int
	Column predicate.ColumnRef
	Op     predicate.Op
	Value  string
}

// Plan is a fully-resolved query: where to read rows from, how to filter
// them, and what to project out of each one.
type Plan struct {
	TableRoot  int
	Projection []ProjItem
	Where      *predicate.Where
	IndexPlan  *IndexPlan
}

// Execute runs the plan against tree and returns the projected rows, each
// as a slice of display-form strings in projection order.
func (p *Plan) Execute(tree *btree.Tree) ([][]string, error) {
	cells, err := p.materialize(tree)
	if err != nil {
		return nil, err
	}

	if len(p.Projection) == 1 && p.Projection[0].Kind == ProjCount {
		return [][]string{{strconv.Itoa(len(cells))}}, nil
	}

	rows := make([][]string, 0, len(cells))
	for _, c := range cells {
		row := make([]string, len(p.Projection))
		for i, item := range p.Projection {
			switch item.Kind {
			case ProjRowID:
				id, err := c.Rowid()
				if err != nil {
					return nil, err
				}
				row[i] = strconv.FormatInt(id, 10)
			case ProjCount:
				row[i] = strconv.Itoa(len(cells))
			case ProjColumn:
				s, err := c.Display(item.ColumnIndex)
				if err != nil {
					return nil, err
				}
				row[i] = s
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// materialize resolves the row set (index-assisted or full scan) and
// applies the WHERE filter. record.Cell satisfies predicate.Row directly,
// so no adapter type is needed between btree and predicate evaluation.
func (p *Plan) materialize(tree *btree.Tree) ([]*record.Cell, error) {
	var cells []*record.Cell
	var err error
	if p.IndexPlan != nil {
		rowids, ierr := tree.IndexSearch(p.IndexPlan.Root, p.IndexPlan.Op, p.IndexPlan.Value)
		if ierr != nil {
			return nil, ierr
		}
		set := make(map[int64]struct{}, len(rowids))
		for _, id := range rowids {
			set[id] = struct{}{}
		}
		cells, err = tree.FindRows(p.TableRoot, set)
	} else {
		cells, err = tree.EnumerateTable(p.TableRoot)
	}
	if err != nil {
		return nil, err
	}
	if p.Where == nil {
		return cells, nil
	}

	out := cells[:0]
	for _, c := range cells {
		ok, err := p.Where.Evaluate(c)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}
