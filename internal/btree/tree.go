// Package btree walks the on-disk B-tree structure: full table scans,
// row-id targeted descent, and index-assisted predicate descent.
package btree

import (
	"fmt"

	"github.com/nnamm/litesql/internal/liteerr"
	"github.com/nnamm/litesql/internal/pageformat"
	"github.com/nnamm/litesql/internal/pager"
	"github.com/nnamm/litesql/internal/predicate"
	"github.com/nnamm/litesql/internal/record"
)

// Tree reads table and index B-trees through a shared Pager.
type Tree struct {
	pager *pager.Pager
}

// New wraps p as a Tree.
func New(p *pager.Pager) *Tree {
	return &Tree{pager: p}
}

// EnumerateTable returns every row in the table rooted at page root, via a
// full recursive descent of every page.
func (t *Tree) EnumerateTable(root int) ([]*record.Cell, error) {
	pg, err := t.pager.ReadPage(root)
	if err != nil {
		return nil, err
	}
	if !pg.Header.PageType.IsTable() {
		return nil, liteerr.New("btree.EnumerateTable", liteerr.InvalidPageType,
			fmt.Errorf("page %d is %s, not a table page", root, pg.Header.PageType), nil)
	}

	if pg.Header.PageType == pageformat.LeafTable {
		return t.enumerateLeaf(pg)
	}
	return t.enumerateInterior(pg)
}

func (t *Tree) enumerateLeaf(pg *pager.Page) ([]*record.Cell, error) {
	cells := make([]*record.Cell, 0, pg.Header.CellCount)
	for i := 0; i < int(pg.Header.CellCount); i++ {
		off, err := pg.CellOffset(i)
		if err != nil {
			return nil, err
		}
		c, err := parseTableLeafCell(pg.Bytes, off)
		if err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, nil
}

func (t *Tree) enumerateInterior(pg *pager.Page) ([]*record.Cell, error) {
	var out []*record.Cell
	for i := 0; i < int(pg.Header.CellCount); i++ {
		off, err := pg.CellOffset(i)
		if err != nil {
			return nil, err
		}
		entry, err := parseTableInteriorCell(pg.Bytes, off)
		if err != nil {
			return nil, err
		}
		rows, err := t.EnumerateTable(int(entry.leftChild))
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	rows, err := t.EnumerateTable(int(pg.Header.RightmostPointer))
	if err != nil {
		return nil, err
	}
	return append(out, rows...), nil
}

// FindRows returns the rows of the table rooted at page root whose rowid is
// in the given set, descending only into the subtrees that can contain a
// matching rowid. The cell-pointer array within a page is already ascending
// by key, so interior cells partition the rowid space without any sorting.
func (t *Tree) FindRows(root int, rowids map[int64]struct{}) ([]*record.Cell, error) {
	if len(rowids) == 0 {
		return nil, nil
	}
	pg, err := t.pager.ReadPage(root)
	if err != nil {
		return nil, err
	}
	if !pg.Header.PageType.IsTable() {
		return nil, liteerr.New("btree.FindRows", liteerr.InvalidPageType,
			fmt.Errorf("page %d is %s, not a table page", root, pg.Header.PageType), nil)
	}

	if pg.Header.PageType == pageformat.LeafTable {
		leaf, err := t.enumerateLeaf(pg)
		if err != nil {
			return nil, err
		}
		var out []*record.Cell
		for _, c := range leaf {
			id, err := c.Rowid()
			if err != nil {
				return nil, err
			}
			if _, ok := rowids[id]; ok {
				out = append(out, c)
			}
		}
		return out, nil
	}

	entries := make([]interiorEntry, pg.Header.CellCount)
	for i := range entries {
		off, err := pg.CellOffset(i)
		if err != nil {
			return nil, err
		}
		e, err := parseTableInteriorCell(pg.Bytes, off)
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}

	partitions := make(map[uint32]map[int64]struct{})
	assign := func(child uint32, id int64) {
		set, ok := partitions[child]
		if !ok {
			set = make(map[int64]struct{})
			partitions[child] = set
		}
		set[id] = struct{}{}
	}
	for id := range rowids {
		child := pg.Header.RightmostPointer
		for _, e := range entries {
			if id < e.rowid {
				child = e.leftChild
				break
			}
		}
		assign(child, id)
	}

	var out []*record.Cell
	for child, set := range partitions {
		rows, err := t.FindRows(int(child), set)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// IndexSearch returns the rowids of entries in the index rooted at page root
// whose first indexed column satisfies `op value`. For Eq it always
// additionally descends into the left child of any equal separator (to
// reach duplicate keys sitting further left) and, as a deliberate
// simplification of the range-operator rightmost-descent rule, always
// descends the rightmost pointer too (see DESIGN.md). For Lt and Le every
// left child is descended. This may visit subtrees that hold no match, but
// every separator and leaf entry is checked against `op value` before its
// rowid is emitted, so the result is exactly the matching rowids.
func (t *Tree) IndexSearch(root int, op predicate.Op, value string) ([]int64, error) {
	pg, err := t.pager.ReadPage(root)
	if err != nil {
		return nil, err
	}
	if !pg.Header.PageType.IsIndex() {
		return nil, liteerr.New("btree.IndexSearch", liteerr.InvalidPageType,
			fmt.Errorf("page %d is %s, not an index page", root, pg.Header.PageType), nil)
	}

	if pg.Header.PageType == pageformat.LeafIndex {
		return t.indexSearchLeaf(pg, op, value)
	}
	return t.indexSearchInterior(pg, op, value)
}

func (t *Tree) indexSearchLeaf(pg *pager.Page, op predicate.Op, value string) ([]int64, error) {
	var out []int64
	for i := 0; i < int(pg.Header.CellCount); i++ {
		off, err := pg.CellOffset(i)
		if err != nil {
			return nil, err
		}
		c, err := parseIndexLeafCell(pg.Bytes, off)
		if err != nil {
			return nil, err
		}
		key, err := c.Compare(0)
		if err != nil {
			return nil, err
		}
		if op.Apply(key, value) {
			id, err := c.Rowid()
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
	}
	return out, nil
}

func (t *Tree) indexSearchInterior(pg *pager.Page, op predicate.Op, value string) ([]int64, error) {
	var out []int64
	descend := func(child uint32) error {
		rows, err := t.IndexSearch(int(child), op, value)
		if err != nil {
			return err
		}
		out = append(out, rows...)
		return nil
	}

	for i := 0; i < int(pg.Header.CellCount); i++ {
		off, err := pg.CellOffset(i)
		if err != nil {
			return nil, err
		}
		entry, err := parseIndexInteriorCell(pg.Bytes, off)
		if err != nil {
			return nil, err
		}
		key, err := entry.key.Compare(0)
		if err != nil {
			return nil, err
		}

		switch op {
		case predicate.Eq:
			if predicate.Eq.Apply(key, value) {
				id, err := entry.key.Rowid()
				if err != nil {
					return nil, err
				}
				out = append(out, id)
				if err := descend(entry.leftChild); err != nil {
					return nil, err
				}
			} else if predicate.Lt.Apply(value, key) {
				if err := descend(entry.leftChild); err != nil {
					return nil, err
				}
			}
		case predicate.Lt, predicate.Le, predicate.Gt, predicate.Ge:
			if op.Apply(key, value) {
				id, err := entry.key.Rowid()
				if err != nil {
					return nil, err
				}
				out = append(out, id)
			}
			// The left child holds keys below the separator: for < and <= it
			// can always hold matches; for > only when key > value, for >=
			// only when key >= value.
			descendLeft := op == predicate.Lt || op == predicate.Le ||
				(op == predicate.Gt && predicate.Gt.Apply(key, value)) ||
				(op == predicate.Ge && predicate.Ge.Apply(key, value))
			if descendLeft {
				if err := descend(entry.leftChild); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := descend(pg.Header.RightmostPointer); err != nil {
		return nil, err
	}
	return out, nil
}
