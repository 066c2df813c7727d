package planner

import "github.com/nnamm/litesql/internal/predicate"

// IndexDescriptor is the minimal view of a table's index ChoosePlan needs:
// its root page and the name of its first indexed column (a multi-column
// index is eligible for index-assisted plans through that column only).
type IndexDescriptor struct {
	Root   int
	Column string
}

// ChoosePlan decides whether where is eligible for an index-assisted plan:
// it must be a single predicate (no AND/OR chain) against a non-row-id
// column that is the indexed column of one of indexes. Compound predicates
// never pick an index, even when one side would otherwise match.
func ChoosePlan(columnNames []string, indexes []IndexDescriptor, where *predicate.Where) *IndexPlan {
	col, op, value, ok := where.SingleColumn()
	if !ok || col.IsRowID {
		return nil
	}
	if col.Index < 0 || col.Index >= len(columnNames) {
		return nil
	}
	name := columnNames[col.Index]
	for _, idx := range indexes {
		if idx.Column == name {
			return &IndexPlan{Root: idx.Root, Column: col, Op: op, Value: value}
		}
	}
	return nil
}
