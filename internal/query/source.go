package query

import (
	"github.com/saiengine/sai/internal/literal"
	"github.com/saiengine/sai/internal/posting"
	"github.com/saiengine/sai/internal/vector"
)

// LiteralAccess is satisfied by both literal.Index (SSTable segments) and
// memtable.Literal (the live index) -- their method sets are identical by
// construction so the executor can address either through this interface.
type LiteralAccess interface {
	ExactMatch(term []byte) posting.List
	RangeMatch(lower, upper []byte, filter literal.FilterFunc) posting.List
}

// NumericAccess is satisfied by both numeric.Tree and memtable.Numeric.
type NumericAccess interface {
	RangeQuery(lo, hi []byte) posting.List
}

// VectorAccess is satisfied by both vector.DiskANN and memtable.Vector.
type VectorAccess interface {
	Search(q vector.Vector, opts vector.SearchOptions) []vector.ResultRow
}

// PKResolver is the per-source primary-key map: posting.PKLookup for
// token-range restriction (spec.md 4.1), plus the row count every NOT
// CONTAINS/!= clause needs to build its complement (spec.md 6:
// "computing the complement against the primary-key map of the index's
// view"). Implemented by *rowid.Map for segments, and by a trivial
// always-true/RowCount-only adapter for the memtable (spec.md 4.7: "the
// live index has no persisted PK map; every row it holds is in range").
type PKResolver interface {
	posting.PKLookup
	RowCount() int
}

// LiveResolver adapts any memtable live index's RowCount into a PKResolver
// that treats every row as in range, since the memtable has no persisted
// token map to consult -- its rows are filtered by token range at the host
// layer before they ever reach the live index.
type LiveResolver struct {
	Index interface{ RowCount() int }
}

func (r LiveResolver) InRange(id uint32, lo, hi []byte) bool { return true }
func (r LiveResolver) RowCount() int                         { return r.Index.RowCount() }

// Source is one queryable unit: either the memtable's live index or one
// SSTable segment's index, over one column index. Only the accessor
// methods relevant to the column's Kind need be non-nil.
type Source struct {
	Name     string // sstable id, or "" for the memtable
	Literal  LiteralAccess
	Numeric  NumericAccess
	Vector   VectorAccess
	Resolver PKResolver
}
