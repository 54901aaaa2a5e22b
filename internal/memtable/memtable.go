// Package memtable implements the per-column, per-memtable live index
// (spec.md 4.6): a byte-comparable sorted map from term to posting set for
// literal columns, a sorted multimap for numeric columns, and the
// in-memory vector graph for vector columns. Writes are acked
// synchronously; reads join the live index with every SSTable index's
// result via posting.Union.
//
// Grounded on the teacher's in-memory "mem"/"memory" table packages
// (exercised only through their _test.go files in the retrieval pack) for
// the general shape of a synchronously-written, concurrently-read live
// structure, generalized here from whole-table storage to one column's
// index.
package memtable

import (
	"bytes"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/saiengine/sai/internal/literal"
	"github.com/saiengine/sai/internal/posting"
	"github.com/saiengine/sai/internal/vector"
)

// LiveIndex is the common read surface every column kind's live index
// exposes to the query executor (spec.md 4.7 "for the memtable, open the
// live searcher").
type LiveIndex interface {
	// RowCount returns the number of rows currently indexed.
	RowCount() int
}

// Literal is the live index for a literal column: a sorted term ->
// *roaring.Bitmap map. Roaring bitmaps back the posting sets (rather than
// the plain sorted row-id arrays segment.WriteLiteralColumn persists) because the
// live index needs fast mutable add/remove and fast union across terms --
// exactly roaring's strength, and the concern the teacher covers with a
// bitmap index engine (pilosa) for the identical "value -> row set"
// mapping.
type Literal struct {
	mu      sync.RWMutex
	byTerm  map[string]*roaring.Bitmap
	terms   []string // kept sorted; rebuilt lazily
	dirty   bool
	rowSet  *roaring.Bitmap // every row ever added, for NOT-CONTAINS complement
}

// NewLiteral returns an empty literal live index.
func NewLiteral() *Literal {
	return &Literal{byTerm: make(map[string]*roaring.Bitmap), rowSet: roaring.New()}
}

// Add records that row matched term.
func (l *Literal) Add(term []byte, row uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := string(term)
	bm, ok := l.byTerm[key]
	if !ok {
		bm = roaring.New()
		l.byTerm[key] = bm
		l.dirty = true
	}
	bm.Add(row)
	l.rowSet.Add(row)
}

// Remove undoes a prior Add (e.g. a row deletion or a map value removed by
// an UPDATE, spec.md 3 "Write-time updates").
func (l *Literal) Remove(term []byte, row uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bm, ok := l.byTerm[string(term)]; ok {
		bm.Remove(row)
	}
}

func (l *Literal) ensureSorted() {
	if !l.dirty {
		return
	}
	l.terms = l.terms[:0]
	for k := range l.byTerm {
		l.terms = append(l.terms, k)
	}
	sort.Strings(l.terms)
	l.dirty = false
}

// ExactMatch returns the posting list for term.
func (l *Literal) ExactMatch(term []byte) posting.List {
	l.mu.RLock()
	defer l.mu.RUnlock()
	bm, ok := l.byTerm[string(term)]
	if !ok {
		return posting.Empty()
	}
	return posting.NewSlice(bm.ToArray())
}

// RangeMatch concatenates postings for every term in [lower, upper]
// (nil bound means unbounded), mirroring literal.Index.RangeMatch.
func (l *Literal) RangeMatch(lower, upper []byte, filter literal.FilterFunc) posting.List {
	l.mu.Lock() // ensureSorted may rebuild l.terms
	defer l.mu.Unlock()
	l.ensureSorted()

	lo := sort.SearchStrings(l.terms, string(lower))
	if lower == nil {
		lo = 0
	}
	hi := len(l.terms)
	if upper != nil {
		hi = sort.Search(len(l.terms), func(i int) bool { return l.terms[i] > string(upper) })
	}

	var lists []posting.List
	for i := lo; i < hi; i++ {
		if filter != nil && !filter([]byte(l.terms[i])) {
			continue
		}
		lists = append(lists, posting.NewSlice(l.byTerm[l.terms[i]].ToArray()))
	}
	if len(lists) == 0 {
		return posting.Empty()
	}
	return posting.Merge(lists...)
}

// NotContains computes the complement of term's posting set against every
// row this live index has ever seen, per spec.md 6: "the NOT CONTAINS/!=
// family is satisfied by computing the complement against the primary-key
// map... then subtracting the postings."
func (l *Literal) NotContains(term []byte) posting.List {
	l.mu.RLock()
	defer l.mu.RUnlock()
	complement := l.rowSet.Clone()
	if bm, ok := l.byTerm[string(term)]; ok {
		complement.AndNot(bm)
	}
	return posting.NewSlice(complement.ToArray())
}

// RowCount implements LiveIndex.
func (l *Literal) RowCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int(l.rowSet.GetCardinality())
}

// Snapshot returns every (term, rows) pair in ascending term order, for
// flushing into a segment.Builder (spec.md 4.6: "the in-memory structure
// seeds the segment writer").
func (l *Literal) Snapshot() []SnapshotEntry {
	l.mu.Lock() // ensureSorted may rebuild l.terms
	defer l.mu.Unlock()
	l.ensureSorted()
	out := make([]SnapshotEntry, 0, len(l.terms))
	for _, t := range l.terms {
		out = append(out, SnapshotEntry{Term: []byte(t), Rows: l.byTerm[t].ToArray()})
	}
	return out
}

// SnapshotEntry is one flushed literal term.
type SnapshotEntry struct {
	Term []byte
	Rows []uint32
}

// numericPoint is one (key, row) observation in a Numeric live index.
type numericPoint struct {
	key []byte
	row uint32
}

// Numeric is the live index for a numeric column: a sorted multimap keyed
// by the same fixed-width byte-comparable encoding numeric.Builder uses,
// so a flush can feed rows directly into a numeric.Builder without
// re-encoding.
type Numeric struct {
	mu     sync.RWMutex
	points []numericPoint // kept sorted by key
	dirty  bool
}

// NewNumeric returns an empty numeric live index.
func NewNumeric() *Numeric { return &Numeric{} }

// Add records that row has the given encoded key.
func (n *Numeric) Add(key []byte, row uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.points = append(n.points, numericPoint{key: append([]byte(nil), key...), row: row})
	n.dirty = true
}

func (n *Numeric) ensureSorted() {
	if !n.dirty {
		return
	}
	sort.Slice(n.points, func(i, j int) bool { return bytes.Compare(n.points[i].key, n.points[j].key) < 0 })
	n.dirty = false
}

// RangeQuery returns the sorted row ids with lo <= key <= hi.
func (n *Numeric) RangeQuery(lo, hi []byte) posting.List {
	n.mu.Lock() // ensureSorted may reorder n.points
	defer n.mu.Unlock()
	n.ensureSorted()

	start := sort.Search(len(n.points), func(i int) bool { return bytes.Compare(n.points[i].key, lo) >= 0 })
	var rows []uint32
	for i := start; i < len(n.points) && bytes.Compare(n.points[i].key, hi) <= 0; i++ {
		rows = append(rows, n.points[i].row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })
	return posting.NewSlice(rows)
}

// RowCount implements LiveIndex.
func (n *Numeric) RowCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.points)
}

// Snapshot returns every (key, row) pair in ascending key order.
func (n *Numeric) Snapshot() []SnapshotPoint {
	n.mu.Lock() // ensureSorted may reorder n.points
	defer n.mu.Unlock()
	n.ensureSorted()
	out := make([]SnapshotPoint, len(n.points))
	for i, p := range n.points {
		out[i] = SnapshotPoint{Key: p.key, Row: p.row}
	}
	return out
}

// SnapshotPoint is one flushed numeric (key, row) observation.
type SnapshotPoint struct {
	Key []byte
	Row uint32
}

// Vector is the live index for a vector column: a thin wrapper over
// vector.Graph (spec.md 4.6: "for vector, the in-memory graph (4.4)").
type Vector struct {
	graph *vector.Graph
}

// NewVector returns an empty vector live index.
func NewVector(opts vector.GraphOptions) *Vector {
	return &Vector{graph: vector.NewGraph(opts)}
}

// Add inserts row's vector.
func (v *Vector) Add(row uint32, vec vector.Vector) error { return v.graph.Insert(row, vec) }

// Remove tombstones row.
func (v *Vector) Remove(row uint32) { v.graph.Delete(row) }

// Search runs sort-only (opts.CandidateRows == nil) or filter-then-sort
// ANN search, matching vector.DiskANN.Search's signature exactly so
// internal/query can address both through one interface.
func (v *Vector) Search(q vector.Vector, opts vector.SearchOptions) []vector.ResultRow {
	if opts.CandidateRows == nil {
		return v.graph.Search(q, opts.Limit, nil)
	}
	candidates := make(map[uint32]bool, len(opts.CandidateRows))
	for _, r := range opts.CandidateRows {
		candidates[r] = true
	}
	return v.graph.SearchCandidates(q, opts.Limit, candidates)
}

// RowCount implements LiveIndex.
func (v *Vector) RowCount() int { return v.graph.Len() }

// Snapshot flattens the graph into segment-writer input (spec.md 4.6).
func (v *Vector) Snapshot() []vector.SnapshotNode { return v.graph.Snapshot() }
