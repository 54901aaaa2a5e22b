package vector

import (
	"sort"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// GraphOptions tunes the incremental graph construction, per spec.md 4.4:
// "maximum_node_connections (M), construction_beam_width (efConstruction)".
type GraphOptions struct {
	MaxConnections      int
	ConstructionBeam    int
	Similarity          Similarity
}

func defaultGraphOptions() GraphOptions {
	return GraphOptions{MaxConnections: 16, ConstructionBeam: 100, Similarity: SimilarityCosine}
}

// graphNode is one ordinal's adjacency list plus the row ids sharing its
// vector (spec.md 4.4: "Nodes are (ordinal -> row-id-set, vector)").
type graphNode struct {
	vector    Vector
	rows      map[uint32]struct{}
	neighbors []int32
}

// Graph is the memtable's incremental, concurrently-read/written vector
// index. Deletions are logical (tombstoned) until flush, per spec.md 4.4
// and design note "Concurrency of graph writes + reads".
type Graph struct {
	mu       sync.RWMutex
	opts     GraphOptions
	nodes    []*graphNode // dense by ordinal; nil once reclaimed
	deleted  *bitset.BitSet
	entry    int32 // entry-point ordinal, -1 if empty
}

// NewGraph returns an empty Graph.
func NewGraph(opts GraphOptions) *Graph {
	if opts.MaxConnections <= 0 {
		opts = defaultGraphOptions()
	}
	return &Graph{opts: opts, deleted: bitset.New(0), entry: -1}
}

// Insert adds row's vector v. If v exactly matches an existing node's
// vector, row is attached to that node instead of creating a new one.
func (g *Graph) Insert(row uint32, v Vector) error {
	if err := Validate(v, g.opts.Similarity); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for ord, n := range g.nodes {
		if n == nil || g.deleted.Test(uint(ord)) {
			continue
		}
		if Equal(n.vector, v) {
			n.rows[row] = struct{}{}
			return nil
		}
	}

	ord := int32(len(g.nodes))
	n := &graphNode{vector: v, rows: map[uint32]struct{}{row: {}}}
	g.nodes = append(g.nodes, n)

	if g.entry == -1 {
		g.entry = ord
		return nil
	}

	// connect to the best-scoring live nodes found by searchLocked
	// (spec.md 4.4: "add a node and connect via search").
	candidates := g.searchLocked(v, g.opts.ConstructionBeam, nil)
	connected := 0
	for _, c := range candidates {
		if connected >= g.opts.MaxConnections {
			break
		}
		if int32(c.ordinal) == ord {
			continue
		}
		n.neighbors = append(n.neighbors, int32(c.ordinal))
		other := g.nodes[c.ordinal]
		other.neighbors = append(other.neighbors, ord)
		connected++
	}
	return nil
}

// Delete removes row from its node's row-id-set; if the set empties, the
// ordinal is tombstoned (spec.md 4.4).
func (g *Graph) Delete(row uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for ord, n := range g.nodes {
		if n == nil || g.deleted.Test(uint(ord)) {
			continue
		}
		if _, ok := n.rows[row]; ok {
			delete(n.rows, row)
			if len(n.rows) == 0 {
				g.deleted.Set(uint(ord))
			}
			return
		}
	}
}

// scored is one search result: ordinal plus its similarity score.
type scored struct {
	ordinal int
	score   float64
}

// Search returns up to limit rows in descending score order, drawn from the
// best beam-width candidates searchLocked finds (beam starts at
// ConstructionBeam, or 4*limit when that is smaller than limit). filter, if
// non-nil, restricts results to ordinals for which it returns true, and
// the beam is doubled, up to three times, while fewer than limit rows
// survive. It does not walk the graph from the entry point.
func (g *Graph) Search(q Vector, limit int, filter func(ord int) bool) []ResultRow {
	g.mu.RLock()
	defer g.mu.RUnlock()

	beam := g.opts.ConstructionBeam
	if beam < limit {
		beam = limit * 4
	}
	var results []ResultRow
	for attempt := 0; attempt < 4; attempt++ {
		cands := g.searchLocked(q, beam, filter)
		results = results[:0]
		for _, c := range cands {
			n := g.nodes[c.ordinal]
			for row := range n.rows {
				results = append(results, ResultRow{Row: row, Score: c.score})
			}
		}
		sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
		if len(results) >= limit || beam >= len(g.nodes) {
			break
		}
		beam *= 2
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// ResultRow is one ranked ANN hit.
type ResultRow struct {
	Row   uint32
	Score float64
}

// SearchCandidates restricts results to rows in candidates (spec.md 4.4
// filter-then-sort, at memtable scale: the live graph is small enough that
// a direct row-set intersection per ordinal is cheaper than widening a
// beam search). Unlike Search's ordinal-level filter, this also drops the
// non-candidate rows of an otherwise-matching ordinal.
func (g *Graph) SearchCandidates(q Vector, limit int, candidates map[uint32]bool) []ResultRow {
	hasCandidate := func(ord int) bool {
		for row := range g.nodes[ord].rows {
			if candidates[row] {
				return true
			}
		}
		return false
	}
	raw := g.Search(q, limit*4+limit, hasCandidate)
	out := make([]ResultRow, 0, len(raw))
	for _, r := range raw {
		if candidates[r.Row] {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	return out
}

// searchLocked scores every live node that passes filter and returns the
// beamWidth best in descending score order (all of them when beamWidth <= 0);
// it does not traverse neighbor lists. Callers hold g.mu. An ordinal whose
// row-id-set has emptied is skipped (spec.md 4.4 edge case: "if an
// ordinal's row-id-set empties mid-query, skip it").
func (g *Graph) searchLocked(q Vector, beamWidth int, filter func(ord int) bool) []scored {
	var all []scored
	for ord, n := range g.nodes {
		if n == nil || g.deleted.Test(uint(ord)) || len(n.rows) == 0 {
			continue
		}
		if filter != nil && !filter(ord) {
			continue
		}
		all = append(all, scored{ordinal: ord, score: Score(q, n.vector, g.opts.Similarity)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score > all[j].score })
	if beamWidth > 0 && len(all) > beamWidth {
		all = all[:beamWidth]
	}
	return all
}

// Len returns the number of live (non-tombstoned, non-empty) nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for ord, node := range g.nodes {
		if node != nil && !g.deleted.Test(uint(ord)) && len(node.rows) > 0 {
			n++
		}
	}
	return n
}

// Snapshot returns every live (vector, rows) pair, in ordinal order, for
// flushing into an on-disk segment (spec.md 4.6: "the in-memory structure
// seeds the segment writer").
func (g *Graph) Snapshot() []SnapshotNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []SnapshotNode
	for ord, n := range g.nodes {
		if n == nil || g.deleted.Test(uint(ord)) || len(n.rows) == 0 {
			continue
		}
		rows := make([]uint32, 0, len(n.rows))
		for r := range n.rows {
			rows = append(rows, r)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })
		out = append(out, SnapshotNode{Vector: n.vector, Rows: rows})
	}
	return out
}

// SnapshotNode is one flushed graph node.
type SnapshotNode struct {
	Vector Vector
	Rows   []uint32
}
