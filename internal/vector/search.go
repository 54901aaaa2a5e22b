package vector

import (
	"container/heap"
	"sort"
)

// MaxBruteForceRows is the default candidate-count threshold below which
// filter-then-sort scores exhaustively instead of running ANN
// (spec.md 4.4 "max_brute_force_rows").
const MaxBruteForceRows = 2000

// SearchOptions tunes a single DiskANN query.
type SearchOptions struct {
	Limit           int
	MaxBruteForce   int
	CandidateRows   []uint32 // non-nil => filter-then-sort restricted to these rows
}

// Search runs sort-only (CandidateRows == nil) or filter-then-sort
// (CandidateRows != nil) against d and returns up to Limit ranked rows.
func (d *DiskANN) Search(q Vector, opts SearchOptions) []ResultRow {
	if opts.MaxBruteForce <= 0 {
		opts.MaxBruteForce = MaxBruteForceRows
	}
	sim := d.effectiveSimilarity()

	if opts.CandidateRows == nil {
		return d.sortOnly(q, opts.Limit, sim)
	}

	candidateSet := make(map[uint32]bool, len(opts.CandidateRows))
	for _, r := range opts.CandidateRows {
		candidateSet[r] = true
	}
	if len(opts.CandidateRows) <= opts.MaxBruteForce {
		return d.bruteForce(q, candidateSet, opts.Limit, sim)
	}
	return d.searchThenFilter(q, candidateSet, opts.Limit, sim)
}

// sortOnly scores every ordinal (the graph traversal would do this via
// neighbors; at read scale we score directly, using PQ distance when a
// codebook is trained and reranking on exact vectors, per spec.md 4.4).
func (d *DiskANN) sortOnly(q Vector, limit int, sim Similarity) []ResultRow {
	type cand struct {
		ord   int
		score float64
	}
	cands := make([]cand, 0, len(d.vectors))
	for ord, v := range d.vectors {
		if len(d.rows[ord]) == 0 {
			// concurrent deletion emptied this ordinal's row set mid-query;
			// skip it (spec.md 4.4 edge case).
			continue
		}
		var score float64
		if d.codebook != nil {
			score = -d.codebook.ApproxDistance(q, d.codes[ord])
		} else {
			score = Score(q, v, sim)
		}
		cands = append(cands, cand{ord, score})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	rerankN := limit * 4
	if rerankN > len(cands) || rerankN <= 0 {
		rerankN = len(cands)
	}
	top := cands[:rerankN]
	for i := range top {
		top[i].score = Score(q, d.vectors[top[i].ord], sim)
	}
	sort.Slice(top, func(i, j int) bool { return top[i].score > top[j].score })

	return d.expandToRows(top, limit)
}

func (d *DiskANN) expandToRows(cands []struct {
	ord   int
	score float64
}, limit int) []ResultRow {
	var out []ResultRow
	for _, c := range cands {
		for _, row := range d.rows[c.ord] {
			out = append(out, ResultRow{Row: row, Score: c.score})
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

// bruteForce loads candidate vectors and scores exhaustively, per spec.md
// 4.4 "Brute-force".
func (d *DiskANN) bruteForce(q Vector, candidates map[uint32]bool, limit int, sim Similarity) []ResultRow {
	var results []ResultRow
	for ord, rows := range d.rows {
		for _, row := range rows {
			if !candidates[row] {
				continue
			}
			results = append(results, ResultRow{Row: row, Score: Score(q, d.vectors[ord], sim)})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// searchThenFilter is the path for candidate sets larger than MaxBruteForce.
// It scores every ordinal that holds at least one candidate row with the
// exact similarity and returns the candidate rows of the best ordinals, up
// to limit. It does not traverse the graph, use PQ codes, or widen a beam.
func (d *DiskANN) searchThenFilter(q Vector, candidates map[uint32]bool, limit int, sim Similarity) []ResultRow {
	type cand struct {
		ord   int
		score float64
	}
	var all []cand
	for ord, v := range d.vectors {
		rows := d.rows[ord]
		keep := false
		for _, r := range rows {
			if candidates[r] {
				keep = true
				break
			}
		}
		if !keep {
			continue
		}
		all = append(all, cand{ord, Score(q, v, sim)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score > all[j].score })

	var out []ResultRow
	for _, c := range all {
		for _, row := range d.rows[c.ord] {
			if candidates[row] {
				out = append(out, ResultRow{Row: row, Score: c.score})
			}
		}
		if len(out) >= limit {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// resultHeap is a min-heap over ResultRow.Score, used by MergeTopK to keep
// only the best `limit` results across many segments without sorting the
// whole union (spec.md 4.4 "Merge top-k across segments (max-heap of size
// limit)" -- a bounded min-heap achieves the same "keep best k" result).
type resultHeap []ResultRow

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x interface{}) { *h = append(*h, x.(ResultRow)) }
func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// MergeTopK merges ranked per-segment results into a single descending-score
// top-k, per spec.md 4.4 "Merge top-k across segments".
func MergeTopK(limit int, perSegment ...[]ResultRow) []ResultRow {
	h := &resultHeap{}
	heap.Init(h)
	for _, seg := range perSegment {
		for _, r := range seg {
			if h.Len() < limit {
				heap.Push(h, r)
				continue
			}
			if r.Score > (*h)[0].Score {
				heap.Pop(h)
				heap.Push(h, r)
			}
		}
	}
	out := make([]ResultRow, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(ResultRow)
	}
	return out
}
