package vector

import "sort"

// DiskANN is the read-only, flushed on-disk counterpart of Graph: an
// adjacency-list graph plus raw vectors, an ordinal -> segment_row_id* map
// (a single vector may be shared by multiple rows, spec.md 4.4), and an
// optional trained PQ codebook.
type DiskANN struct {
	opts        GraphOptions
	vectors     []Vector
	rows        [][]uint32 // per-ordinal row ids sharing that vector
	neighbors   [][]int32
	entry       int32
	codebook    *Codebook
	codes       [][]byte // per-ordinal PQ codes, present iff codebook != nil
	unitVectors bool     // true if segment is in "unit-vector mode" (4.4)
}

// BuildDiskANN flushes a Graph snapshot (or equivalently a segment
// builder's accumulated nodes) into a DiskANN, training a PQ codebook once
// the segment has >= MinPQRows rows.
func BuildDiskANN(nodes []SnapshotNode, opts GraphOptions) *DiskANN {
	d := &DiskANN{opts: opts, entry: -1}
	totalRows := 0
	for _, n := range nodes {
		d.vectors = append(d.vectors, n.Vector)
		d.rows = append(d.rows, n.Rows)
		totalRows += len(n.Rows)
	}
	if len(d.vectors) > 0 {
		d.entry = 0
	}
	d.neighbors = buildAdjacency(d.vectors, opts)

	if totalRows >= MinPQRows {
		d.codebook = TrainCodebook(d.vectors, pickNumSubvectors(d.vectors), 256, 10)
		d.codes = make([][]byte, len(d.vectors))
		for i, v := range d.vectors {
			d.codes[i] = d.codebook.Encode(v)
		}
		if opts.Similarity == SimilarityDotProduct {
			d.unitVectors = DetectUnitVectors(d.vectors, 1e-3)
		}
	}
	return d
}

func pickNumSubvectors(vectors []Vector) int {
	if len(vectors) == 0 {
		return 1
	}
	dim := len(vectors[0])
	for _, n := range []int{16, 8, 4, 2, 1} {
		if dim%n == 0 {
			return n
		}
	}
	return 1
}

// buildAdjacency connects each node to its MaxConnections nearest neighbors
// by brute force -- adequate at segment-build scale where the whole vector
// set is already materialized in memory.
func buildAdjacency(vectors []Vector, opts GraphOptions) [][]int32 {
	n := len(vectors)
	out := make([][]int32, n)
	for i := range vectors {
		type cand struct {
			j     int
			score float64
		}
		cands := make([]cand, 0, n-1)
		for j := range vectors {
			if i == j {
				continue
			}
			cands = append(cands, cand{j, Score(vectors[i], vectors[j], opts.Similarity)})
		}
		sort.Slice(cands, func(a, b int) bool { return cands[a].score > cands[b].score })
		m := opts.MaxConnections
		if m > len(cands) {
			m = len(cands)
		}
		neighbors := make([]int32, m)
		for k := 0; k < m; k++ {
			neighbors[k] = int32(cands[k].j)
		}
		out[i] = neighbors
	}
	return out
}

// RowsForOrdinal returns the segment_row_ids sharing ordinal's vector.
func (d *DiskANN) RowsForOrdinal(ord int) []uint32 { return d.rows[ord] }

// The accessors below expose DiskANN's internal fields for segment
// serialization (internal/segment writes one file per spec.md 6 component;
// DiskANN itself stays a single cohesive type rather than four).

func (d *DiskANN) Vectors() []Vector     { return d.vectors }
func (d *DiskANN) AllRows() [][]uint32   { return d.rows }
func (d *DiskANN) Neighbors() [][]int32  { return d.neighbors }
func (d *DiskANN) Similarity() Similarity { return d.opts.Similarity }
func (d *DiskANN) MaxConnections() int   { return d.opts.MaxConnections }
func (d *DiskANN) Codebook() *Codebook   { return d.codebook }
func (d *DiskANN) Codes() [][]byte       { return d.codes }
func (d *DiskANN) IsUnitVectorMode() bool { return d.unitVectors }

// FromComponents reconstructs a DiskANN from its serialized parts (the
// segment.Reader counterpart of the accessors above).
func FromComponents(vectors []Vector, rows [][]uint32, neighbors [][]int32, sim Similarity, maxConn int, cb *Codebook, codes [][]byte, unitVectors bool) *DiskANN {
	entry := int32(-1)
	if len(vectors) > 0 {
		entry = 0
	}
	return &DiskANN{
		opts:        GraphOptions{Similarity: sim, MaxConnections: maxConn},
		vectors:     vectors,
		rows:        rows,
		neighbors:   neighbors,
		entry:       entry,
		codebook:    cb,
		codes:       codes,
		unitVectors: unitVectors,
	}
}

// effectiveSimilarity returns cosine in place of dot-product when the
// segment was detected unit-vector (spec.md 4.4 "silently uses cosine for
// PQ-based comparisons").
func (d *DiskANN) effectiveSimilarity() Similarity {
	if d.unitVectors {
		return SimilarityCosine
	}
	return d.opts.Similarity
}
