package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRejectsZeroNormCosine(t *testing.T) {
	require := require.New(t)
	err := Validate(Vector{0, 0, 0}, SimilarityCosine)
	require.Error(err)
}

func TestValidateRejectsNonFinite(t *testing.T) {
	require := require.New(t)
	err := Validate(Vector{float32(math.NaN()), 1, 1}, SimilarityEuclidean)
	require.Error(err)
}

func TestValidateAllowsZeroNormNonCosine(t *testing.T) {
	require := require.New(t)
	require.NoError(Validate(Vector{0, 0, 0}, SimilarityEuclidean))
}

func TestScoreDescendingOrder(t *testing.T) {
	require := require.New(t)
	q := Vector{1, 0, 0}
	near := Vector{0.9, 0.1, 0}
	far := Vector{-1, 0, 0}
	require.Greater(Score(q, near, SimilarityCosine), Score(q, far, SimilarityCosine))
}

func TestGraphInsertSearchAndExactDuplicate(t *testing.T) {
	require := require.New(t)
	g := NewGraph(GraphOptions{MaxConnections: 4, ConstructionBeam: 10, Similarity: SimilarityEuclidean})

	vecs := map[uint32]Vector{
		0: {1, 2, 3},
		1: {2, 3, 4},
		2: {3, 4, 5},
		3: {4, 5, 6},
	}
	for row, v := range vecs {
		require.NoError(g.Insert(row, v))
	}
	// exact duplicate attaches to the same node rather than creating a new one.
	require.NoError(g.Insert(4, Vector{1, 2, 3}))
	require.Equal(4, g.Len())

	results := g.Search(Vector{2.5, 3.5, 4.5}, 3, nil)
	require.Len(results, 3)
	top2 := map[uint32]bool{results[0].Row: true, results[1].Row: true}
	require.True(top2[1] || top2[2])
}

func TestGraphDeleteTombstonesEmptyNode(t *testing.T) {
	require := require.New(t)
	g := NewGraph(GraphOptions{Similarity: SimilarityEuclidean})
	require.NoError(g.Insert(1, Vector{1, 1, 1}))
	require.Equal(1, g.Len())
	g.Delete(1)
	require.Equal(0, g.Len())
}

func TestDiskANNSortOnly(t *testing.T) {
	require := require.New(t)
	nodes := []SnapshotNode{
		{Vector: Vector{1, 2, 3}, Rows: []uint32{0}},
		{Vector: Vector{2, 3, 4}, Rows: []uint32{1}},
		{Vector: Vector{3, 4, 5}, Rows: []uint32{2}},
		{Vector: Vector{4, 5, 6}, Rows: []uint32{3}},
	}
	d := BuildDiskANN(nodes, GraphOptions{MaxConnections: 2, Similarity: SimilarityEuclidean})

	results := d.Search(Vector{2.5, 3.5, 4.5}, SearchOptions{Limit: 3})
	require.Len(results, 3)
	rows := map[uint32]bool{results[0].Row: true, results[1].Row: true}
	require.True(rows[1] && rows[2])
}

func TestDiskANNFilterThenSort(t *testing.T) {
	require := require.New(t)
	nodes := []SnapshotNode{
		{Vector: Vector{1, 2, 3}, Rows: []uint32{0}},
		{Vector: Vector{2, 3, 4}, Rows: []uint32{1}},
		{Vector: Vector{3, 4, 5}, Rows: []uint32{2}},
		{Vector: Vector{4, 5, 6}, Rows: []uint32{3}},
	}
	d := BuildDiskANN(nodes, GraphOptions{MaxConnections: 2, Similarity: SimilarityEuclidean})

	results := d.Search(Vector{2.5, 3.5, 4.5}, SearchOptions{
		Limit:         2,
		CandidateRows: []uint32{0, 1},
	})
	require.Len(results, 2)
	for _, r := range results {
		require.True(r.Row == 0 || r.Row == 1)
	}
}

func TestMergeTopK(t *testing.T) {
	require := require.New(t)
	a := []ResultRow{{Row: 1, Score: 0.9}, {Row: 2, Score: 0.5}}
	b := []ResultRow{{Row: 3, Score: 0.95}, {Row: 4, Score: 0.1}}

	merged := MergeTopK(2, a, b)
	require.Len(merged, 2)
	require.Equal(uint32(3), merged[0].Row)
	require.Equal(uint32(1), merged[1].Row)
}

func TestDotProductPrefersLargerNormOverAngle(t *testing.T) {
	require := require.New(t)
	q := Vector{10, 0}
	small := Vector{1, 0}   // same direction, small norm
	large := Vector{0.9, 0.1} // slightly different direction but could have bigger dot if scaled; use explicit large-norm vector
	large = Vector{5, 0}

	require.Greater(Score(q, large, SimilarityDotProduct), Score(q, small, SimilarityDotProduct))
}

func TestDetectUnitVectors(t *testing.T) {
	require := require.New(t)
	unit := []Vector{{1, 0}, {0, 1}, {0.6, 0.8}}
	require.True(DetectUnitVectors(unit, 1e-6))

	mixed := []Vector{{1, 0}, {2, 0}}
	require.False(DetectUnitVectors(mixed, 1e-6))
}

func TestCodebookEncodeApproxDistance(t *testing.T) {
	require := require.New(t)
	vectors := make([]Vector, 0, 1200)
	for i := 0; i < 1200; i++ {
		vectors = append(vectors, Vector{float32(i % 10), float32((i / 10) % 10), float32(i % 7), float32(i % 3)})
	}
	cb := TrainCodebook(vectors, 2, 16, 5)
	require.NotNil(cb)

	codes := cb.Encode(vectors[0])
	require.Len(codes, 2)

	d := cb.ApproxDistance(vectors[0], codes)
	require.GreaterOrEqual(d, 0.0)
}
