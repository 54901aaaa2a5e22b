package memtable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiengine/sai/internal/posting"
	"github.com/saiengine/sai/internal/vector"
)

func TestLiteralExactAndRange(t *testing.T) {
	l := NewLiteral()
	l.Add([]byte("alice"), 0)
	l.Add([]byte("bob"), 1)
	l.Add([]byte("carol"), 2)
	l.Add([]byte("alice"), 3)

	require.Equal(t, []uint32{0, 3}, posting.Collect(l.ExactMatch([]byte("alice"))))
	require.Nil(t, posting.Collect(l.ExactMatch([]byte("dave"))))

	got := posting.Collect(l.RangeMatch([]byte("alice"), []byte("bob"), nil))
	require.Equal(t, []uint32{0, 1, 3}, got)
}

func TestLiteralNotContains(t *testing.T) {
	l := NewLiteral()
	l.Add([]byte("x"), 0)
	l.Add([]byte("y"), 1)
	l.Add([]byte("x"), 2)

	got := posting.Collect(l.NotContains([]byte("x")))
	require.Equal(t, []uint32{1}, got)
}

func TestLiteralRemoveAndSnapshot(t *testing.T) {
	l := NewLiteral()
	l.Add([]byte("x"), 0)
	l.Add([]byte("x"), 1)
	l.Remove([]byte("x"), 0)

	require.Equal(t, []uint32{1}, posting.Collect(l.ExactMatch([]byte("x"))))

	snap := l.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, []byte("x"), snap[0].Term)
}

func TestNumericRangeQuery(t *testing.T) {
	n := NewNumeric()
	n.Add([]byte{0, 1}, 0)
	n.Add([]byte{0, 3}, 1)
	n.Add([]byte{0, 5}, 2)

	got := posting.Collect(n.RangeQuery([]byte{0, 2}, []byte{0, 5}))
	require.Equal(t, []uint32{1, 2}, got)
	require.Equal(t, 3, n.RowCount())
}

func TestNumericSnapshotSortedOrder(t *testing.T) {
	n := NewNumeric()
	n.Add([]byte{0, 9}, 2)
	n.Add([]byte{0, 1}, 0)
	n.Add([]byte{0, 5}, 1)

	snap := n.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, []byte{0, 1}, snap[0].Key)
	require.Equal(t, []byte{0, 5}, snap[1].Key)
	require.Equal(t, []byte{0, 9}, snap[2].Key)
}

func TestVectorLiveIndexInsertSearchDelete(t *testing.T) {
	v := NewVector(vector.GraphOptions{MaxConnections: 4, ConstructionBeam: 10, Similarity: vector.SimilarityCosine})
	require.NoError(t, v.Add(0, vector.Vector{1, 0, 0}))
	require.NoError(t, v.Add(1, vector.Vector{0, 1, 0}))
	require.Equal(t, 2, v.RowCount())

	results := v.Search(vector.Vector{1, 0, 0}, vector.SearchOptions{Limit: 1})
	require.Len(t, results, 1)
	require.EqualValues(t, 0, results[0].Row)

	v.Remove(0)
	require.Equal(t, 1, v.RowCount())

	snap := v.Snapshot()
	require.Len(t, snap, 1)
}
