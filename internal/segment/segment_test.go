package segment

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiengine/sai/internal/config"
	"github.com/saiengine/sai/internal/literal"
	"github.com/saiengine/sai/internal/numeric"
	"github.com/saiengine/sai/internal/rowid"
	"github.com/saiengine/sai/internal/vector"
)

func tempDir(t *testing.T) Dir {
	t.Helper()
	path := t.TempDir()
	return Dir{Path: path, SSTable: "bigTableDb-1", Version: CurrentVersion}
}

func TestWriteReadLiteralColumnRoundTrip(t *testing.T) {
	d := tempDir(t)
	b := literal.NewBuilder()
	b.Add([]byte("alice"), 0)
	b.Add([]byte("bob"), 1)
	b.Add([]byte("alice"), 2)
	idx := b.Finish()

	require.NoError(t, WriteLiteralColumn(d, "name", idx))
	require.True(t, ColumnQueryable(d, "name"))

	got, err := ReadLiteralColumn(d, "name")
	require.NoError(t, err)
	require.Equal(t, idx.Entries(), got.Entries())
	require.Equal(t, idx.MinTerm(), got.MinTerm())
	require.Equal(t, idx.MaxTerm(), got.MaxTerm())
}

func TestWriteReadNumericColumnRoundTrip(t *testing.T) {
	d := tempDir(t)
	opts := numeric.Options{MaxPointsInLeaf: 2, BKDPostingsSkip: 2, BKDPostingsMinLeaves: 2}
	b := numeric.NewBuilder(opts)
	for i, k := range [][]byte{{0, 1}, {0, 2}, {0, 3}, {0, 4}, {0, 5}} {
		b.Add(k, uint32(i))
	}
	tree := b.Finish()

	require.NoError(t, WriteNumericColumn(d, "age", tree))
	require.True(t, ColumnQueryable(d, "age"))

	got, err := ReadNumericColumn(d, "age")
	require.NoError(t, err)
	require.ElementsMatch(t, tree.AllPoints(), got.AllPoints())

	rows := got.RangeQuery([]byte{0, 2}, []byte{0, 4}).Collect()
	require.Equal(t, []uint32{1, 2, 3}, rows)
}

func TestWriteReadVectorColumnRoundTrip(t *testing.T) {
	d := tempDir(t)
	nodes := []vector.SnapshotNode{
		{Vector: vector.Vector{1, 0, 0}, Rows: []uint32{0}},
		{Vector: vector.Vector{0, 1, 0}, Rows: []uint32{1}},
		{Vector: vector.Vector{0, 0, 1}, Rows: []uint32{2}},
	}
	opts := vector.GraphOptions{MaxConnections: 2, ConstructionBeam: 10, Similarity: vector.SimilarityCosine}
	ann := vector.BuildDiskANN(nodes, opts)

	require.NoError(t, WriteVectorColumn(d, "embedding", ann))
	require.True(t, ColumnQueryable(d, "embedding"))

	got, err := ReadVectorColumn(d, "embedding")
	require.NoError(t, err)
	require.Equal(t, ann.Vectors(), got.Vectors())
	require.Equal(t, ann.AllRows(), got.AllRows())
	require.Equal(t, ann.Similarity(), got.Similarity())
}

func TestWriteReadMetaRoundTrip(t *testing.T) {
	d := tempDir(t)
	require.NoError(t, WriteMeta(d, "name", 42, []byte("a"), []byte("z"), config.KindLiteral))

	rowCount, minTerm, maxTerm, err := ReadMeta(d, "name")
	require.NoError(t, err)
	require.Equal(t, 42, rowCount)
	require.Equal(t, []byte("a"), minTerm)
	require.Equal(t, []byte("z"), maxTerm)
}

func TestWriteReadSSTableComponentsRoundTrip(t *testing.T) {
	d := tempDir(t)
	pks := []rowid.PrimaryKey{
		{Token: 1, PartitionKey: []byte("p1")},
		{Token: 2, PartitionKey: []byte("p2")},
		{Token: 3, PartitionKey: []byte("p3")},
	}
	require.NoError(t, WriteSSTableComponents(d, pks))
	require.True(t, SSTableQueryable(d))

	got, err := ReadPrimaryKeyMap(d)
	require.NoError(t, err)
	require.Equal(t, 3, got.RowCount())
	id, ok := got.RowID(pks[1])
	require.True(t, ok)
	require.EqualValues(t, 1, id)
}

// TestCorruptionDetected exercises spec.md 7 class 4: a flipped byte in a
// component body must fail its checksum on read.
func TestCorruptionDetected(t *testing.T) {
	d := tempDir(t)
	b := literal.NewBuilder()
	b.Add([]byte("x"), 0)
	require.NoError(t, WriteLiteralColumn(d, "c", b.Finish()))

	path := d.path("c", TermsData)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[0] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = ReadLiteralColumn(d, "c")
	require.Error(t, err)
	require.Contains(t, err.Error(), d.SSTable)
	require.Contains(t, err.Error(), "c")
}

// TestIdempotentLiteralBuild rebuilds the same input twice through
// BuildLiteralSegments and asserts identical on-disk bytes, per spec.md 8's
// idempotent-build property.
func TestIdempotentLiteralBuild(t *testing.T) {
	rows := []LiteralTermRow{
		{Term: []byte("a"), Row: 0},
		{Term: []byte("b"), Row: 1},
		{Term: []byte("a"), Row: 2},
		{Term: []byte("c"), Row: 3},
	}

	build := func() []byte {
		limiter := NewMemoryLimiter(1 << 20)
		segs, err := BuildLiteralSegments(limiter, rows, 1<<20, nil)
		require.NoError(t, err)
		require.Len(t, segs, 1)
		require.Zero(t, limiter.Reserved())

		d := Dir{Path: t.TempDir(), SSTable: "t", Version: CurrentVersion}
		require.NoError(t, WriteLiteralColumn(d, "col", segs[0]))
		raw, err := os.ReadFile(d.path("col", TermsData))
		require.NoError(t, err)
		return raw
	}

	require.Equal(t, build(), build())
}

// TestBuildLiteralSegmentsFlushesUnderMemoryPressure exercises a tight
// MemoryLimiter forcing multiple segment flushes, and asserts the limiter
// always returns to zero (spec.md 8).
func TestBuildLiteralSegmentsFlushesUnderMemoryPressure(t *testing.T) {
	rows := make([]LiteralTermRow, 0, 100)
	for i := 0; i < 100; i++ {
		rows = append(rows, LiteralTermRow{Term: []byte{byte(i % 26), byte(i / 26)}, Row: uint32(i)})
	}
	limiter := NewMemoryLimiter(256)
	segs, err := BuildLiteralSegments(limiter, rows, 256, nil)
	require.NoError(t, err)
	require.Greater(t, len(segs), 1)
	require.Zero(t, limiter.Reserved())

	total := 0
	for _, s := range segs {
		for _, e := range s.Entries() {
			total += len(e.Rows)
		}
	}
	require.Equal(t, 100, total)
}

// TestBeforeSegmentFlushFaultAborts exercises the fault-injection hook used
// to simulate a mid-build failure.
func TestBeforeSegmentFlushFaultAborts(t *testing.T) {
	rows := []LiteralTermRow{{Term: []byte("a"), Row: 0}}
	limiter := NewMemoryLimiter(1 << 20)
	injected := errors.New("injected segment flush failure")
	faults := &Faults{BeforeSegmentFlush: func() error { return injected }}

	_, err := BuildLiteralSegments(limiter, rows, 1<<20, faults)
	require.ErrorIs(t, err, injected)
	require.Zero(t, limiter.Reserved())
}

func TestAbortCleanupRemovesPartialFiles(t *testing.T) {
	path := t.TempDir()
	d := Dir{Path: path, SSTable: "t", Version: CurrentVersion}
	b := literal.NewBuilder()
	b.Add([]byte("x"), 0)
	require.NoError(t, WriteLiteralColumn(d, "col", b.Finish()))
	require.True(t, ColumnQueryable(d, "col"))

	require.NoError(t, AbortCleanup(d, []string{"col"}, false))

	require.False(t, Exists(d.path("col", ColumnCompletionMarker)))
	require.False(t, Exists(d.path("col", TermsData)))

	entries, err := os.ReadDir(path)
	require.NoError(t, err)
	require.Empty(t, entries)
}
