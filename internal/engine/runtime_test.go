package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiengine/sai/internal/config"
	"github.com/saiengine/sai/internal/lifecycle"
	"github.com/saiengine/sai/internal/posting"
	"github.com/saiengine/sai/internal/rowid"
	"github.com/saiengine/sai/internal/segment"
	"github.com/saiengine/sai/internal/vector"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := NewRuntime(RuntimeOptions{ConfigStorePath: filepath.Join(t.TempDir(), "config.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestEnsureColumnPersistsAndFastPathsOnRepeat(t *testing.T) {
	rt := newTestRuntime(t)

	desc, err := rt.EnsureColumn("ks", "users", "idx_status", "status", config.KindLiteral, map[string]string{"case_sensitive": "false"})
	require.NoError(t, err)
	require.False(t, desc.Options.CaseSensitive)

	again, err := rt.EnsureColumn("ks", "users", "idx_status", "status", config.KindLiteral, map[string]string{"case_sensitive": "false"})
	require.NoError(t, err)
	require.Equal(t, desc.Signature, again.Signature)

	stored, found, err := rt.store.Get("ks", "users", "idx_status")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "status", stored.Column)
}

func TestEnsureColumnRejectsInvalidOption(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.EnsureColumn("ks", "users", "idx_status", "status", config.KindLiteral, map[string]string{"bkd_postings_skip": "3"})
	require.Error(t, err)
}

func TestBuildLiteralColumnRoundTrip(t *testing.T) {
	rt := newTestRuntime(t)
	dir := segment.Dir{Path: t.TempDir(), SSTable: "sst-1", Version: segment.CurrentVersion}

	rows := []segment.LiteralTermRow{
		{Term: []byte("alice"), Row: 0},
		{Term: []byte("bob"), Row: 1},
		{Term: []byte("alice"), Row: 2},
	}
	require.NoError(t, rt.BuildLiteralColumn("sst-1", dir, "name", rows, 1<<20))

	require.Equal(t, lifecycle.Queryable, rt.Lifecycle().Entry("sst-1").State())
	require.EqualValues(t, 0, rt.Limiter().Reserved())

	idx, err := segment.ReadLiteralColumn(dir, "name")
	require.NoError(t, err)
	got := idx.ExactMatch([]byte("alice"))
	require.Equal(t, []uint32{0, 2}, posting.Collect(got))
}

func TestBuildVectorColumnReleasesReservation(t *testing.T) {
	rt := newTestRuntime(t)
	dir := segment.Dir{Path: t.TempDir(), SSTable: "sst-2", Version: segment.CurrentVersion}

	nodes := []vector.SnapshotNode{
		{Vector: vector.Vector{1, 0, 0}, Rows: []uint32{0}},
		{Vector: vector.Vector{0, 1, 0}, Rows: []uint32{1}},
	}
	opts := vector.GraphOptions{MaxConnections: 4, ConstructionBeam: 10, Similarity: vector.SimilarityCosine}
	require.NoError(t, rt.BuildVectorColumn("sst-2", dir, "embedding", nodes, opts, 4096))

	require.Equal(t, lifecycle.Queryable, rt.Lifecycle().Entry("sst-2").State())
	require.EqualValues(t, 0, rt.Limiter().Reserved())
}

func TestBuildLiteralColumnFailsOnBadDirectory(t *testing.T) {
	rt := newTestRuntime(t)
	// a regular file where the component directory must go forces
	// EnsureDir's MkdirAll to fail.
	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))
	dir := segment.Dir{Path: filepath.Join(blocked, "sub"), SSTable: "sst-3", Version: segment.CurrentVersion}

	err := rt.BuildLiteralColumn("sst-3", dir, "name", []segment.LiteralTermRow{{Term: []byte("x"), Row: 0}}, 1<<20)
	require.Error(t, err)
	require.Equal(t, lifecycle.Failed, rt.Lifecycle().Entry("sst-3").State())
	require.EqualValues(t, 0, rt.Limiter().Reserved())
}

func TestFinalizeAndDropSSTable(t *testing.T) {
	rt := newTestRuntime(t)
	dir := segment.Dir{Path: t.TempDir(), SSTable: "sst-4", Version: segment.CurrentVersion}

	pks := []rowid.PrimaryKey{
		{Token: 1, PartitionKey: []byte("p1")},
		{Token: 2, PartitionKey: []byte("p2")},
	}
	require.NoError(t, rt.FinalizeSSTable(dir, pks))
	require.True(t, segment.SSTableQueryable(dir))

	require.NoError(t, rt.DropSSTable("sst-4", dir, nil, false))
	require.False(t, segment.SSTableQueryable(dir))
}
