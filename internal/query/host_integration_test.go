package query_test

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saiengine/sai/internal/config"
	"github.com/saiengine/sai/internal/engine"
	"github.com/saiengine/sai/internal/host"
	"github.com/saiengine/sai/internal/host/fakehost"
	"github.com/saiengine/sai/internal/literal"
	"github.com/saiengine/sai/internal/numeric"
	"github.com/saiengine/sai/internal/query"
	"github.com/saiengine/sai/internal/rowid"
	"github.com/saiengine/sai/internal/segment"
)

// These exercise the host.PartitionReader/fakehost contract end to end
// through internal/engine's build path and internal/query's planner and
// executor (spec.md 8's end-to-end scenarios 1 and 4).

func newHostTestRuntime(t *testing.T) *engine.Runtime {
	t.Helper()
	rt, err := engine.NewRuntime(engine.RuntimeOptions{ConfigStorePath: filepath.Join(t.TempDir(), "config.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

// TestHostIntegrationLiteralExactMatch is spec.md 8 scenario 1: literal
// exact match with insert-then-flush. A single row (1, 'Camel') flows
// through a fakehost.SSTable, a case-insensitive literal build via
// engine.Runtime, and a query.Executor lookup for 'camel'.
func TestHostIntegrationLiteralExactMatch(t *testing.T) {
	rt := newHostTestRuntime(t)
	dir := segment.Dir{Path: t.TempDir(), SSTable: "sst-host-1", Version: segment.CurrentVersion}

	sst := fakehost.NewSSTable("sst-host-1", []fakehost.Row{
		{PK: host.PrimaryKeyTuple{Token: 1, PartitionKey: []byte("1")}, Values: map[string][]byte{"v": []byte("Camel")}},
	})
	reader := fakehost.NewReader(sst, "v")

	opts := config.Options{}
	encode := func(raw []byte) ([][]byte, error) { return literal.EncodeString(string(raw), opts) }

	pks, err := rt.BuildLiteralColumnFromHost("sst-host-1", dir, "v", reader, encode, 1<<20)
	require.NoError(t, err)
	require.NoError(t, rt.FinalizeSSTable(dir, pks))

	idx, err := segment.ReadLiteralColumn(dir, "v")
	require.NoError(t, err)
	resolver := rowid.NewMap(pks)

	term, err := literal.EncodeString("camel", opts)
	require.NoError(t, err)

	plan, err := query.NewPlanner().Plan(query.Predicate{
		{Column: "v", Kind: config.KindLiteral, Variant: query.MapVariantNone, Op: query.OpEqual, Lower: term[0]},
	}, query.PlanOptions{Limit: 10})
	require.NoError(t, err)

	exec := rt.NewExecutor(time.Second)
	src := query.Source{Name: "sst-host-1", Literal: idx, Resolver: resolver}
	results, err := exec.Execute(plan, []query.Source{src})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.EqualValues(t, 0, results[0].Row)
}

// TestHostIntegrationNumericRange is spec.md 8 scenario 4: insert (i, i)
// for i in [0,9], then WHERE v1 >= 0 and WHERE v1 BETWEEN 3 AND 7.
func TestHostIntegrationNumericRange(t *testing.T) {
	rt := newHostTestRuntime(t)
	dir := segment.Dir{Path: t.TempDir(), SSTable: "sst-host-2", Version: segment.CurrentVersion}

	rows := make([]fakehost.Row, 10)
	for i := 0; i < 10; i++ {
		var raw [8]byte
		binary.BigEndian.PutUint64(raw[:], uint64(i))
		rows[i] = fakehost.Row{
			PK:     host.PrimaryKeyTuple{Token: uint64(i + 1), PartitionKey: raw[:]},
			Values: map[string][]byte{"v1": raw[:]},
		}
	}
	sst := fakehost.NewSSTable("sst-host-2", rows)
	reader := fakehost.NewReader(sst, "v1")

	encode := func(raw []byte) ([]byte, error) {
		return numeric.EncodeInt64(int64(binary.BigEndian.Uint64(raw))), nil
	}

	pks, err := rt.BuildNumericColumnFromHost("sst-host-2", dir, "v1", reader, encode, numeric.Options{}, 1<<20)
	require.NoError(t, err)
	require.NoError(t, rt.FinalizeSSTable(dir, pks))

	tree, err := segment.ReadNumericColumn(dir, "v1")
	require.NoError(t, err)
	resolver := rowid.NewMap(pks)
	src := query.Source{Name: "sst-host-2", Numeric: tree, Resolver: resolver}
	exec := rt.NewExecutor(time.Second)

	planAll, err := query.NewPlanner().Plan(query.Predicate{
		{Column: "v1", Kind: config.KindNumeric, Variant: query.MapVariantNone, Op: query.OpRange,
			Lower: numeric.EncodeInt64(0), Upper: numeric.EncodeInt64(math.MaxInt64)},
	}, query.PlanOptions{Limit: 100})
	require.NoError(t, err)
	all, err := exec.Execute(planAll, []query.Source{src})
	require.NoError(t, err)
	require.Len(t, all, 10)

	planBetween, err := query.NewPlanner().Plan(query.Predicate{
		{Column: "v1", Kind: config.KindNumeric, Variant: query.MapVariantNone, Op: query.OpRange,
			Lower: numeric.EncodeInt64(3), Upper: numeric.EncodeInt64(7)},
	}, query.PlanOptions{Limit: 100})
	require.NoError(t, err)
	between, err := exec.Execute(planBetween, []query.Source{src})
	require.NoError(t, err)
	require.Len(t, between, 5)
}
