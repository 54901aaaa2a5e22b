// Package engine wires the per-column/per-memtable building blocks
// (config, segment, lifecycle, query) into the single top-level entry
// point a host embeds: the Runtime. Nothing here has on-disk format
// knowledge of its own; it only orchestrates calls into the packages that
// do.
//
// Grounded on the teacher's driver-construction sites (sql/index/pilosa's
// holder setup, which owns the on-disk root, the boltdb mapping
// databases, and the fault registry together) generalized from one
// pilosa-specific holder into a package-agnostic runtime over the whole
// SAI component set.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/saiengine/sai/internal/config"
	"github.com/saiengine/sai/internal/host"
	"github.com/saiengine/sai/internal/lifecycle"
	"github.com/saiengine/sai/internal/literal"
	"github.com/saiengine/sai/internal/numeric"
	"github.com/saiengine/sai/internal/query"
	"github.com/saiengine/sai/internal/rowid"
	"github.com/saiengine/sai/internal/segment"
	"github.com/saiengine/sai/internal/vector"
)

// DefaultMemoryLimitBytes is used when RuntimeOptions.MemoryLimitBytes is
// unset, a conservative default for an embedded engine instance.
const DefaultMemoryLimitBytes = 64 << 20

// RuntimeOptions configures a Runtime.
type RuntimeOptions struct {
	// ConfigStorePath is the bbolt database path for column descriptors
	// (internal/config.Store).
	ConfigStorePath string
	// MemoryLimitBytes bounds the global segment-buffer limiter
	// (spec.md 5); DefaultMemoryLimitBytes if unset.
	MemoryLimitBytes int64
	// Logger receives structured build/lifecycle events; a silent
	// logrus.Logger is used if nil.
	Logger *logrus.Logger
}

// Runtime is the engine's top-level object: the config store, the
// process-lifetime memory limiter, and the per-SSTable lifecycle
// manager, plus the fast column-config cache described in SPEC_FULL.md
// 2A ("configuration-hash based 'is this the same index config' checks
// use xxhash... instead of crypto/sha1... on the hot insert path").
type Runtime struct {
	store     *config.Store
	limiter   *segment.MemoryLimiter
	lifecycle *lifecycle.Manager
	log       *logrus.Entry

	sigMu    sync.RWMutex
	sigCache map[uint64]config.ColumnSignature
}

// NewRuntime opens the config store and constructs the memory limiter and
// lifecycle manager. Callers own exactly one Runtime per engine instance
// (spec.md 5: the limiter is never a package-level singleton).
func NewRuntime(opts RuntimeOptions) (*Runtime, error) {
	store, err := config.OpenStore(opts.ConfigStorePath)
	if err != nil {
		return nil, err
	}

	limit := opts.MemoryLimitBytes
	if limit <= 0 {
		limit = DefaultMemoryLimitBytes
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	entry := logger.WithField("component", "sai-engine")

	lc := lifecycle.NewManager()
	lc.SetLogger(entry)

	return &Runtime{
		store:     store,
		limiter:   segment.NewMemoryLimiter(limit),
		lifecycle: lc,
		log:       entry,
		sigCache:  make(map[uint64]config.ColumnSignature),
	}, nil
}

// Close releases the config store's file handle.
func (r *Runtime) Close() error { return r.store.Close() }

// Lifecycle returns the per-SSTable lifecycle manager, for a host to gate
// its own reads or to drive a rebuild after corruption.
func (r *Runtime) Lifecycle() *lifecycle.Manager { return r.lifecycle }

// Limiter returns the shared memory limiter, for tests asserting the
// "returns to zero" invariant across a sequence of builds.
func (r *Runtime) Limiter() *segment.MemoryLimiter { return r.limiter }

// NewExecutor returns a query.Executor gated on this runtime's lifecycle
// manager (spec.md 4.7's index-build gate).
func (r *Runtime) NewExecutor(buildWait time.Duration) *query.Executor {
	return query.NewExecutor(r.lifecycle, buildWait)
}

// fastConfigKey hashes the tuple a column's descriptor is keyed by plus
// its validated options with xxhash, for the in-memory "did this exact
// config already get persisted" check that guards the authoritative
// (and comparatively expensive) sha1-based config.Sign from running on
// every write-path column touch.
func fastConfigKey(keyspace, table, index, column string, opts config.Options) uint64 {
	h := xxhash.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%#v", keyspace, table, index, column, opts)
	return h.Sum64()
}

// EnsureColumn validates raw creation options, and persists the column's
// descriptor unless an identical descriptor (by xxhash fast-path, falling
// back to the authoritative sha1 config.ColumnSignature on a cache miss)
// is already stored -- spec.md 6: "Misspelled keys, invalid value types,
// or options applied to the wrong column kind must fail... with a typed
// error", plus the "is this the same index config as a prior build"
// check SPEC_FULL.md 2A calls out as xxhash's hot-path use.
func (r *Runtime) EnsureColumn(keyspace, table, index, column string, kind config.Kind, raw map[string]string) (config.Descriptor, error) {
	opts, err := config.Parse(kind, raw)
	if err != nil {
		return config.Descriptor{}, err
	}
	key := fastConfigKey(keyspace, table, index, column, opts)

	r.sigMu.RLock()
	cached, hit := r.sigCache[key]
	r.sigMu.RUnlock()
	if hit {
		if existing, found, err := r.store.Get(keyspace, table, index); err == nil && found && existing.Signature == cached {
			r.log.WithField("column", column).Debug("sai: column config unchanged, fast path")
			return existing, nil
		}
	}

	sig := config.Sign(keyspace, table, index, column, opts)
	desc := config.Descriptor{
		Keyspace: keyspace, Table: table, Index: index, Column: column,
		Kind: kind, Options: opts, Signature: sig,
	}
	if err := r.store.Put(desc); err != nil {
		return config.Descriptor{}, err
	}
	r.sigMu.Lock()
	r.sigCache[key] = sig
	r.sigMu.Unlock()
	return desc, nil
}

// DropColumn removes the persisted descriptor for (keyspace, table,
// index), per the Queryable -> Dropped lifecycle transition.
func (r *Runtime) DropColumn(keyspace, table, index string) error {
	return r.store.Delete(keyspace, table, index)
}

// buildGuard runs build against entry, transitioning Building -> Failed on
// error or Building -> Queryable on success, logging either outcome.
func (r *Runtime) buildGuard(sstable, column string, build func() error) error {
	entry := r.lifecycle.Entry(sstable)
	entry.SetColumn(column)
	if err := entry.Transition(lifecycle.Building); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{"sstable": sstable, "column": column}).Debug("sai: segment build starting")

	if err := build(); err != nil {
		_ = entry.Transition(lifecycle.Failed)
		return err
	}
	return entry.Transition(lifecycle.Queryable)
}

// BuildLiteralColumn runs a memory-bounded literal build over rows,
// merges however many segments the limiter forced (spec.md 4.5), and
// persists the result, driving the sstable's lifecycle entry through
// Building to Queryable or Failed.
func (r *Runtime) BuildLiteralColumn(sstable string, d segment.Dir, column string, rows []segment.LiteralTermRow, segmentBudget int64) error {
	return r.buildGuard(sstable, column, func() error {
		segs, err := segment.BuildLiteralSegments(r.limiter, rows, segmentBudget, nil)
		if err != nil {
			return err
		}
		idx := mergeLiteralSegments(segs)
		if err := segment.EnsureDir(d.Path, sstable, column); err != nil {
			return err
		}
		return segment.WriteLiteralColumn(d, column, idx)
	})
}

// BuildLiteralColumnFromHost drains reader in partition-key order,
// assigning each row the dense segment_row_id implied by that order
// (spec.md 4.5), applies encode to the host's raw column value, and runs
// the same bounded build BuildLiteralColumn does. It returns the primary
// keys in row-id order, for a subsequent FinalizeSSTable -- the host
// integration path host.PartitionReader exists for (SPEC_FULL.md 6).
func (r *Runtime) BuildLiteralColumnFromHost(sstable string, d segment.Dir, column string, reader host.PartitionReader, encode func(raw []byte) ([][]byte, error), segmentBudget int64) ([]rowid.PrimaryKey, error) {
	defer reader.Close()

	var rows []segment.LiteralTermRow
	var pks []rowid.PrimaryKey
	var row uint32
	for {
		pk, value, ok := reader.Next()
		if !ok {
			break
		}
		terms, err := encode(value)
		if err != nil {
			return nil, err
		}
		for _, term := range terms {
			rows = append(rows, segment.LiteralTermRow{Term: term, Row: row})
		}
		pks = append(pks, rowid.PrimaryKey{Token: pk.Token, PartitionKey: pk.PartitionKey, Clustering: pk.Clustering})
		row++
	}

	if err := r.BuildLiteralColumn(sstable, d, column, rows, segmentBudget); err != nil {
		return nil, err
	}
	return pks, nil
}

// BuildNumericColumnFromHost is the numeric analogue of
// BuildLiteralColumnFromHost.
func (r *Runtime) BuildNumericColumnFromHost(sstable string, d segment.Dir, column string, reader host.PartitionReader, encode func(raw []byte) ([]byte, error), opts numeric.Options, segmentBudget int64) ([]rowid.PrimaryKey, error) {
	defer reader.Close()

	var keys [][]byte
	var rowIDs []uint32
	var pks []rowid.PrimaryKey
	var row uint32
	for {
		pk, value, ok := reader.Next()
		if !ok {
			break
		}
		key, err := encode(value)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		rowIDs = append(rowIDs, row)
		pks = append(pks, rowid.PrimaryKey{Token: pk.Token, PartitionKey: pk.PartitionKey, Clustering: pk.Clustering})
		row++
	}

	if err := r.BuildNumericColumn(sstable, d, column, keys, rowIDs, opts, segmentBudget); err != nil {
		return nil, err
	}
	return pks, nil
}

// BuildNumericColumn is the numeric analogue of BuildLiteralColumn.
func (r *Runtime) BuildNumericColumn(sstable string, d segment.Dir, column string, keys [][]byte, rowIDs []uint32, opts numeric.Options, segmentBudget int64) error {
	return r.buildGuard(sstable, column, func() error {
		segs, err := segment.BuildNumericSegments(r.limiter, keys, rowIDs, opts, segmentBudget, nil)
		if err != nil {
			return err
		}
		tree := mergeNumericSegments(segs, opts)
		if err := segment.EnsureDir(d.Path, sstable, column); err != nil {
			return err
		}
		return segment.WriteNumericColumn(d, column, tree)
	})
}

// BuildVectorColumn trains and persists a DiskANN segment from nodes,
// reserving estimatedBytes against the shared memory limiter for the
// duration of the build (the vector index has no incremental-flush path
// the way literal/numeric builds do -- a segment's whole vector set is
// materialized to build the graph and train the PQ codebook, spec.md
// 4.4).
func (r *Runtime) BuildVectorColumn(sstable string, d segment.Dir, column string, nodes []vector.SnapshotNode, opts vector.GraphOptions, estimatedBytes int64) error {
	r.limiter.Reserve(estimatedBytes)
	defer r.limiter.Release(estimatedBytes)

	return r.buildGuard(sstable, column, func() error {
		ann := vector.BuildDiskANN(nodes, opts)
		if err := segment.EnsureDir(d.Path, sstable, column); err != nil {
			return err
		}
		return segment.WriteVectorColumn(d, column, ann)
	})
}

// FinalizeSSTable writes the shared primary-key/token components and the
// per-SSTable group completion marker, once every column build for
// sstable has succeeded (spec.md 4.5).
func (r *Runtime) FinalizeSSTable(d segment.Dir, pks []rowid.PrimaryKey) error {
	return segment.WriteSSTableComponents(d, pks)
}

// DropSSTable removes every component file for sstable and forgets its
// lifecycle entry, per the host physically removing the SSTable.
func (r *Runtime) DropSSTable(sstable string, d segment.Dir, columns []string, anyColumnSucceeded bool) error {
	if err := segment.AbortCleanup(d, columns, anyColumnSucceeded); err != nil {
		return err
	}
	r.lifecycle.Drop(sstable)
	return nil
}

// mergeLiteralSegments flattens BuildLiteralSegments' possibly-multiple
// segments (one per memory-limiter flush) back into the single
// literal.Index a column's on-disk representation holds; compaction
// proper is out of scope (spec.md 1), but a build that got flushed
// mid-way must still produce one coherent column.
func mergeLiteralSegments(segs []*literal.Index) *literal.Index {
	b := literal.NewBuilder()
	for _, seg := range segs {
		for _, e := range seg.Entries() {
			for _, row := range e.Rows {
				b.Add(e.Term, row)
			}
		}
	}
	return b.Finish()
}

// mergeNumericSegments is the numeric analogue of mergeLiteralSegments.
func mergeNumericSegments(segs []*numeric.Tree, opts numeric.Options) *numeric.Tree {
	b := numeric.NewBuilder(opts)
	for _, seg := range segs {
		for _, p := range seg.AllPoints() {
			b.Add(p.Key, p.Row)
		}
	}
	return b.Finish()
}
