// Package host defines the minimal contract a database engine must
// satisfy to embed SAI (spec.md 1: "a host database owning schema,
// partitions, tokens, SSTables, memtables, compaction, and the CQL
// parser"). SAI never implements a host; internal/host/fakehost provides
// an in-memory reference implementation used only by tests.
package host

// IndexKindHint tells SAI which index kind a column schema implies,
// decided by the host's own type system before SAI ever sees the column
// (spec.md 3 "indexed column kinds").
type IndexKindHint int

const (
	HintLiteral IndexKindHint = iota
	HintNumeric
	HintVector
)

// ColumnSchema is the host-owned description of one indexed column.
type ColumnSchema struct {
	Name string
	Kind IndexKindHint
	// Dimension is the vector dimensionality; zero for non-vector columns.
	Dimension int
}

// SSTableRef is a handle to one immutable on-disk SSTable the host owns.
// SAI never opens or reads SSTable data files itself -- it only reads and
// writes its own component files alongside them, keyed by this ID.
type SSTableRef interface {
	ID() string
	DataSize() int64
	RowCount() int
}

// PartitionReader streams the rows of one SSTable in partition-key order,
// the host-provided source a segment.Builder consumes during an initial
// or rebuild index build (spec.md 4.5).
type PartitionReader interface {
	// Next returns the next row's primary key, the host-owned raw column
	// value for the column being indexed, and true; false once exhausted.
	Next() (pk PrimaryKeyTuple, value []byte, ok bool)
	Close() error
}

// PrimaryKeyTuple mirrors rowid.PrimaryKey at the host boundary (kept as
// a distinct type here so internal/host has no dependency on
// internal/rowid -- the host package is the contract surface, not an
// implementation detail).
type PrimaryKeyTuple struct {
	Token        uint64
	PartitionKey []byte
	Clustering   []byte
}

// Deadline is the per-query cancellation/timeout checkpoint SAI polls
// while iterating (spec.md 5 "every searcher polls a per-query checkpoint").
type Deadline interface {
	// Exceeded reports whether the query's deadline has passed.
	Exceeded() bool
}
