// Package fakehost is an in-memory reference implementation of
// internal/host's contract, used only by tests (SPEC_FULL.md 6: "this
// module must compile and be testable standalone").
package fakehost

import (
	"sort"

	"github.com/saiengine/sai/internal/host"
)

// Row is one in-memory row: a primary key plus a raw column value keyed
// by column name.
type Row struct {
	PK     host.PrimaryKeyTuple
	Values map[string][]byte
}

// SSTable is an in-memory, immutable, partition-key-sorted set of rows.
type SSTable struct {
	id   string
	rows []Row
}

// NewSSTable returns an SSTable over rows, sorted into PK order.
func NewSSTable(id string, rows []Row) *SSTable {
	sorted := append([]Row(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return comparePK(sorted[i].PK, sorted[j].PK) < 0 })
	return &SSTable{id: id, rows: sorted}
}

func (s *SSTable) ID() string    { return s.id }
func (s *SSTable) DataSize() int64 { return int64(len(s.rows)) * 64 }
func (s *SSTable) RowCount() int   { return len(s.rows) }
func (s *SSTable) Rows() []Row     { return s.rows }

func comparePK(a, b host.PrimaryKeyTuple) int {
	if a.Token != b.Token {
		if a.Token < b.Token {
			return -1
		}
		return 1
	}
	for i := 0; i < len(a.PartitionKey) && i < len(b.PartitionKey); i++ {
		if a.PartitionKey[i] != b.PartitionKey[i] {
			if a.PartitionKey[i] < b.PartitionKey[i] {
				return -1
			}
			return 1
		}
	}
	return len(a.PartitionKey) - len(b.PartitionKey)
}

// reader is a host.PartitionReader over one column of one SSTable.
type reader struct {
	rows   []Row
	column string
	pos    int
}

// NewReader returns a host.PartitionReader over column across an
// SSTable's rows, in stored (partition-key) order.
func NewReader(s *SSTable, column string) host.PartitionReader {
	return &reader{rows: s.rows, column: column}
}

func (r *reader) Next() (host.PrimaryKeyTuple, []byte, bool) {
	if r.pos >= len(r.rows) {
		return host.PrimaryKeyTuple{}, nil, false
	}
	row := r.rows[r.pos]
	r.pos++
	return row.PK, row.Values[r.column], true
}

func (r *reader) Close() error { return nil }

// deadline is a host.Deadline whose Exceeded result is fixed at
// construction.
type deadline struct{ exceeded bool }

// NewDeadline returns a host.Deadline that reports exceeded as given.
func NewDeadline(exceeded bool) host.Deadline { return &deadline{exceeded: exceeded} }

func (d *deadline) Exceeded() bool { return d.exceeded }
