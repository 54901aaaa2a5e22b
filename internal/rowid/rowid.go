// Package rowid implements the primary-key map: the bidirectional bridge
// between a (token, partition_key, clustering) tuple and a dense
// segment_row_id, and the token-range membership test iterators rely on
// for range-filtered queries.
//
// Grounded on the teacher's sql/index/pilosa mapping.go (exercised by
// mapping_test.go's TestRowID / TestLocation): a bolt-backed mapping from
// column value to a dense rowID, generalized from "one value per frame" to
// "one PK per segment".
package rowid

import (
	"bytes"
	"sort"
)

// PrimaryKey is the ordered (token, partition_key, clustering) tuple. It is
// opaque to SAI except for ordering and equality.
type PrimaryKey struct {
	Token        uint64
	PartitionKey []byte
	Clustering   []byte
}

// Compare orders primary keys the way the host orders them: by token, then
// partition key bytes, then clustering bytes.
func (a PrimaryKey) Compare(b PrimaryKey) int {
	if a.Token != b.Token {
		if a.Token < b.Token {
			return -1
		}
		return 1
	}
	if c := bytes.Compare(a.PartitionKey, b.PartitionKey); c != 0 {
		return c
	}
	return bytes.Compare(a.Clustering, b.Clustering)
}

// Map is the per-SSTable-segment primary-key <-> segment_row_id bijection.
// It is built once during a segment build (append-only, PKs arrive in host
// iteration order) and is read-only thereafter.
type Map struct {
	byRow []PrimaryKey // segment_row_id -> PK, dense
}

// NewMap builds a Map from PKs in the order rows were assigned; the row id
// of pks[i] is i. pks must already be in ascending PK order, as SSTable rows
// always are -- RowID's binary search relies on it.
func NewMap(pks []PrimaryKey) *Map {
	m := &Map{byRow: pks}
	return m
}

// RowID returns the segment_row_id for pk, and ok=false if absent. Lookup is
// O(log n) via binary search, so the result is only correct when byRow is in
// ascending PK order (see NewMap).
func (m *Map) RowID(pk PrimaryKey) (uint32, bool) {
	n := len(m.byRow)
	idx := sort.Search(n, func(i int) bool { return m.byRow[i].Compare(pk) >= 0 })
	if idx < n && m.byRow[idx].Compare(pk) == 0 {
		return uint32(idx), true
	}
	return 0, false
}

// PK returns the primary key for a segment_row_id.
func (m *Map) PK(id uint32) (PrimaryKey, bool) {
	if int(id) >= len(m.byRow) {
		return PrimaryKey{}, false
	}
	return m.byRow[id], true
}

// RowCount returns the number of rows in the segment. Together with
// InRange this satisfies query.PKResolver, so a segment's *Map can be
// used directly as a query.Source's Resolver.
func (m *Map) RowCount() int { return len(m.byRow) }

// InRange implements posting.PKLookup: reports whether row id's token falls
// within [lo, hi], where lo/hi are big-endian uint64 token encodings (empty
// slice means unbounded on that side).
func (m *Map) InRange(id uint32, lo, hi []byte) bool {
	pk, ok := m.PK(id)
	if !ok {
		return false
	}
	tok := encodeToken(pk.Token)
	if len(lo) > 0 && bytes.Compare(tok, lo) < 0 {
		return false
	}
	if len(hi) > 0 && bytes.Compare(tok, hi) > 0 {
		return false
	}
	return true
}

func encodeToken(tok uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(tok)
		tok >>= 8
	}
	return b
}

// EncodeToken exposes the byte-comparable token encoding used by InRange and
// by the TOKEN_VALUES component (segment.Writer).
func EncodeToken(tok uint64) []byte { return encodeToken(tok) }
