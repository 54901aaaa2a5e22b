// Package posting implements the sorted row-id sequences ("posting lists")
// that every SAI index kind produces, and the boolean-algebra operators
// (union, intersection, range-filter, merge) queries compose them with.
//
// Grounded on the teacher's sql.IndexLookup / sql.Mergeable / sql.SetOperations
// family (sql/index/pilosa/lookup_test.go: TestMergeable, TestLookupIndexes),
// generalized from opaque lookup objects into an explicit next/advance
// iterator per the design note "Iterator algebra without exceptions".
package posting

import "math"

// EndOfStream is the sentinel returned by Next/Advance once a list is
// exhausted. It is a value, never an error: class 6 (cancellation) and
// plain exhaustion are both modeled this way.
const EndOfStream uint32 = math.MaxUint32

// MaxRowID is the largest legal segment_row_id (2^31 - 1, per spec).
const MaxRowID uint32 = 1<<31 - 1

// List is a sorted, finite sequence of segment row ids. Implementations are
// NOT thread-safe; a single List is read by a single goroutine at a time.
type List interface {
	// Next returns the next id not yet returned by Next or Advance, or
	// EndOfStream if the list is exhausted.
	Next() uint32
	// Advance returns the smallest id >= target, or EndOfStream. A
	// subsequent Next returns the id after the advance return.
	Advance(target uint32) uint32
	// Min is the smallest id the list can ever produce.
	Min() uint32
	// Max is the largest id the list can ever produce.
	Max() uint32
	// Count is an upper bound on the number of ids remaining, used for
	// cost-based planning; it is not required to be exact.
	Count() int
	// Close releases any resources (file handles, decoder state) held by
	// the list. Closing a list that shares a file handle with others does
	// not unlink the file; see segment.ComponentHandle.
	Close() error
}

// Slice adapts a pre-materialized, strictly increasing slice of row ids
// into a List. It backs the memtable live index and is the reference
// implementation used throughout the test suite.
type Slice struct {
	ids []uint32
	pos int
}

// NewSlice wraps ids, which must already be strictly increasing.
func NewSlice(ids []uint32) *Slice {
	return &Slice{ids: ids}
}

func (s *Slice) Next() uint32 {
	if s.pos >= len(s.ids) {
		return EndOfStream
	}
	v := s.ids[s.pos]
	s.pos++
	return v
}

func (s *Slice) Advance(target uint32) uint32 {
	if s.pos >= len(s.ids) {
		return EndOfStream
	}
	if s.Max() < target {
		// fail-fast: advance target beyond max short-circuits without
		// touching further state.
		s.pos = len(s.ids)
		return EndOfStream
	}
	// binary search for first id >= target, starting at pos
	lo, hi := s.pos, len(s.ids)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.ids[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= len(s.ids) {
		s.pos = lo
		return EndOfStream
	}
	s.pos = lo + 1
	return s.ids[lo]
}

func (s *Slice) Min() uint32 {
	if len(s.ids) == 0 {
		return EndOfStream
	}
	return s.ids[0]
}

func (s *Slice) Max() uint32 {
	if len(s.ids) == 0 {
		return 0
	}
	return s.ids[len(s.ids)-1]
}

func (s *Slice) Count() int { return len(s.ids) - s.pos }

func (s *Slice) Close() error { return nil }

// Empty returns a List with no elements.
func Empty() List { return &Slice{} }

// Collect drains l into a slice, for tests and small result sets.
func Collect(l List) []uint32 {
	var out []uint32
	for id := l.Next(); id != EndOfStream; id = l.Next() {
		out = append(out, id)
	}
	return out
}
