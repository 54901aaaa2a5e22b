package literal

import (
	"bytes"
	"sort"

	"github.com/saiengine/sai/internal/posting"
)

// entry is one term's leaf payload: the term bytes and its posting list, in
// build order (row ids strictly increasing per invariant 2).
type entry struct {
	term  []byte
	rows  []uint32
}

// Index is the read side of a per-segment literal index: a byte-comparable
// term dictionary (conceptually a trie; represented here as its sorted leaf
// sequence, since every trie operation the engine needs --exact lookup,
// forward/reverse scan, prefix-bounded range-- reduces to a binary search
// plus a contiguous scan over that sequence) mapping terms to posting
// lists.
//
// This mirrors the teacher's two-file split (Terms file / Postings file,
// mapping_test.go's separate id-map and location stores) as two in-memory
// slices instead of two files; segment.Writer is responsible for the actual
// on-disk encoding (terms.go, postings are block-compressed per 4.2).
type Index struct {
	entries []entry // sorted ascending by term
	minTerm []byte
	maxTerm []byte
}

// FilterFunc is applied to a decoded term during RangeMatch when the
// operator isn't natively range-indexed (spec.md 4.2: "post-filter for
// operators not natively range-indexed").
type FilterFunc func(term []byte) bool

// NewIndex builds an Index from entries already grouped by distinct term
// (builder.go is responsible for that grouping during ingest).
func NewIndex(entries []entry) *Index {
	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].term, entries[j].term) < 0 })
	idx := &Index{entries: entries}
	if len(entries) > 0 {
		idx.minTerm = entries[0].term
		idx.maxTerm = entries[len(entries)-1].term
	}
	return idx
}

// MinTerm and MaxTerm are recorded in the segment footer per spec.md 4.2.
func (ix *Index) MinTerm() []byte { return ix.minTerm }
func (ix *Index) MaxTerm() []byte { return ix.maxTerm }

func (ix *Index) search(term []byte) int {
	return sort.Search(len(ix.entries), func(i int) bool {
		return bytes.Compare(ix.entries[i].term, term) >= 0
	})
}

// ExactMatch performs a trie lookup; returns an empty list on miss.
func (ix *Index) ExactMatch(term []byte) posting.List {
	i := ix.search(term)
	if i < len(ix.entries) && bytes.Equal(ix.entries[i].term, term) {
		return posting.NewSlice(ix.entries[i].rows)
	}
	return posting.Empty()
}

// RangeMatch concatenates the posting lists of every term in [lower, upper]
// (either bound nil means unbounded on that side) via Merge, optionally
// post-filtering decoded terms with filter.
func (ix *Index) RangeMatch(lower, upper []byte, filter FilterFunc) posting.List {
	lo := 0
	if lower != nil {
		lo = ix.search(lower)
	}
	hi := len(ix.entries)
	if upper != nil {
		hi = sort.Search(len(ix.entries), func(i int) bool {
			return bytes.Compare(ix.entries[i].term, upper) > 0
		})
	}

	var lists []posting.List
	for i := lo; i < hi; i++ {
		if filter != nil && !filter(ix.entries[i].term) {
			continue
		}
		lists = append(lists, posting.NewSlice(ix.entries[i].rows))
	}
	if len(lists) == 0 {
		return posting.Empty()
	}
	return posting.Merge(lists...)
}

// Direction controls AllTerms scan order.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

// AllTerms returns every distinct term in the requested direction, used
// during segment merging at compaction (spec.md 4.2).
func (ix *Index) AllTerms(dir Direction) [][]byte {
	out := make([][]byte, len(ix.entries))
	for i, e := range ix.entries {
		if dir == Forward {
			out[i] = e.term
		} else {
			out[len(ix.entries)-1-i] = e.term
		}
	}
	return out
}

// Entry is the exported (term, posting-rows) view of one trie leaf, used by
// segment writers to serialize the index (it is the only way outside this
// package to reach the data -- entry itself stays unexported).
type Entry struct {
	Term []byte
	Rows []uint32
}

// Entries returns every (term, rows) pair in ascending term order, for
// on-disk serialization.
func (ix *Index) Entries() []Entry {
	out := make([]Entry, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = Entry{Term: e.term, Rows: e.rows}
	}
	return out
}

// FromEntries reconstructs an Index from its serialized entries (the
// segment.Reader counterpart of Entries).
func FromEntries(entries []Entry) *Index {
	es := make([]entry, len(entries))
	for i, e := range entries {
		es[i] = entry{term: e.Term, rows: e.Rows}
	}
	return NewIndex(es)
}
