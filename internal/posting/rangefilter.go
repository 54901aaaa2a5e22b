package posting

// PKLookup resolves a segment_row_id to the primary key fields the range
// filter restricts on. Implemented by internal/rowid.Map.
type PKLookup interface {
	// InRange reports whether row id's PK falls within [lo, hi] inclusive,
	// comparing tokens (or an equivalent opaque ordering key).
	InRange(id uint32, lo, hi []byte) bool
}

// rangeFilter wraps a source and drops ids whose PK falls outside [lo, hi],
// used when a query additionally restricts by token/partition range (4.1).
type rangeFilter struct {
	src    List
	lookup PKLookup
	lo, hi []byte
}

// RangeFilter returns a List yielding only ids from src whose PK (resolved
// via lookup) falls within [lo, hi].
func RangeFilter(src List, lookup PKLookup, lo, hi []byte) List {
	return &rangeFilter{src: src, lookup: lookup, lo: lo, hi: hi}
}

func (r *rangeFilter) Next() uint32 {
	for {
		id := r.src.Next()
		if id == EndOfStream {
			return EndOfStream
		}
		if r.lookup.InRange(id, r.lo, r.hi) {
			return id
		}
	}
}

func (r *rangeFilter) Advance(target uint32) uint32 {
	id := r.src.Advance(target)
	for id != EndOfStream && !r.lookup.InRange(id, r.lo, r.hi) {
		id = r.src.Next()
	}
	return id
}

func (r *rangeFilter) Min() uint32  { return r.src.Min() }
func (r *rangeFilter) Max() uint32  { return r.src.Max() }
func (r *rangeFilter) Count() int   { return r.src.Count() }
func (r *rangeFilter) Close() error { return r.src.Close() }
