package literal

// Builder accumulates (term, row) pairs while a segment is being built and
// produces a read-only Index at Finish. Terms arrive in row order (row ids
// strictly increasing) since a builder processes one SSTable partition at a
// time in partition order.
type Builder struct {
	byTerm map[string]*entry
	order  []string
	bytes  int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{byTerm: make(map[string]*entry)}
}

// Add records that row matched term.
func (b *Builder) Add(term []byte, row uint32) {
	key := string(term)
	e, ok := b.byTerm[key]
	if !ok {
		e = &entry{term: append([]byte(nil), term...)}
		b.byTerm[key] = e
		b.order = append(b.order, key)
	}
	e.rows = append(e.rows, row)
	b.bytes += len(term) + 4
}

// EstimatedBytes is the builder's in-memory footprint, consulted by
// segment.MemoryLimiter to decide when to flush (spec.md 4.5).
func (b *Builder) EstimatedBytes() int { return b.bytes }

// Finish produces the read-only Index. The builder must not be reused.
func (b *Builder) Finish() *Index {
	entries := make([]entry, 0, len(b.order))
	for _, k := range b.order {
		e := b.byTerm[k]
		entries = append(entries, *e)
	}
	return NewIndex(entries)
}
