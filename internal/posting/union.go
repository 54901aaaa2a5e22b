package posting

import "container/heap"

// unionHeapItem pairs a source list with its current (already-fetched) head.
type unionHeapItem struct {
	src  List
	head uint32 // current candidate; EndOfStream if exhausted
}

type unionHeap []*unionHeapItem

func (h unionHeap) Len() int            { return len(h) }
func (h unionHeap) Less(i, j int) bool  { return h[i].head < h[j].head }
func (h unionHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *unionHeap) Push(x interface{}) { *h = append(*h, x.(*unionHeapItem)) }
func (h *unionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// union implements List over the k-way merge of its sources, deduplicating
// ids that appear in more than one source.
type union struct {
	h    unionHeap
	last uint32 // last id returned; -1 via hasLast
	hasLast bool
	min, max uint32
}

// Union returns the strictly increasing merge of sources, per spec 4.1:
// "Implementation: k-way min-heap of sources keyed by current head;
// advance(t) forwards advance(t) to each source."
func Union(sources ...List) List {
	live := make([]*unionHeapItem, 0, len(sources))
	var mn uint32 = EndOfStream
	var mx uint32
	for _, s := range sources {
		head := s.Next()
		if head == EndOfStream {
			_ = s.Close()
			continue
		}
		live = append(live, &unionHeapItem{src: s, head: head})
		if s.Min() < mn {
			mn = s.Min()
		}
		if s.Max() > mx {
			mx = s.Max()
		}
	}
	if len(live) == 0 {
		return Empty()
	}
	h := unionHeap(live)
	heap.Init(&h)
	return &union{h: h, min: mn, max: mx}
}

func (u *union) Next() uint32 {
	for u.h.Len() > 0 {
		top := u.h[0]
		id := top.head
		if u.hasLast && id == u.last {
			// duplicate across sources; advance this source past it and retry.
			u.advanceTop()
			continue
		}
		u.advanceTop()
		u.last, u.hasLast = id, true
		return id
	}
	return EndOfStream
}

func (u *union) advanceTop() {
	top := u.h[0]
	next := top.src.Next()
	if next == EndOfStream {
		heap.Pop(&u.h)
		_ = top.src.Close()
		return
	}
	top.head = next
	heap.Fix(&u.h, 0)
}

func (u *union) Advance(target uint32) uint32 {
	if target > u.max {
		u.closeAll()
		return EndOfStream
	}
	// forward advance(target) to every source, rebuilding the heap.
	live := u.h[:0]
	for _, it := range u.h {
		if it.head < target {
			it.head = it.src.Advance(target)
		}
		if it.head == EndOfStream {
			_ = it.src.Close()
			continue
		}
		live = append(live, it)
	}
	u.h = live
	heap.Init(&u.h)
	u.hasLast = false
	return u.Next()
}

func (u *union) Min() uint32 { return u.min }
func (u *union) Max() uint32 { return u.max }

func (u *union) Count() int {
	n := 0
	for _, it := range u.h {
		n += it.src.Count()
	}
	return n
}

func (u *union) closeAll() {
	for _, it := range u.h {
		_ = it.src.Close()
	}
	u.h = nil
}

func (u *union) Close() error {
	u.closeAll()
	return nil
}
