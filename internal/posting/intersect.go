package posting

// intersection implements List ∩ per spec 4.1: computes global_min/global_max
// up front and short-circuits to empty (closing every source eagerly) when
// they cross. Otherwise advances a pivot source to the current candidate,
// emitting on match and re-pivoting on miss.
type intersection struct {
	sources []List
	heads   []uint32 // last id each source returned, valid once fetched[i]
	fetched []bool
	min, max uint32
	candidate uint32
	done    bool
}

// Intersect returns ids present in every source.
func Intersect(sources ...List) List {
	if len(sources) == 0 {
		return Empty()
	}
	if len(sources) == 1 {
		return sources[0]
	}

	var globalMin uint32 = 0
	var globalMax uint32 = EndOfStream
	for _, s := range sources {
		if s.Min() > globalMin {
			globalMin = s.Min()
		}
		if s.Max() < globalMax {
			globalMax = s.Max()
		}
	}
	if globalMin > globalMax {
		for _, s := range sources {
			_ = s.Close()
		}
		return Empty()
	}

	return &intersection{
		sources:   sources,
		heads:     make([]uint32, len(sources)),
		fetched:   make([]bool, len(sources)),
		min:       globalMin,
		max:       globalMax,
		candidate: globalMin,
	}
}

func (x *intersection) Next() uint32 {
	if x.done {
		return EndOfStream
	}
	for {
		matched := true
		next := x.candidate
		for i, s := range x.sources {
			id := x.heads[i]
			if !x.fetched[i] || id < x.candidate {
				id = s.Advance(x.candidate)
				x.heads[i], x.fetched[i] = id, true
			}
			if id == EndOfStream {
				x.close()
				return EndOfStream
			}
			if id != x.candidate {
				matched = false
				if id > next {
					next = id
				}
			}
		}
		if matched {
			result := x.candidate
			x.candidate = result + 1
			if x.candidate > x.max {
				x.close()
			}
			return result
		}
		if next > x.max {
			x.close()
			return EndOfStream
		}
		x.candidate = next
	}
}

func (x *intersection) Advance(target uint32) uint32 {
	if target > x.max {
		x.close()
		return EndOfStream
	}
	if target > x.candidate {
		x.candidate = target
	}
	return x.Next()
}

func (x *intersection) Min() uint32 { return x.min }
func (x *intersection) Max() uint32 { return x.max }

func (x *intersection) Count() int {
	min := -1
	for _, s := range x.sources {
		c := s.Count()
		if min == -1 || c < min {
			min = c
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

func (x *intersection) close() {
	if x.done {
		return
	}
	x.done = true
	for _, s := range x.sources {
		_ = s.Close()
	}
}

func (x *intersection) Close() error {
	x.close()
	return nil
}
