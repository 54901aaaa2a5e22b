package posting

// subtraction implements List \ (set difference): every id in base not
// present in exclude. Used for the NOT CONTAINS/!= family (spec.md 6):
// "computing the complement against the primary-key map... then
// subtracting the postings" -- here base is the full-row complement and
// exclude is the matched postings, or equivalently base can be an
// AllRows list and exclude the matched term directly.
type subtraction struct {
	base, exclude List
	excludeHead   uint32
	done          bool
}

// Subtract returns ids present in base but not in exclude.
func Subtract(base, exclude List) List {
	head := exclude.Next()
	return &subtraction{base: base, exclude: exclude, excludeHead: head}
}

func (s *subtraction) Next() uint32 {
	if s.done {
		return EndOfStream
	}
	for {
		id := s.base.Next()
		if id == EndOfStream {
			s.close()
			return EndOfStream
		}
		for s.excludeHead != EndOfStream && s.excludeHead < id {
			s.excludeHead = s.exclude.Next()
		}
		if s.excludeHead == id {
			continue
		}
		return id
	}
}

func (s *subtraction) Advance(target uint32) uint32 {
	if s.done {
		return EndOfStream
	}
	id := s.base.Advance(target)
	for id != EndOfStream {
		for s.excludeHead != EndOfStream && s.excludeHead < id {
			s.excludeHead = s.exclude.Advance(id)
		}
		if s.excludeHead != id {
			return id
		}
		id = s.base.Next()
	}
	s.close()
	return EndOfStream
}

func (s *subtraction) Min() uint32 { return s.base.Min() }
func (s *subtraction) Max() uint32 { return s.base.Max() }
func (s *subtraction) Count() int  { return s.base.Count() }

func (s *subtraction) close() {
	if s.done {
		return
	}
	s.done = true
	_ = s.base.Close()
	_ = s.exclude.Close()
}

func (s *subtraction) Close() error {
	s.close()
	return nil
}

// AllRows returns the dense posting list [0, n).
func AllRows(n int) List {
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i)
	}
	return NewSlice(ids)
}
