package numeric

import (
	"bytes"
	"sort"

	"github.com/saiengine/sai/internal/posting"
)

// point is one (key, row) pair seen during a build.
type point struct {
	key []byte
	row uint32
}

// node is one block KD-tree node. Leaves hold up to maxPointsInLeaf sorted
// points directly; internal nodes hold a split value and two children.
type node struct {
	// leaf fields
	isLeaf bool
	points []point // sorted by key, leaf only

	// internal fields
	splitValue  []byte // smallest key in the right subtree
	left, right *node

	// every node in [0, len(tree.postings)) eligible per the sampling
	// predicate has precomputed postings; others recurse at query time.
	id       int
	postings []uint32 // sorted union of descendant leaves, if eligible
	min, max []byte   // key range covered by this subtree
}

// Options tunes posting-list precomputation, per spec.md 4.3.
type Options struct {
	MaxPointsInLeaf      int
	BKDPostingsSkip      int // depth %% skip == 0
	BKDPostingsMinLeaves int
}

func defaultOptions() Options {
	return Options{MaxPointsInLeaf: 512, BKDPostingsSkip: 3, BKDPostingsMinLeaves: 4}
}

// Tree is a read-only, built block KD-tree over one numeric column in one
// segment.
type Tree struct {
	root      *node
	opts      Options
	nodeCount int
}

// Builder accumulates points for one column during a segment build.
type Builder struct {
	opts   Options
	points []point
	bytes  int
}

// NewBuilder returns a Builder; zero-value opts takes spec.md 6 defaults.
func NewBuilder(opts Options) *Builder {
	if opts.MaxPointsInLeaf <= 0 {
		opts.MaxPointsInLeaf = defaultOptions().MaxPointsInLeaf
	}
	if opts.BKDPostingsSkip <= 0 {
		opts.BKDPostingsSkip = defaultOptions().BKDPostingsSkip
	}
	if opts.BKDPostingsMinLeaves <= 0 {
		opts.BKDPostingsMinLeaves = defaultOptions().BKDPostingsMinLeaves
	}
	return &Builder{opts: opts}
}

// Add records that row has the given fixed-width encoded key.
func (b *Builder) Add(key []byte, row uint32) {
	k := append([]byte(nil), key...)
	b.points = append(b.points, point{key: k, row: row})
	b.bytes += len(key) + 4
}

func (b *Builder) EstimatedBytes() int { return b.bytes }

// Finish sorts all points by key and builds the balanced tree bottom-up.
func (b *Builder) Finish() *Tree {
	sort.Slice(b.points, func(i, j int) bool { return bytes.Compare(b.points[i].key, b.points[j].key) < 0 })

	t := &Tree{opts: b.opts}
	t.root = t.build(b.points, 0)
	return t
}

// Point is the exported (key, row) view of one indexed value, used by
// segment writers to serialize the tree as its sorted point list (the
// rebuild is deterministic, so persisting points instead of the node graph
// keeps the idempotent-build invariant for free).
type Point struct {
	Key []byte
	Row uint32
}

// Options returns the tuning this tree was built with.
func (t *Tree) Options() Options { return t.opts }

// AllPoints returns every (key, row) pair in ascending key order via an
// in-order leaf traversal.
func (t *Tree) AllPoints() []Point {
	var out []Point
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.isLeaf {
			for _, p := range n.points {
				out = append(out, Point{Key: p.key, Row: p.row})
			}
			return
		}
		walk(n.left)
		walk(n.right)
	}
	walk(t.root)
	return out
}

func (t *Tree) build(pts []point, depth int) *node {
	if len(pts) <= t.opts.MaxPointsInLeaf {
		n := &node{isLeaf: true, points: pts, id: t.nodeCount}
		t.nodeCount++
		if len(pts) > 0 {
			n.min, n.max = pts[0].key, pts[len(pts)-1].key
		}
		t.maybePrecompute(n, depth, 1)
		return n
	}

	mid := len(pts) / 2
	// advance mid past any run of equal keys so the split value is unambiguous.
	for mid < len(pts)-1 && bytes.Equal(pts[mid].key, pts[mid-1].key) {
		mid++
	}

	left := t.build(pts[:mid], depth+1)
	right := t.build(pts[mid:], depth+1)

	n := &node{
		isLeaf:     false,
		splitValue: append([]byte(nil), pts[mid].key...),
		left:       left,
		right:      right,
		id:         t.nodeCount,
		min:        minKey(left.min, right.min),
		max:        maxKey(left.max, right.max),
	}
	t.nodeCount++

	leaves := countLeaves(n)
	t.maybePrecompute(n, depth, leaves)
	return n
}

// maybePrecompute implements the sampling predicate from spec.md 4.3:
// "depth %% bkd_postings_skip == 0 AND the subtree contains >=
// bkd_postings_min_leaves leaves". Leaves are always eligible (trivially
// satisfy both: depth%%skip only gates internal nodes per the spec's
// "Internal postings" wording, leaf postings are unconditional).
func (t *Tree) maybePrecompute(n *node, depth, leaves int) {
	if n.isLeaf {
		n.postings = rowsOf(n.points)
		return
	}
	if depth%t.opts.BKDPostingsSkip == 0 && leaves >= t.opts.BKDPostingsMinLeaves {
		n.postings = unionRows(n.left.postings, n.right.postings, n.left, n.right)
	}
}

func rowsOf(pts []point) []uint32 {
	rows := make([]uint32, len(pts))
	for i, p := range pts {
		rows[i] = p.row
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })
	return rows
}

// unionRows merges precomputed child postings when present, else collects
// from the subtree directly (children not eligible still need flattening).
func unionRows(leftRows, rightRows []uint32, left, right *node) []uint32 {
	if leftRows == nil {
		leftRows = collectRows(left)
	}
	if rightRows == nil {
		rightRows = collectRows(right)
	}
	out := make([]uint32, 0, len(leftRows)+len(rightRows))
	i, j := 0, 0
	for i < len(leftRows) && j < len(rightRows) {
		if leftRows[i] < rightRows[j] {
			out = append(out, leftRows[i])
			i++
		} else {
			out = append(out, rightRows[j])
			j++
		}
	}
	out = append(out, leftRows[i:]...)
	out = append(out, rightRows[j:]...)
	return out
}

func collectRows(n *node) []uint32 {
	if n.postings != nil {
		return n.postings
	}
	if n.isLeaf {
		return rowsOf(n.points)
	}
	return unionRows(n.left.postings, n.right.postings, n.left, n.right)
}

func countLeaves(n *node) int {
	if n.isLeaf {
		return 1
	}
	return countLeaves(n.left) + countLeaves(n.right)
}

func minKey(a, b []byte) []byte {
	if bytes.Compare(a, b) <= 0 {
		return a
	}
	return b
}
func maxKey(a, b []byte) []byte {
	if bytes.Compare(a, b) >= 0 {
		return a
	}
	return b
}

// RangeQuery returns the sorted row ids with a <= value <= b, walking the
// tree per spec.md 4.3: skip nodes entirely outside, use precomputed
// postings for nodes entirely inside, recurse on overlap, filter leaves.
func (t *Tree) RangeQuery(lo, hi []byte) posting.List {
	var sources []posting.List
	t.rangeQuery(t.root, lo, hi, &sources)
	if len(sources) == 0 {
		return posting.Empty()
	}
	return posting.Union(sources...)
}

func (t *Tree) rangeQuery(n *node, lo, hi []byte, out *[]posting.List) {
	if n == nil {
		return
	}
	if outsideRange(n, lo, hi) {
		return
	}
	if insideRange(n, lo, hi) && n.postings != nil {
		*out = append(*out, posting.NewSlice(n.postings))
		return
	}
	if n.isLeaf {
		var matched []uint32
		for _, p := range n.points {
			if bytes.Compare(p.key, lo) >= 0 && bytes.Compare(p.key, hi) <= 0 {
				matched = append(matched, p.row)
			}
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i] < matched[j] })
		if len(matched) > 0 {
			*out = append(*out, posting.NewSlice(matched))
		}
		return
	}
	t.rangeQuery(n.left, lo, hi, out)
	t.rangeQuery(n.right, lo, hi, out)
}

func outsideRange(n *node, lo, hi []byte) bool {
	if n.max != nil && bytes.Compare(n.max, lo) < 0 {
		return true
	}
	if n.min != nil && bytes.Compare(n.min, hi) > 0 {
		return true
	}
	return false
}

func insideRange(n *node, lo, hi []byte) bool {
	return n.min != nil && bytes.Compare(n.min, lo) >= 0 && bytes.Compare(n.max, hi) <= 0
}
