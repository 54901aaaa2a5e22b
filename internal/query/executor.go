package query

import (
	"sort"
	"time"

	"github.com/saiengine/sai/internal/config"
	"github.com/saiengine/sai/internal/lifecycle"
	"github.com/saiengine/sai/internal/posting"
	"github.com/saiengine/sai/internal/saierrors"
	"github.com/saiengine/sai/internal/vector"
)

// Result is one matched row, scoped to the source (memtable or sstable id)
// it came from (spec.md 4.7: "Merge results... by partition key order, or
// by ANN score for vector queries").
type Result struct {
	Source string
	Row    uint32
	Score  float64 // only meaningful when the plan has an ANN clause
}

// Executor evaluates a validated Plan against a set of Sources, gating
// each SSTable source on its index's build state before reading it
// (spec.md 4.7's index-build gate): an in-progress build is waited on for
// up to buildWait, and any source that is not queryable fails the whole
// Execute call; sources are never silently skipped.
type Executor struct {
	lifecycle *lifecycle.Manager
	buildWait time.Duration
}

// NewExecutor returns an Executor that gates SSTable sources through mgr,
// waiting up to buildWait for an in-progress build before failing the
// read. A nil mgr skips the gate entirely (used in tests that exercise
// sources directly).
func NewExecutor(mgr *lifecycle.Manager, buildWait time.Duration) *Executor {
	return &Executor{lifecycle: mgr, buildWait: buildWait}
}

// Execute runs plan against every source and returns the merged result
// set, capped at plan.Limit. Sources are read independently and merged
// after the fact, per spec.md 4.7's "iterator DAG over memtable and
// per-SSTable searchers" -- nothing here requires sources to be read in
// any particular order.
func (e *Executor) Execute(plan *Plan, sources []Source) ([]Result, error) {
	perSource := make([][]Result, 0, len(sources))
	for _, src := range sources {
		if e.lifecycle != nil && src.Name != "" {
			if err := e.lifecycle.RequireQueryable(src.Name, e.buildWait); err != nil {
				return nil, err
			}
		}
		rows, err := e.executeSource(plan, src)
		if err != nil {
			return nil, err
		}
		perSource = append(perSource, rows)
	}

	if plan.AnnClause != nil {
		return mergeRanked(plan.Limit, perSource), nil
	}
	return mergeUnordered(plan.Limit, perSource), nil
}

// executeSource evaluates every non-ANN clause against src, intersects
// them, applies the token-range restriction, and either collects the
// matched rows directly or -- when the plan orders by ANN -- uses the
// intersection as the candidate set for a filter-then-sort vector search
// (spec.md 4.4 "Search-then-filter").
func (e *Executor) executeSource(plan *Plan, src Source) ([]Result, error) {
	var lists []posting.List
	for _, c := range plan.Clauses {
		if c.Op == OpAnnOf {
			continue
		}
		l, err := evalClause(c, src)
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}

	var matched posting.List
	switch {
	case len(lists) == 0 && plan.AnnClause == nil:
		matched = posting.AllRows(src.Resolver.RowCount())
	case len(lists) == 0:
		// ANN-only predicate: no restriction, sort-only search below.
		matched = nil
	default:
		matched = posting.Intersect(lists...)
	}

	if matched != nil && (plan.TokenLo != nil || plan.TokenHi != nil) {
		matched = posting.RangeFilter(matched, src.Resolver, plan.TokenLo, plan.TokenHi)
	}

	if plan.AnnClause == nil {
		rows := posting.Collect(matched)
		out := make([]Result, len(rows))
		for i, r := range rows {
			out[i] = Result{Source: src.Name, Row: r}
		}
		return out, nil
	}

	if src.Vector == nil {
		return nil, nil
	}
	opts := vector.SearchOptions{Limit: plan.Limit}
	if matched != nil {
		opts.CandidateRows = posting.Collect(matched)
	}
	hits := src.Vector.Search(plan.AnnClause.Query, opts)
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = Result{Source: src.Name, Row: h.Row, Score: h.Score}
	}
	return out, nil
}

// evalClause evaluates one non-ANN clause against src's accessor for its
// column kind, returning the clause's posting list.
func evalClause(c Clause, src Source) (posting.List, error) {
	if c.AllowFiltering && !Accepts(c.Kind, c.Variant, c.Op) {
		// ALLOW FILTERING on an operator the index does not serve: return
		// every row of the source and leave the filtering to the host.
		return posting.AllRows(src.Resolver.RowCount()), nil
	}
	switch c.Kind {
	case config.KindLiteral:
		if src.Literal == nil {
			return posting.Empty(), nil
		}
		switch c.Op {
		case OpEqual:
			return src.Literal.ExactMatch(c.Lower), nil
		case OpNotEqual:
			matched := src.Literal.ExactMatch(c.Lower)
			return posting.Subtract(posting.AllRows(src.Resolver.RowCount()), matched), nil
		case OpRange, OpContains, OpContainsKey, OpMapEntry:
			return src.Literal.RangeMatch(c.Lower, c.Upper, c.Filter), nil
		}
	case config.KindNumeric:
		if src.Numeric == nil {
			return posting.Empty(), nil
		}
		switch c.Op {
		case OpEqual:
			return src.Numeric.RangeQuery(c.Lower, c.Lower), nil
		case OpRange:
			return src.Numeric.RangeQuery(c.Lower, c.Upper), nil
		case OpNotEqual:
			matched := src.Numeric.RangeQuery(c.Lower, c.Lower)
			return posting.Subtract(posting.AllRows(src.Resolver.RowCount()), matched), nil
		}
	}
	return nil, saierrors.ErrUnsupportedOperator.New(operatorName(c.Op), c.Kind.String(), c.Column)
}

// mergeUnordered concatenates per-source results in source order, for
// predicates with no ANN ordering (spec.md 4.7: results otherwise merge
// by partition key order, which the host applies on the returned rows).
func mergeUnordered(limit int, perSource [][]Result) []Result {
	var all []Result
	for _, s := range perSource {
		all = append(all, s...)
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// mergeRanked merges per-source ANN hits into a single descending-score
// top-k, the cross-source analogue of vector.MergeTopK (which merges
// per-segment ResultRows; Result additionally threads the source id
// through for primary-key resolution by the caller).
func mergeRanked(limit int, perSource [][]Result) []Result {
	var all []Result
	for _, s := range perSource {
		all = append(all, s...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
