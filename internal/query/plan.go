package query

import (
	"github.com/saiengine/sai/internal/config"
	"github.com/saiengine/sai/internal/literal"
	"github.com/saiengine/sai/internal/vector"
)

// Clause is one per-column restriction in a conjunctive predicate tree
// (spec.md 4.7: "Input: a predicate tree (conjunctions of per-column
// clauses)").
type Clause struct {
	Column         string
	Kind           config.Kind
	Variant        MapVariant
	Op             Operator
	Lower, Upper   []byte // OpEqual uses Lower only; OpRange uses either/both
	Filter         literal.FilterFunc
	Query          vector.Vector // OpAnnOf
	AllowFiltering bool
}

// Predicate is a conjunction of clauses.
type Predicate []Clause

// Plan is the planner's output: a validated predicate plus the ANN
// ordering column, if any (spec.md 4.7 "optional ordering (ANN or
// column-order)").
type Plan struct {
	Clauses   []Clause
	AnnClause *Clause // nil if the predicate has no ANN OF clause
	Limit     int
	PageSize  int
	TokenLo   []byte
	TokenHi   []byte
}

// PlanOptions carries the parts of spec.md 4.7's input that aren't part
// of the predicate tree itself.
type PlanOptions struct {
	Limit       int
	PageSize    int
	TokenLo     []byte
	TokenHi     []byte
}

// Planner validates a Predicate against the operator acceptance matrix and
// produces a Plan, per spec.md 4.7 "For each column clause select the
// index kind and operator... Unindexed predicates or indexed operators
// explicitly rejected... cause a typed error unless ALLOW FILTERING".
type Planner struct{}

// NewPlanner returns a Planner. It carries no state: every validation rule
// is a pure function of the clause and the (kind, variant, operator)
// acceptance matrix.
func NewPlanner() *Planner { return &Planner{} }

// Plan validates pred and returns the executable Plan.
func (p *Planner) Plan(pred Predicate, opts PlanOptions) (*Plan, error) {
	plan := &Plan{
		Limit:    opts.Limit,
		PageSize: opts.PageSize,
		TokenLo:  opts.TokenLo,
		TokenHi:  opts.TokenHi,
	}
	for _, c := range pred {
		if err := CheckOperator(c.Column, c.Kind, c.Variant, c.Op, c.AllowFiltering); err != nil {
			return nil, err
		}
		plan.Clauses = append(plan.Clauses, c)
		if c.Op == OpAnnOf {
			cc := c
			plan.AnnClause = &cc
		}
	}
	return plan, nil
}
