package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiengine/sai/internal/config"
	"github.com/saiengine/sai/internal/vector"
)

func TestPlannerAcceptsValidPredicate(t *testing.T) {
	p := NewPlanner()
	pred := Predicate{
		{Column: "status", Kind: config.KindLiteral, Variant: MapVariantNone, Op: OpEqual, Lower: []byte("active")},
		{Column: "age", Kind: config.KindNumeric, Variant: MapVariantNone, Op: OpRange, Lower: []byte{0, 18}, Upper: []byte{0, 65}},
	}
	plan, err := p.Plan(pred, PlanOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, plan.Clauses, 2)
	require.Nil(t, plan.AnnClause)
	require.Equal(t, 10, plan.Limit)
}

func TestPlannerRejectsUnindexedOperator(t *testing.T) {
	p := NewPlanner()
	pred := Predicate{
		{Column: "embedding", Kind: config.KindVector, Variant: MapVariantNone, Op: OpEqual},
	}
	_, err := p.Plan(pred, PlanOptions{})
	require.Error(t, err)
}

func TestPlannerAllowFilteringOptOut(t *testing.T) {
	p := NewPlanner()
	pred := Predicate{
		{Column: "bio", Kind: config.KindLiteral, Variant: MapVariantValues, Op: OpEqual, AllowFiltering: true},
	}
	plan, err := p.Plan(pred, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Clauses, 1)
}

func TestPlannerTracksAnnClause(t *testing.T) {
	p := NewPlanner()
	pred := Predicate{
		{Column: "status", Kind: config.KindLiteral, Variant: MapVariantNone, Op: OpEqual, Lower: []byte("active")},
		{Column: "embedding", Kind: config.KindVector, Variant: MapVariantNone, Op: OpAnnOf, Query: vector.Vector{1, 0, 0}},
	}
	plan, err := p.Plan(pred, PlanOptions{Limit: 5})
	require.NoError(t, err)
	require.NotNil(t, plan.AnnClause)
	require.Equal(t, "embedding", plan.AnnClause.Column)
}
