// Package query implements the predicate planner and executor (spec.md
// 4.7): translating a predicate tree into an iterator DAG over memtable
// and per-SSTable searchers, enforcing the operator acceptance matrix
// (spec.md 6), and driving the ANN filter-then-sort pipeline.
//
// Grounded on the teacher's sql.IndexLookup/sql.Mergeable plan shape
// (sql/index/pilosa/lookup_test.go's TestLookupIndexes/TestIntersection/
// TestUnion: a lookup composes into AND/OR combinations that reduce to
// the underlying bitmap ops) generalized from "one index kind" into the
// cross-kind planner spec.md 4.7 describes.
package query

import (
	"github.com/saiengine/sai/internal/config"
	"github.com/saiengine/sai/internal/saierrors"
)

// Operator is a predicate operator (spec.md 6's acceptance matrix
// columns).
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpRange // <, >, <=, >=, or a closed range
	OpContains
	OpContainsKey
	OpMapEntry // m[k] = v
	OpAnnOf
)

// MapVariant selects which part of a map-typed column a clause restricts,
// mirroring literal.MapVariant at the query boundary.
type MapVariant int

const (
	MapVariantNone MapVariant = iota
	MapVariantKeys
	MapVariantValues
	MapVariantEntries
	MapVariantFull
)

// acceptanceMatrix is spec.md 6's operator acceptance table: for each
// (column kind, map variant), which operators are natively indexed.
// Operators absent from a kind's set must be rejected before any searcher
// is consulted, unless the query opts into ALLOW FILTERING.
var acceptanceMatrix = map[config.Kind]map[MapVariant]map[Operator]bool{
	config.KindLiteral: {
		MapVariantNone: {OpEqual: true, OpNotEqual: true, OpRange: true},
		MapVariantKeys: {OpContainsKey: true},
		MapVariantValues: {OpContains: true, OpNotEqual: true},
		MapVariantEntries: {OpMapEntry: true},
		MapVariantFull:    {OpEqual: true},
	},
	config.KindNumeric: {
		MapVariantNone: {OpEqual: true, OpNotEqual: true, OpRange: true},
	},
	config.KindVector: {
		MapVariantNone: {OpAnnOf: true},
	},
}

// Accepts reports whether (kind, variant) natively indexes op.
func Accepts(kind config.Kind, variant MapVariant, op Operator) bool {
	byVariant, ok := acceptanceMatrix[kind]
	if !ok {
		return false
	}
	ops, ok := byVariant[variant]
	if !ok {
		return false
	}
	return ops[op]
}

// CheckOperator enforces the acceptance matrix for one clause, returning
// saierrors.ErrUnsupportedOperator unless allowFiltering opts out of
// native index support (spec.md 4.7: "unindexed predicates... cause a
// typed error unless the query includes an explicit ALLOW FILTERING
// opt-in, in which case the engine returns all indexed rows and the host
// post-filters").
func CheckOperator(column string, kind config.Kind, variant MapVariant, op Operator, allowFiltering bool) error {
	if Accepts(kind, variant, op) || allowFiltering {
		return nil
	}
	return saierrors.ErrUnsupportedOperator.New(operatorName(op), kind.String(), column)
}

func operatorName(op Operator) string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpRange:
		return "range"
	case OpContains:
		return "CONTAINS"
	case OpContainsKey:
		return "CONTAINS KEY"
	case OpMapEntry:
		return "map entry"
	case OpAnnOf:
		return "ANN OF"
	default:
		return "unknown"
	}
}
