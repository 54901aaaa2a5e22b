// Package config validates per-index creation options and persists column
// index descriptors.
//
// Grounded on the teacher's sql/index/config_test.go (TestConfig,
// TestProcessingFile): we generalize its flat ".cfg" file plus
// ".processing" marker into a typed Options struct (parsed with
// github.com/spf13/cast, the teacher's loose-coercion library) and a
// bbolt-backed Store (see store.go) that replaces the per-index directory
// of small files with buckets, matching the teacher's boltdb dependency.
package config

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/saiengine/sai/internal/saierrors"
)

// Kind discriminates the indexed-column kind (spec.md 3).
type Kind int

const (
	KindLiteral Kind = iota
	KindNumeric
	KindVector
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindNumeric:
		return "numeric"
	case KindVector:
		return "vector"
	default:
		return "unknown"
	}
}

// Similarity is the vector similarity function.
type Similarity int

const (
	SimilarityCosine Similarity = iota
	SimilarityDotProduct
	SimilarityEuclidean
)

// SourceModel selects default vector tuning (spec.md 6).
type SourceModel string

const (
	SourceModelAda002  SourceModel = "ada002"
	SourceModelOpenAIv3 SourceModel = "openai-v3-small"
	SourceModelGecko   SourceModel = "gecko"
	SourceModelOther   SourceModel = "other"
)

// Analyzer selects the literal tokenizer.
type Analyzer string

const (
	AnalyzerNone       Analyzer = ""
	AnalyzerWhitespace Analyzer = "whitespace"
)

// Options holds every index-creation option from spec.md 6, defaulted and
// validated per column Kind.
type Options struct {
	Kind Kind

	// Literal-only.
	CaseSensitive bool
	Normalize     bool
	ASCII         bool
	IndexAnalyzer Analyzer

	// Vector-only.
	Similarity  Similarity
	SourceModel SourceModel

	// Numeric-only.
	BKDPostingsSkip      uint32
	BKDPostingsMinLeaves uint32
}

// Default returns the zero-value defaults for kind, per spec.md 6.
func Default(kind Kind) Options {
	o := Options{Kind: kind}
	switch kind {
	case KindLiteral:
		o.CaseSensitive = true
	case KindVector:
		o.Similarity = SimilarityCosine
		o.SourceModel = SourceModelOther
	case KindNumeric:
		o.BKDPostingsSkip = 3
		o.BKDPostingsMinLeaves = 4
	}
	return o
}

var literalKeys = map[string]bool{"case_sensitive": true, "normalize": true, "ascii": true, "index_analyzer": true}
var vectorKeys = map[string]bool{"similarity_function": true, "source_model": true}
var numericKeys = map[string]bool{"bkd_postings_skip": true, "bkd_postings_min_leaves": true}

// Parse validates raw creation options against kind and returns a typed
// Options, or a saierrors.ErrDDLValidation on any misspelled key, wrong-kind
// option, or invalid value -- per spec.md 6: "Misspelled keys, invalid value
// types, or options applied to the wrong column kind must fail at CREATE
// CUSTOM INDEX with a typed error."
func Parse(kind Kind, raw map[string]string) (Options, error) {
	o := Default(kind)

	allowed := map[string]bool{}
	switch kind {
	case KindLiteral:
		allowed = literalKeys
	case KindVector:
		allowed = vectorKeys
	case KindNumeric:
		allowed = numericKeys
	}

	for k, v := range raw {
		if !allowed[k] {
			return Options{}, saierrors.ErrDDLValidation.New(
				fmt.Sprintf("option %q is not valid for a %s index", k, kind))
		}
		var err error
		switch k {
		case "case_sensitive":
			o.CaseSensitive, err = cast.ToBoolE(v)
		case "normalize":
			o.Normalize, err = cast.ToBoolE(v)
		case "ascii":
			o.ASCII, err = cast.ToBoolE(v)
		case "index_analyzer":
			if v != string(AnalyzerWhitespace) && v != "" {
				err = fmt.Errorf("unknown analyzer %q", v)
			}
			o.IndexAnalyzer = Analyzer(v)
		case "similarity_function":
			switch v {
			case "cosine":
				o.Similarity = SimilarityCosine
			case "dot_product":
				o.Similarity = SimilarityDotProduct
			case "euclidean":
				o.Similarity = SimilarityEuclidean
			default:
				err = fmt.Errorf("unknown similarity_function %q", v)
			}
		case "source_model":
			o.SourceModel = SourceModel(v)
			applySourceModelDefaults(&o)
		case "bkd_postings_skip":
			var n uint64
			n, err = cast.ToUint64E(v)
			o.BKDPostingsSkip = uint32(n)
		case "bkd_postings_min_leaves":
			var n uint64
			n, err = cast.ToUint64E(v)
			o.BKDPostingsMinLeaves = uint32(n)
		}
		if err != nil {
			return Options{}, saierrors.ErrDDLValidation.New(
				fmt.Sprintf("option %q: %s", k, err))
		}
	}

	if kind == KindNumeric {
		if o.BKDPostingsSkip < 1 {
			return Options{}, saierrors.ErrDDLValidation.New("bkd_postings_skip must be >= 1")
		}
		if o.BKDPostingsMinLeaves < 1 {
			return Options{}, saierrors.ErrDDLValidation.New("bkd_postings_min_leaves must be >= 1")
		}
	}

	return o, nil
}

// applySourceModelDefaults sets similarity defaults inferred from the
// embedding source model (spec.md 6: "selects default similarity and PQ
// parameters").
func applySourceModelDefaults(o *Options) {
	switch o.SourceModel {
	case SourceModelAda002, SourceModelOpenAIv3:
		o.Similarity = SimilarityCosine
	case SourceModelGecko:
		o.Similarity = SimilarityDotProduct
	}
}
