// Package literal implements the literal (string/boolean/UUID/collection)
// index: a byte-comparable term dictionary over a trie, with each leaf
// pointing at a posting list, plus the term-encoding rules of spec.md 4.2.
//
// Grounded on the teacher's sql/index/pilosa mapping (value -> rowID via a
// boltdb mapping, mapping_test.go's TestLocation) for the "byte-comparable
// key -> payload" shape, generalized into a standalone trie so it does not
// depend on a running pilosa holder.
package literal

import (
	"encoding/binary"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/saiengine/sai/internal/config"
	"github.com/saiengine/sai/internal/saierrors"
)

// MaxLiteralTermBytes is the per-term size limit from spec.md 3 invariant 1
// (configurable; this is the default).
const MaxLiteralTermBytes = 1024

// MaxFrozenCollectionTermBytes is the frozen-collection term limit.
const MaxFrozenCollectionTermBytes = 5 * 1024

var asciiFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicodeMn)), norm.NFC)

// EncodeString applies the configured analyzer pipeline (lowercase, NFC
// normalize, ascii fold) and returns one term per token. With no analyzer
// configured the whole string is a single term.
func EncodeString(s string, opts config.Options) ([][]byte, error) {
	if !opts.CaseSensitive {
		s = cases.Fold().String(s)
	}
	if opts.Normalize {
		s = norm.NFC.String(s)
	}
	if opts.ASCII {
		folded, _, err := transform.String(asciiFolder, s)
		if err == nil {
			s = folded
		}
	}

	var tokens []string
	if opts.IndexAnalyzer == config.AnalyzerWhitespace {
		tokens = strings.Fields(s)
	} else {
		tokens = []string{s}
	}

	out := make([][]byte, 0, len(tokens))
	total := 0
	for _, tok := range tokens {
		b := []byte(tok)
		total += len(b)
		if len(b) > MaxLiteralTermBytes {
			return nil, saierrors.ErrTermTooLarge.New("<literal>", MaxLiteralTermBytes, len(b))
		}
		out = append(out, b)
	}
	if total > 8*1024 {
		return nil, saierrors.ErrTermTooLarge.New("<literal analyzed total>", 8*1024, total)
	}
	return out, nil
}

// EncodeBool returns the native byte-comparable form of a boolean.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// EncodeUUID returns the native byte-comparable form of a UUID (its 16 raw
// bytes, which are already byte-comparable per RFC 4122 ordering for
// time-ordered UUIDs and at minimum stable for equality).
func EncodeUUID(id uuid.UUID) []byte {
	b := make([]byte, 16)
	copy(b, id[:])
	return b
}

// EncodeComposite concatenates already-encoded components into a single
// delimiter-free byte-comparable composite term, per spec.md 3: "Composite
// columns use a delimiter-free byte-comparable concatenation." Each
// component is length-prefixed with a fixed-width uint16 so concatenation
// stays byte-comparable only within components of identical shape (the
// documented limitation of delimiter-free composites: components must be
// compared component-wise, never via simple byte comparison, when their
// lengths can vary and later components have different orderings). For
// fixed-width components (the common case: numeric composites) plain
// concatenation preserves ordering.
func EncodeComposite(components ...[]byte) []byte {
	var out []byte
	for _, c := range components {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(c)))
		out = append(out, lenBuf[:]...)
		out = append(out, c...)
	}
	return out
}

// unicodeMn is defined in fold.go (separate file to keep the unicode RangeTable
// import local to one place).
