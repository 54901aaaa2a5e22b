package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiengine/sai/internal/saierrors"
)

func TestParseLiteralOptions(t *testing.T) {
	require := require.New(t)
	o, err := Parse(KindLiteral, map[string]string{
		"case_sensitive": "false",
		"normalize":      "true",
		"ascii":          "true",
		"index_analyzer": "whitespace",
	})
	require.NoError(err)
	require.False(o.CaseSensitive)
	require.True(o.Normalize)
	require.True(o.ASCII)
	require.Equal(AnalyzerWhitespace, o.IndexAnalyzer)
}

func TestParseRejectsWrongKindOption(t *testing.T) {
	require := require.New(t)
	_, err := Parse(KindNumeric, map[string]string{"case_sensitive": "true"})
	require.Error(err)
	require.True(errIsDDLValidation(err))
}

func TestParseRejectsMisspelledKey(t *testing.T) {
	require := require.New(t)
	_, err := Parse(KindLiteral, map[string]string{"case_senstive": "true"})
	require.Error(err)
}

func TestParseNumericDefaults(t *testing.T) {
	require := require.New(t)
	o, err := Parse(KindNumeric, nil)
	require.NoError(err)
	require.EqualValues(3, o.BKDPostingsSkip)
	require.EqualValues(4, o.BKDPostingsMinLeaves)
}

func TestParseNumericRejectsZeroSkip(t *testing.T) {
	require := require.New(t)
	_, err := Parse(KindNumeric, map[string]string{"bkd_postings_skip": "0"})
	require.Error(err)
}

func TestParseSourceModelDefaultsSimilarity(t *testing.T) {
	require := require.New(t)
	o, err := Parse(KindVector, map[string]string{"source_model": "gecko"})
	require.NoError(err)
	require.Equal(SimilarityDotProduct, o.Similarity)
}

func errIsDDLValidation(err error) bool {
	return saierrors.ErrDDLValidation.Is(err)
}

func TestStoreRoundTrip(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	store, err := OpenStore(filepath.Join(dir, "sai.db"))
	require.NoError(err)
	defer store.Close()

	opts, err := Parse(KindLiteral, map[string]string{"case_sensitive": "false"})
	require.NoError(err)

	d := Descriptor{
		Keyspace:  "ks",
		Table:     "t",
		Index:     "idx1",
		Column:    "v",
		Kind:      KindLiteral,
		Options:   opts,
		Signature: Sign("ks", "t", "idx1", "v", opts),
	}
	require.NoError(store.Put(d))

	got, ok, err := store.Get("ks", "t", "idx1")
	require.NoError(err)
	require.True(ok)
	require.Equal(d, got)

	require.NoError(store.Delete("ks", "t", "idx1"))
	_, ok, err = store.Get("ks", "t", "idx1")
	require.NoError(err)
	require.False(ok)
}
