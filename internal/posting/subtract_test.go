package posting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubtract(t *testing.T) {
	testCases := []struct {
		name          string
		base, exclude []uint32
		want          []uint32
	}{
		{"disjoint", []uint32{1, 2, 3}, []uint32{4, 5}, []uint32{1, 2, 3}},
		{"full overlap", []uint32{1, 2, 3}, []uint32{1, 2, 3}, nil},
		{"partial", []uint32{1, 2, 3, 4, 5}, []uint32{2, 4}, []uint32{1, 3, 5}},
		{"empty exclude", []uint32{1, 2}, []uint32{}, []uint32{1, 2}},
		{"empty base", []uint32{}, []uint32{1, 2}, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Collect(Subtract(ids(tc.base...), ids(tc.exclude...)))
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAllRows(t *testing.T) {
	require.Equal(t, []uint32{0, 1, 2, 3, 4}, Collect(AllRows(5)))
	require.Equal(t, 0, AllRows(0).Count())
}

func TestSubtractNotContainsPattern(t *testing.T) {
	// mirrors the NOT CONTAINS family (spec.md 6): complement of a term's
	// postings against every row in the index's view.
	matched := ids(1, 3)
	got := Collect(Subtract(AllRows(5), matched))
	require.Equal(t, []uint32{0, 2, 4}, got)
}
