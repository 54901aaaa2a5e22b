// Package segment implements the per-segment builder, the per-SSTable
// on-disk component layout, checksums, and completion markers, per
// spec.md 4.5 and 6.
//
// Grounded on the teacher's sql/index/config_test.go processing-file
// pattern (ExistsProcessingFile / CreateProcessingFile / RemoveProcessingFile)
// generalized from one ad-hoc marker into the full per-column and
// per-SSTable completion-marker set, and on its WriteConfigFile/
// ReadConfigFile pair for the checksummed-footer idea (every non-marker
// component here ends with the same [magic][version][crc32] footer).
package segment

import "fmt"

// ComponentType enumerates every on-disk component kind from spec.md 6.
type ComponentType string

const (
	TermsData             ComponentType = "TERMS_DATA"
	TermsFooterPointer     ComponentType = "TERMS_FOOTER_POINTER"
	PostingLists           ComponentType = "POSTING_LISTS"
	KDTree                 ComponentType = "KD_TREE"
	KDTreePostingLists     ComponentType = "KD_TREE_POSTING_LISTS"
	ANNGraph               ComponentType = "ANN_GRAPH"
	ANNVectors             ComponentType = "ANN_VECTORS"
	ANNPQ                  ComponentType = "ANN_PQ"
	ANNOrdinals            ComponentType = "ANN_ORDINALS"
	Meta                   ComponentType = "META"
	ColumnCompletionMarker ComponentType = "COLUMN_COMPLETION_MARKER"
	PrimaryKeyTrie         ComponentType = "PRIMARY_KEY_TRIE"
	PrimaryKeyBlocks       ComponentType = "PRIMARY_KEY_BLOCKS"
	PrimaryKeyBlockOffsets ComponentType = "PRIMARY_KEY_BLOCK_OFFSETS"
	TokenValues            ComponentType = "TOKEN_VALUES"
	OffsetsValues          ComponentType = "OFFSETS_VALUES"
	GroupCompletionMarker  ComponentType = "GROUP_COMPLETION_MARKER"
)

// isMarker reports whether t is a zero-length completion marker (no
// checksum footer applies).
func (t ComponentType) isMarker() bool {
	return t == ColumnCompletionMarker || t == GroupCompletionMarker
}

// Version is a two-letter on-disk format generation tag (spec.md 6).
type Version string

// CurrentVersion is written by this build; readers must accept any
// version <= CurrentVersion in the (arbitrary but fixed) generation order
// defined by versionOrder.
const CurrentVersion Version = "AA"

var versionOrder = map[Version]int{"AA": 0}

// Supported reports whether v is a version this build knows how to read.
func Supported(v Version) bool {
	_, ok := versionOrder[v]
	return ok
}

// ComponentPath returns the on-disk file name for a component, per spec.md
// 6: "<sstable>-SAI+<version>+<column|>+<ComponentType>.db". column is
// empty for per-SSTable (shared) components.
func ComponentPath(sstable string, version Version, column string, t ComponentType) string {
	return fmt.Sprintf("%s-SAI+%s+%s+%s.db", sstable, version, column, t)
}
