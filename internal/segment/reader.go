package segment

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/saiengine/sai/internal/literal"
	"github.com/saiengine/sai/internal/numeric"
	"github.com/saiengine/sai/internal/rowid"
	"github.com/saiengine/sai/internal/vector"
)

func readUnmarshal(path, componentName, sstable, column string, out interface{}) error {
	body, err := ReadComponent(path, componentName, sstable, column)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(body, out)
}

// ColumnQueryable reports whether a column's completion marker is present
// (spec.md 4.5: "A missing marker is treated as 'index absent for this
// SSTable' (not an error)").
func ColumnQueryable(d Dir, column string) bool {
	return Exists(d.path(column, ColumnCompletionMarker))
}

// SSTableQueryable reports whether the per-SSTable group completion marker
// is present.
func SSTableQueryable(d Dir) bool {
	return Exists(d.path("", GroupCompletionMarker))
}

// ReadLiteralColumn reconstructs a literal.Index, validating every
// checksum. Returns saierrors.ErrCorruption (via ReadComponent) on any
// mismatch.
func ReadLiteralColumn(d Dir, column string) (*literal.Index, error) {
	var body literalTermsBody
	if err := readUnmarshal(d.path(column, TermsData), string(TermsData), d.SSTable, column, &body); err != nil {
		return nil, err
	}
	var footer literalFooterBody
	if err := readUnmarshal(d.path(column, TermsFooterPointer), string(TermsFooterPointer), d.SSTable, column, &footer); err != nil {
		return nil, err
	}

	entries := make([]literal.Entry, len(body.Entries))
	for i, e := range body.Entries {
		entries[i] = literal.Entry{Term: e.Term, Rows: e.Rows}
	}
	return literal.FromEntries(entries), nil
}

// ReadNumericColumn reconstructs a numeric.Tree from its persisted points.
func ReadNumericColumn(d Dir, column string) (*numeric.Tree, error) {
	var body numericTreeBody
	if err := readUnmarshal(d.path(column, KDTree), string(KDTree), d.SSTable, column, &body); err != nil {
		return nil, err
	}
	// validate the companion component even though it is not required to
	// rebuild the tree, so a corrupted KD_TREE_POSTING_LISTS is still caught.
	var postings numericPostingsBody
	if err := readUnmarshal(d.path(column, KDTreePostingLists), string(KDTreePostingLists), d.SSTable, column, &postings); err != nil {
		return nil, err
	}

	b := numeric.NewBuilder(body.options())
	for _, p := range body.Points {
		b.Add(p.Key, p.Row)
	}
	return b.Finish(), nil
}

// ReadVectorColumn reconstructs a vector.DiskANN from its four components.
func ReadVectorColumn(d Dir, column string) (*vector.DiskANN, error) {
	var raw [][]float32
	if err := readUnmarshal(d.path(column, ANNVectors), string(ANNVectors), d.SSTable, column, &raw); err != nil {
		return nil, err
	}
	var neighbors [][]int32
	if err := readUnmarshal(d.path(column, ANNGraph), string(ANNGraph), d.SSTable, column, &neighbors); err != nil {
		return nil, err
	}
	var rows [][]uint32
	if err := readUnmarshal(d.path(column, ANNOrdinals), string(ANNOrdinals), d.SSTable, column, &rows); err != nil {
		return nil, err
	}
	var pqBody struct {
		HasCodebook bool
		Codebook    codebookDTO
		Codes       [][]byte
		UnitVectors bool
		Similarity  int
		MaxConn     int
	}
	if err := readUnmarshal(d.path(column, ANNPQ), string(ANNPQ), d.SSTable, column, &pqBody); err != nil {
		return nil, err
	}

	vectors := make([]vector.Vector, len(raw))
	for i, v := range raw {
		vectors[i] = vector.Vector(v)
	}
	var cb *vector.Codebook
	if pqBody.HasCodebook {
		cb = pqBody.Codebook.toCodebook()
	}
	return vector.FromComponents(vectors, rows, neighbors, vector.Similarity(pqBody.Similarity), pqBody.MaxConn, cb, pqBody.Codes, pqBody.UnitVectors), nil
}

// ReadMeta reads the segment META component.
func ReadMeta(d Dir, column string) (rowCount int, minTerm, maxTerm []byte, err error) {
	var m metaBody
	if err := readUnmarshal(d.path(column, Meta), string(Meta), d.SSTable, column, &m); err != nil {
		return 0, nil, nil, err
	}
	return m.RowCount, m.MinTerm, m.MaxTerm, nil
}

// ReadPrimaryKeyMap reconstructs the per-SSTable primary-key <-> row-id map.
func ReadPrimaryKeyMap(d Dir) (*rowid.Map, error) {
	var pks []rowid.PrimaryKey
	if err := readUnmarshal(d.path("", PrimaryKeyTrie), string(PrimaryKeyTrie), d.SSTable, "", &pks); err != nil {
		return nil, err
	}
	// validate the companion block components too, per the "every
	// non-marker component is checksummed" invariant.
	var blocks [][]rowid.PrimaryKey
	if err := readUnmarshal(d.path("", PrimaryKeyBlocks), string(PrimaryKeyBlocks), d.SSTable, "", &blocks); err != nil {
		return nil, err
	}
	var offsets []int
	if err := readUnmarshal(d.path("", PrimaryKeyBlockOffsets), string(PrimaryKeyBlockOffsets), d.SSTable, "", &offsets); err != nil {
		return nil, err
	}
	return rowid.NewMap(pks), nil
}
