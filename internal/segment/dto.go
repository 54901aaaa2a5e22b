package segment

import (
	"github.com/saiengine/sai/internal/config"
	"github.com/saiengine/sai/internal/numeric"
	"github.com/saiengine/sai/internal/vector"
)

// These DTOs are the on-disk body shape msgpack-encodes into each component
// file (the checksummed footer in component.go is the spec-mandated wire
// format; the body layout for these composite structures is an
// implementation detail spec.md leaves unspecified, so it is msgpack here
// per SPEC_FULL.md 2A).

// literalTermEntry is one trie leaf: a term and its posting list.
type literalTermEntry struct {
	Term []byte
	Rows []uint32
}

// literalTermsBody is the TERMS_DATA payload: every term together with its
// posting list. WriteLiteralColumn writes it whole into TERMS_DATA; no
// separate POSTING_LISTS file is written.
type literalTermsBody struct {
	Entries []literalTermEntry
}

// literalFooterBody is the TERMS_FOOTER_POINTER payload: the footer values
// spec.md 4.2 says the terms file footer records (min/max term) and the
// term count. It holds no pointer to posting data, since the postings are
// stored inline in TERMS_DATA.
type literalFooterBody struct {
	MinTerm []byte
	MaxTerm []byte
	Count   int
}

// numericPoint is one (byte-comparable key, row) pair.
type numericPoint struct {
	Key []byte
	Row uint32
}

// numericTreeBody is the KD_TREE payload: build is idempotent (spec.md 8)
// because the tree is rebuilt deterministically from its sorted points, so
// persisting the point list instead of a node-pointer graph is sufficient
// and trivially reproducible.
type numericTreeBody struct {
	Points               []numericPoint
	MaxPointsInLeaf      int
	BKDPostingsSkip      int
	BKDPostingsMinLeaves int
}

func (b numericTreeBody) options() numeric.Options {
	return numeric.Options{
		MaxPointsInLeaf:      b.MaxPointsInLeaf,
		BKDPostingsSkip:      b.BKDPostingsSkip,
		BKDPostingsMinLeaves: b.BKDPostingsMinLeaves,
	}
}

// numericPostingsBody is the KD_TREE_POSTING_LISTS payload shape: node ids
// with their posting lists. WriteNumericColumn writes it empty and
// ReadNumericColumn only validates its checksum; the tree recomputes its
// internal-node postings on Finish. The file keeps the component present
// for fidelity with spec.md 6's enumerated component set.
type numericPostingsBody struct {
	NodeID   []int
	Postings [][]uint32
}

// vectorBody lists, as one struct, the fields of the ANN_GRAPH/ANN_VECTORS/
// ANN_PQ/ANN_ORDINALS components. WriteVectorColumn and ReadVectorColumn do
// not encode this struct; they write and read each component separately.
type vectorBody struct {
	Vectors     [][]float32
	Rows        [][]uint32
	Neighbors   [][]int32
	Similarity  int
	MaxConn     int
	HasCodebook bool
	Codebook    codebookDTO
	Codes       [][]byte
	UnitVectors bool
}

type codebookDTO struct {
	NumSubvectors  int
	SubvectorDim   int
	CentroidsPerSV int
	Centroids      [][][]float32
}

func toCodebookDTO(cb *vector.Codebook) codebookDTO {
	if cb == nil {
		return codebookDTO{}
	}
	dto := codebookDTO{NumSubvectors: cb.NumSubvectors, SubvectorDim: cb.SubvectorDim, CentroidsPerSV: cb.CentroidsPerSV}
	dto.Centroids = make([][][]float32, len(cb.Centroids))
	for i, per := range cb.Centroids {
		dto.Centroids[i] = make([][]float32, len(per))
		for j, v := range per {
			dto.Centroids[i][j] = []float32(v)
		}
	}
	return dto
}

func (dto codebookDTO) toCodebook() *vector.Codebook {
	cb := &vector.Codebook{NumSubvectors: dto.NumSubvectors, SubvectorDim: dto.SubvectorDim, CentroidsPerSV: dto.CentroidsPerSV}
	cb.Centroids = make([][]vector.Vector, len(dto.Centroids))
	for i, per := range dto.Centroids {
		cb.Centroids[i] = make([]vector.Vector, len(per))
		for j, v := range per {
			cb.Centroids[i][j] = vector.Vector(v)
		}
	}
	return cb
}

// metaBody is the META component: row count, min/max term, column kind.
type metaBody struct {
	RowCount int
	MinTerm  []byte
	MaxTerm  []byte
	Kind     config.Kind
}
