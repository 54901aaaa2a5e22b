package segment

import (
	"os"

	"github.com/saiengine/sai/internal/literal"
	"github.com/saiengine/sai/internal/numeric"
	"github.com/saiengine/sai/internal/saierrors"
)

// LiteralTermRow is one (term, row) observation fed to a literal build.
type LiteralTermRow struct {
	Term []byte
	Row  uint32
}

// BuildLiteralSegments partitions rows into 1..K segments bounded by the
// global MemoryLimiter (spec.md 4.5: "Builds are bounded by a global
// segment-buffer memory limiter. When the builder's buffered bytes exceed
// the limit, the current segment is flushed and a new segment begins; the
// final flush at end-of-input closes the last segment."). Each returned
// Index is one segment's literal.Index.
func BuildLiteralSegments(limiter *MemoryLimiter, rows []LiteralTermRow, segmentBudget int64, faults *Faults) ([]*literal.Index, error) {
	var segments []*literal.Index
	b := literal.NewBuilder()
	reserved := int64(0)
	defer func() { limiter.Release(reserved) }()

	flush := func() error {
		if err := faults.beforeSegmentFlush(); err != nil {
			return err
		}
		segments = append(segments, b.Finish())
		limiter.Release(reserved)
		reserved = 0
		b = literal.NewBuilder()
		return nil
	}

	for _, r := range rows {
		if err := faults.beforeTokenWriterAdd(); err != nil {
			return nil, err
		}
		b.Add(r.Term, r.Row)
		want := int64(b.EstimatedBytes()) - reserved
		if want > 0 {
			if !limiter.TryReserve(want) {
				if err := flush(); err != nil {
					return nil, err
				}
				limiter.Reserve(int64(b.EstimatedBytes()))
				reserved = int64(b.EstimatedBytes())
				continue
			}
			reserved += want
		}
		if int64(b.EstimatedBytes()) >= segmentBudget {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if b.EstimatedBytes() > 0 || len(segments) == 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return segments, nil
}

// BuildNumericSegments is the numeric analogue of BuildLiteralSegments.
func BuildNumericSegments(limiter *MemoryLimiter, keys [][]byte, rowIDs []uint32, opts numeric.Options, segmentBudget int64, faults *Faults) ([]*numeric.Tree, error) {
	var segments []*numeric.Tree
	b := numeric.NewBuilder(opts)
	reserved := int64(0)
	defer func() { limiter.Release(reserved) }()

	flush := func() error {
		if err := faults.beforeSegmentFlush(); err != nil {
			return err
		}
		segments = append(segments, b.Finish())
		limiter.Release(reserved)
		reserved = 0
		b = numeric.NewBuilder(opts)
		return nil
	}

	for i, k := range keys {
		b.Add(k, rowIDs[i])
		want := int64(b.EstimatedBytes()) - reserved
		if want > 0 {
			if !limiter.TryReserve(want) {
				if err := flush(); err != nil {
					return nil, err
				}
				limiter.Reserve(int64(b.EstimatedBytes()))
				reserved = int64(b.EstimatedBytes())
				continue
			}
			reserved += want
		}
		if int64(b.EstimatedBytes()) >= segmentBudget {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if b.EstimatedBytes() > 0 || len(segments) == 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return segments, nil
}

// AbortCleanup deletes every per-column component file for sstable (and the
// per-SSTable token/offset files too, when no column succeeded), per
// spec.md 4.5 "Interruption": a failed build leaves nothing partial behind.
func AbortCleanup(d Dir, columns []string, anyColumnSucceeded bool) error {
	for _, col := range columns {
		for _, t := range []ComponentType{TermsData, TermsFooterPointer, PostingLists, KDTree, KDTreePostingLists,
			ANNGraph, ANNVectors, ANNPQ, ANNOrdinals, Meta, ColumnCompletionMarker} {
			p := d.path(col, t)
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	if !anyColumnSucceeded {
		for _, t := range []ComponentType{PrimaryKeyTrie, PrimaryKeyBlocks, PrimaryKeyBlockOffsets, TokenValues, OffsetsValues, GroupCompletionMarker} {
			p := d.path("", t)
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

// EnsureDir creates the component directory if it does not already exist.
func EnsureDir(path, sstable, column string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return saierrors.ErrBuildFailed.New(sstable, column, err.Error())
	}
	return nil
}
