package vector

import (
	"math"

	"github.com/bits-and-blooms/bitset"
)

// MinPQRows is the row-count threshold at which a segment trains a PQ
// codebook instead of comparing raw vectors (spec.md 4.4: "MIN_PQ_ROWS
// (~1024)").
const MinPQRows = 1024

// Codebook is a trained product-quantization codebook: dim is split into
// NumSubvectors chunks, each with its own set of Centroids.
type Codebook struct {
	NumSubvectors  int
	SubvectorDim   int
	CentroidsPerSV int
	Centroids      [][]Vector // [subvector][centroid] -> sub-vector
}

// TrainCodebook runs k-means independently per subvector chunk. numSV and
// centroidsPerSV are tuning knobs; callers default numSV so dim is evenly
// divisible and centroidsPerSV=256 (one byte per subvector code).
func TrainCodebook(vectors []Vector, numSV, centroidsPerSV, iterations int) *Codebook {
	if len(vectors) == 0 || numSV <= 0 {
		return &Codebook{}
	}
	dim := len(vectors[0])
	subDim := dim / numSV
	if subDim == 0 {
		subDim = 1
		numSV = dim
	}

	cb := &Codebook{NumSubvectors: numSV, SubvectorDim: subDim, CentroidsPerSV: centroidsPerSV}
	cb.Centroids = make([][]Vector, numSV)

	for sv := 0; sv < numSV; sv++ {
		start := sv * subDim
		end := start + subDim
		if sv == numSV-1 {
			end = dim
		}
		subs := make([]Vector, len(vectors))
		for i, v := range vectors {
			subs[i] = v[start:end]
		}
		cb.Centroids[sv] = kMeans(subs, centroidsPerSV, iterations)
	}
	return cb
}

// kMeans is a minimal Lloyd's-algorithm implementation: assign to nearest
// centroid, recompute centroid means, repeat. k is clamped to the sample
// count when there are fewer points than requested clusters.
func kMeans(points []Vector, k, iterations int) []Vector {
	if k > len(points) {
		k = len(points)
	}
	if k == 0 {
		return nil
	}
	dim := len(points[0])

	centroids := make([]Vector, k)
	for i := 0; i < k; i++ {
		centroids[i] = append(Vector(nil), points[i*len(points)/k]...)
	}

	assign := bitset.New(uint(len(points)))
	_ = assign // reserved for future incremental re-assignment; unused today.

	for iter := 0; iter < iterations; iter++ {
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dim)
		}

		for _, p := range points {
			best, bestDist := 0, math.MaxFloat64
			for ci, c := range centroids {
				d := euclideanDistance(p, c)
				if d < bestDist {
					best, bestDist = ci, d
				}
			}
			counts[best]++
			for d := 0; d < dim; d++ {
				sums[best][d] += float64(p[d])
			}
		}

		for ci := range centroids {
			if counts[ci] == 0 {
				continue
			}
			nv := make(Vector, dim)
			for d := 0; d < dim; d++ {
				nv[d] = float32(sums[ci][d] / float64(counts[ci]))
			}
			centroids[ci] = nv
		}
	}
	return centroids
}

// Encode returns the per-subvector nearest-centroid code for v.
func (cb *Codebook) Encode(v Vector) []byte {
	codes := make([]byte, cb.NumSubvectors)
	for sv := 0; sv < cb.NumSubvectors; sv++ {
		start := sv * cb.SubvectorDim
		end := start + cb.SubvectorDim
		if sv == cb.NumSubvectors-1 {
			end = len(v)
		}
		sub := v[start:end]
		best, bestDist := 0, math.MaxFloat64
		for ci, c := range cb.Centroids[sv] {
			d := euclideanDistance(sub, c)
			if d < bestDist {
				best, bestDist = ci, d
			}
		}
		codes[sv] = byte(best)
	}
	return codes
}

// ApproxDistance estimates the Euclidean distance between a query and a
// PQ-encoded vector by summing per-subvector centroid distances -- the
// standard asymmetric distance computation used during graph traversal
// before the final exact rerank (spec.md 4.4: "Distance comparisons during
// graph traversal use PQ codes; final top-k is reranked on the exact
// vectors").
func (cb *Codebook) ApproxDistance(q Vector, codes []byte) float64 {
	var sum float64
	for sv := 0; sv < cb.NumSubvectors; sv++ {
		start := sv * cb.SubvectorDim
		end := start + cb.SubvectorDim
		if sv == cb.NumSubvectors-1 {
			end = len(q)
		}
		centroid := cb.Centroids[sv][codes[sv]]
		d := euclideanDistance(q[start:end], centroid)
		sum += d * d
	}
	return math.Sqrt(sum)
}

// DetectUnitVectors implements spec.md 4.4's unit-vector detection: reports
// true only when every vector's norm is within tol of 1, in which case a
// dot-product segment can use cosine-equivalent PQ comparisons.
func DetectUnitVectors(vectors []Vector, tol float64) bool {
	for _, v := range vectors {
		if math.Abs(Norm(v)-1) > tol {
			return false
		}
	}
	return len(vectors) > 0
}
