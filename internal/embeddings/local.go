package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Local is a deterministic, dependency-free embedder: a hashed bag-of-words
// projected into a fixed number of dimensions and L2-normalised. It is not a
// semantic model — it exists so the platform runs (and tests run) without an
// external embedding service. Same text always yields the same vector.
type Local struct {
	dims int
}

// NewLocal creates a Local embedder with the given dimensionality.
func NewLocal(dims int) *Local {
	if dims <= 0 {
		dims = 256
	}
	return &Local{dims: dims}
}

// Embed hashes each lowercased token into a bucket and normalises the
// resulting vector to unit length. Empty text yields a zero vector.
func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, l.dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[int(h.Sum32())%l.dims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}
