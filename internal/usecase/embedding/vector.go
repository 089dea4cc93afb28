package embedding

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// Normalize scales v to unit L2 length in place and returns it.
// A zero vector becomes the first basis vector so cosine distance stays defined.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		if len(v) > 0 {
			v[0] = 1
		}
		return v
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		v[i] = float32(float64(x) / norm)
	}
	return v
}

// Norm returns the L2 length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// seededVector expands a 16-byte digest prefix into dim standard-normal components.
// PCG output is fixed for a given seed, so the vector is stable across runs and Go releases.
func seededVector(digest []byte, dim int) []float64 {
	r := rand.New(rand.NewPCG(binary.BigEndian.Uint64(digest[:8]), binary.BigEndian.Uint64(digest[8:16])))
	v := make([]float64, dim)
	for i := range v {
		v[i] = r.NormFloat64()
	}
	return v
}

func blend(a, b []float64, wa, wb float64) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = float32(wa*a[i] + wb*b[i])
	}
	return out
}
