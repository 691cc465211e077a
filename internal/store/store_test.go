package store

import (
	"math"
	"testing"

	"lineparse/internal/textutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestProfile_UnitLength(t *testing.T) {
	p := Profile(map[string]int{"request": 10, "error": 2, "unmatched": 1}, 32)
	require.Len(t, p, 32)
	assert.InDelta(t, 1.0, norm(p), 1e-6)
}

func TestProfile_Deterministic(t *testing.T) {
	hits := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}
	assert.Equal(t, Profile(hits, 16), Profile(hits, 16))
}

func TestProfile_ScaleInvariant(t *testing.T) {
	a := Profile(map[string]int{"pair": 2, "row": 4}, 8)
	b := Profile(map[string]int{"pair": 20, "row": 40}, 8)
	for i := range a {
		assert.InDelta(t, a[i], b[i], 1e-6)
	}
}

func TestProfile_SinglePattern(t *testing.T) {
	p := Profile(map[string]int{"row": 7}, 32)
	for i, v := range p {
		if i == textutil.Bucket("row", 32) {
			assert.InDelta(t, 1.0, v, 1e-6)
		} else {
			assert.Zero(t, v)
		}
	}
}

func TestProfile_Empty(t *testing.T) {
	assert.Equal(t, make([]float32, 4), Profile(nil, 4))
	assert.Len(t, Profile(nil, 0), 1)
}
