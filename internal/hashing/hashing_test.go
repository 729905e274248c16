package hashing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vifei-systems/vifei/internal/hashing"
)

func TestSumIsDeterministic(t *testing.T) {
	a := hashing.Sum([]byte("hello"))
	b := hashing.Sum([]byte("hello"))
	assert.Equal(t, a, b)
}

func TestSumDiffersOnDifferentInput(t *testing.T) {
	a := hashing.Sum([]byte("hello"))
	b := hashing.Sum([]byte("world"))
	assert.NotEqual(t, a, b)
}

func TestHasherMatchesSum(t *testing.T) {
	h := hashing.NewHasher()
	_, err := h.Write([]byte("hello "))
	assert.NoError(t, err)
	_, err = h.Write([]byte("world"))
	assert.NoError(t, err)

	assert.Equal(t, hashing.Sum([]byte("hello world")), h.Sum())
}

func TestFixedPointRoundTrip(t *testing.T) {
	cases := []float64{0, 0.5, 0.82, 1, -0.3}
	for _, c := range cases {
		fp := hashing.FixedPoint(c)
		back := hashing.FromFixedPoint(fp)
		assert.InDelta(t, c, back, 1e-6)
	}
}

func TestFixedPointIsExactForRepresentativeValues(t *testing.T) {
	assert.Equal(t, int64(820000), hashing.FixedPoint(0.82))
	assert.Equal(t, int64(1000000), hashing.FixedPoint(1.0))
	assert.Equal(t, int64(0), hashing.FixedPoint(0.0))
}
