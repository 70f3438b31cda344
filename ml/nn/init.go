package nn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// KaimingUniform samples n values from U(-k, k) with k = 1/sqrt(fanIn),
// the torch default initialization for linear and convolution layers.
func KaimingUniform(src rand.Source, fanIn, n int) []float32 {
	bound := 1 / math.Sqrt(float64(fanIn))
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: src}

	vs := make([]float32, n)
	for i := range vs {
		vs[i] = float32(dist.Rand())
	}

	return vs
}
