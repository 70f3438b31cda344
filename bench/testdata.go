package bench

import (
	"golang.org/x/exp/rand"
)

// testImages returns count synthetic images in CHW float32 layout. A
// smooth gradient with seeded noise keeps activations in a realistic
// range without touching the filesystem.
func testImages(count, channels, size int, seed uint64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float32, count*channels*size*size)

	i := 0
	for range count * channels {
		for y := range size {
			for x := range size {
				g := (float32(x) + float32(y)) / float32(2*size)
				data[i] = clamp01(g + float32(rng.Float64()-0.5)*0.1)
				i++
			}
		}
	}

	return data
}

// testLatents returns count standard normal latent vectors of the
// given dimension.
func testLatents(count, dim int, seed uint64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float32, count*dim)
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}

	return data
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
