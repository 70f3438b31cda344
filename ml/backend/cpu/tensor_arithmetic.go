package cpu

import (
	"fmt"
	"math"

	"github.com/strata-ml/strata/ml"
)

func (t *Tensor) Add(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.binary(ctx, "add", t2, func(a, b float32) float32 { return a + b })
}

func (t *Tensor) Sub(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.binary(ctx, "sub", t2, func(a, b float32) float32 { return a - b })
}

func (t *Tensor) Mul(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.binary(ctx, "mul", t2, func(a, b float32) float32 { return a * b })
}

func (t *Tensor) Div(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.binary(ctx, "div", t2, func(a, b float32) float32 { return a / b })
}

func (t *Tensor) Scale(_ ml.Context, s float64) ml.Tensor {
	return t.unary(func(v float32) float32 { return float32(float64(v) * s) })
}

func (t *Tensor) Exp(_ ml.Context) ml.Tensor {
	return t.unary(func(v float32) float32 { return float32(math.Exp(float64(v))) })
}

func (t *Tensor) unary(op func(float32) float32) ml.Tensor {
	out := &Tensor{dtype: ml.DTypeF32, shape: t.Shape(), data: make([]float32, len(t.data))}
	for i, v := range t.data {
		out.data[i] = op(v)
	}

	return out
}

func (t *Tensor) binary(_ ml.Context, name string, t2 ml.Tensor, op func(a, b float32) float32) ml.Tensor {
	u := checkShape(name, t2, 0)

	shape := broadcastShape(t.shape, u.shape)
	if shape == nil {
		panic(fmt.Sprintf("cpu: %s: shapes %v and %v do not broadcast", name, t.shape, u.shape))
	}

	sa := broadcastStrides(t.shape, shape)
	sb := broadcastStrides(u.shape, shape)

	n := 1
	for _, d := range shape {
		n *= d
	}

	out := &Tensor{dtype: ml.DTypeF32, shape: shape, data: make([]float32, n)}

	idx := make([]int, len(shape))
	var oa, ob int
	for i := range out.data {
		out.data[i] = op(t.data[oa], u.data[ob])

		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			oa += sa[d]
			ob += sb[d]
			if idx[d] < shape[d] {
				break
			}

			idx[d] = 0
			oa -= sa[d] * shape[d]
			ob -= sb[d] * shape[d]
		}
	}

	return out
}

// broadcastShape aligns shapes at their trailing dimensions. Dimensions must
// match or be 1. Returns nil if the shapes are incompatible.
func broadcastShape(a, b []int) []int {
	n := max(len(a), len(b))
	out := make([]int, n)
	for i := 1; i <= n; i++ {
		da, db := 1, 1
		if i <= len(a) {
			da = a[len(a)-i]
		}
		if i <= len(b) {
			db = b[len(b)-i]
		}

		switch {
		case da == db:
			out[n-i] = da
		case da == 1:
			out[n-i] = db
		case db == 1:
			out[n-i] = da
		default:
			return nil
		}
	}

	return out
}

// broadcastStrides computes element strides for shape aligned to the
// broadcast output, with zero stride on broadcast dimensions.
func broadcastStrides(shape, out []int) []int {
	strides := make([]int, len(out))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		j := len(out) - (len(shape) - i)
		if shape[i] == 1 && out[j] != 1 {
			strides[j] = 0
		} else {
			strides[j] = stride
		}
		stride *= shape[i]
	}

	return strides
}
