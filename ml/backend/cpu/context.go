package cpu

import (
	"fmt"

	"github.com/strata-ml/strata/ml"
)

// Context executes operations eagerly. Forward and Compute exist to satisfy
// ml.Context and are no-ops; every operation produces its result immediately.
type Context struct {
	b *Backend
}

func (c *Context) Empty(dtype ml.DType, shape ...int) ml.Tensor {
	return c.newTensor(dtype, shape)
}

func (c *Context) Zeros(dtype ml.DType, shape ...int) ml.Tensor {
	return c.newTensor(dtype, shape)
}

func (c *Context) FromFloats(s []float32, shape ...int) ml.Tensor {
	t := c.newTensor(ml.DTypeF32, shape)
	t.FromFloats(s)
	return t
}

func (c *Context) Forward(...ml.Tensor) ml.Context {
	return c
}

func (c *Context) Compute(...ml.Tensor) {
}

func (c *Context) Close() {
}

func (c *Context) Input() ml.Context {
	return c
}

func (c *Context) newTensor(dtype ml.DType, shape []int) *Tensor {
	if dtype != ml.DTypeF32 {
		panic(fmt.Sprintf("cpu: unsupported dtype %d", dtype))
	}

	n := 1
	for _, d := range shape {
		if d < 0 {
			panic(fmt.Sprintf("cpu: invalid shape %v", shape))
		}
		n *= d
	}

	return &Tensor{
		dtype: dtype,
		shape: append([]int(nil), shape...),
		data:  make([]float32, n),
	}
}
