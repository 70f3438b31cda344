package cpu

import (
	"fmt"
	"unsafe"

	"github.com/strata-ml/strata/ml"
)

// Tensor is a dense row-major float32 array.
type Tensor struct {
	dtype ml.DType
	shape []int
	data  []float32
}

func (t *Tensor) Dim(n int) int {
	return t.shape[n]
}

func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

func (t *Tensor) DType() ml.DType {
	return t.dtype
}

func (t *Tensor) Elements() int {
	n := 1
	for _, d := range t.shape {
		n *= d
	}

	return n
}

func (t *Tensor) Bytes() []byte {
	if t.data == nil {
		return nil
	}

	if len(t.data) == 0 {
		return []byte{}
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(&t.data[0])), len(t.data)*4)
}

func (t *Tensor) Floats() []float32 {
	return append([]float32(nil), t.data...)
}

func (t *Tensor) FromFloats(s []float32) {
	if len(s) != t.Elements() {
		panic(fmt.Sprintf("cpu: expected %d elements, got %d", t.Elements(), len(s)))
	}

	copy(t.data, s)
}

// view returns a tensor sharing the receiver's data with a new shape.
func (t *Tensor) view(shape ...int) *Tensor {
	return &Tensor{dtype: t.dtype, shape: shape, data: t.data}
}

func checkShape(name string, t ml.Tensor, dims int) *Tensor {
	c, ok := t.(*Tensor)
	if !ok {
		panic(fmt.Sprintf("cpu: %s: foreign tensor %T", name, t))
	}

	if dims > 0 && len(c.shape) != dims {
		panic(fmt.Sprintf("cpu: %s: expected %d dimensions, got shape %v", name, dims, c.shape))
	}

	return c
}
