package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/strata-ml/strata/ml"
)

// Mulmat multiplies a (m, k) receiver with a (k, n) argument.
func (t *Tensor) Mulmat(_ ml.Context, t2 ml.Tensor) ml.Tensor {
	a := checkShape("mulmat", t, 2)
	b := checkShape("mulmat", t2, 2)

	m, k := a.shape[0], a.shape[1]
	if b.shape[0] != k {
		panic(fmt.Sprintf("cpu: mulmat: inner dimensions %v x %v do not match", a.shape, b.shape))
	}
	n := b.shape[1]

	out := &Tensor{dtype: ml.DTypeF32, shape: []int{m, n}, data: make([]float32, m*n)}

	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a.data},
		blas32.General{Rows: k, Cols: n, Stride: n, Data: b.data},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: out.data})

	return out
}
