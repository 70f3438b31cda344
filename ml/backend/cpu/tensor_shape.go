package cpu

import (
	"fmt"

	"github.com/strata-ml/strata/ml"
)

// Reshape returns a tensor with the given shape sharing the receiver's
// data. One dimension may be -1 and is inferred from the element count.
func (t *Tensor) Reshape(_ ml.Context, shape ...int) ml.Tensor {
	out := make([]int, len(shape))
	infer := -1
	n := 1
	for i, d := range shape {
		switch {
		case d == -1:
			if infer != -1 {
				panic(fmt.Sprintf("cpu: reshape: multiple inferred dimensions in %v", shape))
			}
			infer = i
		case d <= 0:
			panic(fmt.Sprintf("cpu: reshape: invalid shape %v", shape))
		default:
			n *= d
		}
		out[i] = d
	}

	if infer != -1 {
		if t.Elements()%n != 0 {
			panic(fmt.Sprintf("cpu: reshape: cannot infer dimension for %v from %v", shape, t.shape))
		}
		out[infer] = t.Elements() / n
		n *= out[infer]
	}

	if n != t.Elements() {
		panic(fmt.Sprintf("cpu: reshape: %v does not hold %d elements", shape, t.Elements()))
	}

	return t.view(out...)
}
