package nn

import (
	"github.com/strata-ml/strata/ml"
)

// BatchNorm2D normalizes each channel with the running statistics
// recorded at training time. Mean and Variance are buffers rather than
// learned parameters but are stored in the checkpoint like any other
// tensor.
type BatchNorm2D struct {
	Weight   ml.Tensor `gguf:"weight"`
	Bias     ml.Tensor `gguf:"bias"`
	Mean     ml.Tensor `gguf:"mean"`
	Variance ml.Tensor `gguf:"var"`
}

func (m *BatchNorm2D) Forward(ctx ml.Context, t ml.Tensor, eps float32) ml.Tensor {
	return t.BatchNorm2D(ctx, m.Weight, m.Bias, m.Mean, m.Variance, eps)
}
