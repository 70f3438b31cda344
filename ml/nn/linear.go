package nn

import (
	"github.com/strata-ml/strata/ml"
)

// Linear is a fully connected layer. Weight is stored as
// (in_features, out_features) so the forward pass is a plain
// row-major matrix product.
type Linear struct {
	Weight ml.Tensor `gguf:"weight"`
	Bias   ml.Tensor `gguf:"bias"`
}

func (m *Linear) Forward(ctx ml.Context, t ml.Tensor) ml.Tensor {
	t = t.Mulmat(ctx, m.Weight)
	if m.Bias != nil {
		t = t.Add(ctx, m.Bias)
	}

	return t
}
