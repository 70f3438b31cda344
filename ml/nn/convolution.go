package nn

import (
	"github.com/strata-ml/strata/ml"
)

type Conv2D struct {
	Weight ml.Tensor `gguf:"weight"`
	Bias   ml.Tensor `gguf:"bias"`
}

func (m *Conv2D) Forward(ctx ml.Context, t ml.Tensor, s0, s1, p0, p1, d0, d1 int) ml.Tensor {
	t = m.Weight.Conv2D(ctx, t, s0, s1, p0, p1, d0, d1)
	if m.Bias != nil {
		// Bias shape is (out_channels,) while t shape is (batch, out_channels, height, width)
		t = t.Add(ctx, m.Bias.Reshape(ctx, -1, 1, 1))
	}

	return t
}

type ConvTranspose2D struct {
	Weight ml.Tensor `gguf:"weight"`
	Bias   ml.Tensor `gguf:"bias"`
}

func (m *ConvTranspose2D) Forward(ctx ml.Context, t ml.Tensor, s0, s1, p0, p1, op0, op1 int) ml.Tensor {
	t = m.Weight.ConvTranspose2D(ctx, t, s0, s1, p0, p1, op0, op1)
	if m.Bias != nil {
		t = t.Add(ctx, m.Bias.Reshape(ctx, -1, 1, 1))
	}

	return t
}
