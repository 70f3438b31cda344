package model

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/strata-ml/strata/ml"
)

// Reparameterize draws z ~ N(mean, exp(logvar)) elementwise using the
// reparameterization trick: z = mean + exp(logvar/2) * eps with
// eps ~ N(0, 1).
func Reparameterize(ctx ml.Context, mean, logvar ml.Tensor, src rand.Source) ml.Tensor {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	n := 1
	for _, dim := range mean.Shape() {
		n *= dim
	}

	eps := make([]float32, n)
	for i := range eps {
		eps[i] = float32(dist.Rand())
	}

	noise := ctx.Input().FromFloats(eps, mean.Shape()...)
	std := logvar.Scale(ctx, 0.5).Exp(ctx)

	return mean.Add(ctx, std.Mul(ctx, noise))
}
