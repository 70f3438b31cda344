package celeba

import (
	"github.com/strata-ml/strata/fs"
	"github.com/strata-ml/strata/ml"
	"github.com/strata-ml/strata/ml/nn"
	"github.com/strata-ml/strata/model"
)

type DecoderOptions struct {
	eps      float32
	projDims []int32

	// geometry of deconv blocks 1..n, indexed by block-1
	strides, paddings, outputPaddings []int32
}

func newDecoderOptions(c fs.Config) *DecoderOptions {
	return &DecoderOptions{
		eps:            c.Float("batch_norm_epsilon", 1e-5),
		projDims:       c.Ints("proj_dims", []int32{1024, 8, 8}),
		strides:        c.Ints("strides", []int32{2, 2, 2, 1}),
		paddings:       c.Ints("paddings", []int32{2, 1, 2, 1}),
		outputPaddings: c.Ints("output_paddings", []int32{0, 0, 1, 0}),
	}
}

// DecoderBlock is one upsampling stage. The first block holds only the
// latent projection; middle blocks a transposed convolution with batch
// normalization and ReLU; the last block a transposed convolution
// squashed with sigmoid.
type DecoderBlock struct {
	Proj   *nn.Linear          `gguf:"proj"`
	Deconv *nn.ConvTranspose2D `gguf:"deconv"`
	Norm   *nn.BatchNorm2D     `gguf:"norm"`
}

// Forward dispatches on the layers present in this block.
func (b *DecoderBlock) Forward(ctx ml.Context, t ml.Tensor, o *DecoderOptions, i int) ml.Tensor {
	if b.Proj != nil {
		return b.Proj.Forward(ctx, t)
	}

	s, p, op := int(o.strides[i-1]), int(o.paddings[i-1]), int(o.outputPaddings[i-1])
	t = b.Deconv.Forward(ctx, t, s, s, p, p, op, op)
	if b.Norm != nil {
		t = b.Norm.Forward(ctx, t, o.eps)
		return t.RELU(ctx)
	}

	return t.Sigmoid(ctx)
}

type DecoderAE struct {
	model.Base

	Blocks []DecoderBlock `gguf:"blk"`

	*DecoderOptions
}

func newDecoderAE(c fs.Config) (model.Model, error) {
	return &DecoderAE{
		Blocks:         make([]DecoderBlock, c.Uint("block_count", 5)),
		DecoderOptions: newDecoderOptions(c),
	}, nil
}

func (m *DecoderAE) Decode(ctx ml.Context, latents ml.Tensor, levels []int) (*model.Output, error) {
	captures, err := model.ParseLevels(levels, len(m.Blocks))
	if err != nil {
		return nil, err
	}

	out := model.NewOutput()

	t := latents
	for i := range m.Blocks {
		t = m.Blocks[i].Forward(ctx, t, m.DecoderOptions, i)
		if captures.Contains(i + 1) {
			out.Set(model.LayerKey(model.KeyReconstruction, i+1), t)
		}
		if i == 0 {
			// the flat projection becomes a feature map; a depth-1
			// capture sees the flat tensor
			t = t.Reshape(ctx, t.Dim(0), int(m.projDims[0]), int(m.projDims[1]), int(m.projDims[2]))
		}
	}

	out.Set(model.KeyReconstruction, t)

	return out, nil
}

func init() {
	model.Register(DecoderAEArch, newDecoderAE)
}
