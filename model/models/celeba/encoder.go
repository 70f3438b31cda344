// Package celeba implements the fixed convolutional encoder and decoder
// architectures for 64x64 RGB images from the CelebA benchmarks. Encoders
// downsample through four strided convolution blocks and project the
// flattened features into the latent space; the variational encoder adds a
// second projection for the log covariance. The decoder projects a latent
// vector back to a feature map and upsamples through four transposed
// convolution blocks.
package celeba

import (
	"github.com/strata-ml/strata/fs"
	"github.com/strata-ml/strata/ml"
	"github.com/strata-ml/strata/ml/nn"
	"github.com/strata-ml/strata/model"
)

// Architecture names as stored in checkpoint metadata.
const (
	EncoderAEArch  = "encoder_ae_celeba"
	EncoderVAEArch = "encoder_vae_celeba"
	DecoderAEArch  = "decoder_ae_celeba"
)

// kernelSize and encoderStride are fixed across every block of the
// family.
const (
	kernelSize    = 5
	encoderStride = 2
)

type EncoderOptions struct {
	eps      float32
	paddings []int32
}

func newEncoderOptions(c fs.Config) *EncoderOptions {
	return &EncoderOptions{
		eps:      c.Float("batch_norm_epsilon", 1e-5),
		paddings: c.Ints("paddings", []int32{1, 1, 2, 2}),
	}
}

// EncoderBlock is one downsampling stage: a strided convolution followed
// by batch normalization and ReLU.
type EncoderBlock struct {
	Conv *nn.Conv2D      `gguf:"conv"`
	Norm *nn.BatchNorm2D `gguf:"norm"`
}

func (b *EncoderBlock) Forward(ctx ml.Context, t ml.Tensor, padding int, eps float32) ml.Tensor {
	t = b.Conv.Forward(ctx, t, encoderStride, encoderStride, padding, padding, 1, 1)
	t = b.Norm.Forward(ctx, t, eps)
	return t.RELU(ctx)
}

// encodeBlocks feeds imgs through the convolution stack, recording
// requested intermediate activations, and returns the final activation
// flattened to (batch, features).
func encodeBlocks(ctx ml.Context, blocks []EncoderBlock, o *EncoderOptions, imgs ml.Tensor, captures *model.Levels, out *model.Output) ml.Tensor {
	t := imgs
	for i := range blocks {
		t = blocks[i].Forward(ctx, t, int(o.paddings[i]), o.eps)
		if captures.Contains(i + 1) {
			out.Set(model.LayerKey(model.KeyEmbedding, i+1), t)
		}
	}

	return t.Reshape(ctx, t.Dim(0), -1)
}

type EncoderAE struct {
	model.Base

	Blocks    []EncoderBlock `gguf:"blk"`
	Embedding *nn.Linear     `gguf:"embd"`

	*EncoderOptions
}

func newEncoderAE(c fs.Config) (model.Model, error) {
	return &EncoderAE{
		Blocks:         make([]EncoderBlock, c.Uint("block_count", 4)),
		EncoderOptions: newEncoderOptions(c),
	}, nil
}

func (m *EncoderAE) Encode(ctx ml.Context, imgs ml.Tensor, levels []int) (*model.Output, error) {
	captures, err := model.ParseLevels(levels, len(m.Blocks))
	if err != nil {
		return nil, err
	}

	out := model.NewOutput()
	flat := encodeBlocks(ctx, m.Blocks, m.EncoderOptions, imgs, captures, out)
	out.Set(model.KeyEmbedding, m.Embedding.Forward(ctx, flat))

	return out, nil
}

// EncoderVAE is EncoderAE with a second projection estimating the log of
// the diagonal covariance of the latent posterior.
type EncoderVAE struct {
	model.Base

	Blocks    []EncoderBlock `gguf:"blk"`
	Embedding *nn.Linear     `gguf:"embd"`
	LogVar    *nn.Linear     `gguf:"logvar"`

	*EncoderOptions
}

func newEncoderVAE(c fs.Config) (model.Model, error) {
	return &EncoderVAE{
		Blocks:         make([]EncoderBlock, c.Uint("block_count", 4)),
		EncoderOptions: newEncoderOptions(c),
	}, nil
}

func (m *EncoderVAE) Encode(ctx ml.Context, imgs ml.Tensor, levels []int) (*model.Output, error) {
	captures, err := model.ParseLevels(levels, len(m.Blocks))
	if err != nil {
		return nil, err
	}

	out := model.NewOutput()
	flat := encodeBlocks(ctx, m.Blocks, m.EncoderOptions, imgs, captures, out)
	out.Set(model.KeyEmbedding, m.Embedding.Forward(ctx, flat))
	out.Set(model.KeyLogCovariance, m.LogVar.Forward(ctx, flat))

	return out, nil
}

func init() {
	model.Register(EncoderAEArch, newEncoderAE)
	model.Register(EncoderVAEArch, newEncoderVAE)
}
