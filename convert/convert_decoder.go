package convert

import (
	"slices"
	"strings"

	"github.com/strata-ml/strata/fs/gguf"
	"github.com/strata-ml/strata/model/models/celeba"
)

type decoderModel struct {
	ModelParameters
}

var _ ModelConverter = (*decoderModel)(nil)

func (m *decoderModel) KV() gguf.KV {
	return gguf.KV{
		"general.architecture": celeba.DecoderAEArch,
		"general.name":         strings.ReplaceAll(celeba.DecoderAEArch, "_", "-"),
		"general.file_type":    uint32(1),
		"latent_dim":           m.LatentDim,
		"block_count":          uint32(5),
		"channels":             uint32(3),
		"image_size":           uint32(64),
		"batch_norm_epsilon":   float32(1e-5),
		"proj_dims":            []int32{1024, 8, 8},
		"strides":              []int32{2, 2, 2, 1},
		"paddings":             []int32{2, 1, 2, 1},
		"output_paddings":      []int32{0, 0, 1, 0},
	}
}

func (m *decoderModel) Tensors(ts []Tensor) []*gguf.Tensor {
	var out []*gguf.Tensor
	for _, t := range ts {
		if strings.HasSuffix(t.Name(), ".num_batches_tracked") || !strings.HasPrefix(t.Name(), "blk.") {
			continue
		}

		shape := slices.Clone(t.Shape())
		if len(shape) == 2 {
			// torch stores projections (out, in); the runtime wants (in, out)
			t.SetRepacker(transpose)
			shape[0], shape[1] = shape[1], shape[0]
		}

		out = append(out, &gguf.Tensor{
			Name:     t.Name(),
			Kind:     t.Kind(),
			Shape:    shape,
			WriterTo: t,
		})
	}

	return out
}

func (m *decoderModel) Replacements() []string {
	return []string{
		"decoder.", "",
		"layers.0.0.", "blk.0.proj.",
		"layers.", "blk.",
		".0.weight", ".deconv.weight",
		".0.bias", ".deconv.bias",
		".1.weight", ".norm.weight",
		".1.bias", ".norm.bias",
		".1.running_mean", ".norm.mean",
		".1.running_var", ".norm.var",
	}
}
