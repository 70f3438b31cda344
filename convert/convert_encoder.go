package convert

import (
	"slices"
	"strings"

	"github.com/strata-ml/strata/fs/gguf"
	"github.com/strata-ml/strata/model/models/celeba"
)

type encoderModel struct {
	ModelParameters

	// variational is set while walking the tensors when a log
	// covariance projection is present
	variational bool
}

var _ ModelConverter = (*encoderModel)(nil)

func (m *encoderModel) KV() gguf.KV {
	arch := celeba.EncoderAEArch
	if m.variational {
		arch = celeba.EncoderVAEArch
	}

	return gguf.KV{
		"general.architecture": arch,
		"general.name":         strings.ReplaceAll(arch, "_", "-"),
		"general.file_type":    uint32(1),
		"latent_dim":           m.LatentDim,
		"block_count":          uint32(4),
		"channels":             uint32(3),
		"image_size":           uint32(64),
		"batch_norm_epsilon":   float32(1e-5),
		"paddings":             []int32{1, 1, 2, 2},
	}
}

func (m *encoderModel) Tensors(ts []Tensor) []*gguf.Tensor {
	var out []*gguf.Tensor
	for _, t := range ts {
		if !m.keep(t.Name()) {
			continue
		}

		if t.Name() == "logvar.weight" {
			m.variational = true
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

// keep reports whether name belongs to the encoder. Tensors of other
// parts keep their container prefix after replacement and fall through
// here.
func (m *encoderModel) keep(name string) bool {
	if strings.HasSuffix(name, ".num_batches_tracked") {
		return false
	}

	switch {
	case strings.HasPrefix(name, "blk."):
		return true
	case name == "embd.weight", name == "embd.bias":
		return true
	case name == "logvar.weight", name == "logvar.bias":
		return true
	}

	return false
}

func (m *encoderModel) Replacements() []string {
	return []string{
		"encoder.", "",
		"layers.", "blk.",
		".0.weight", ".conv.weight",
		".0.bias", ".conv.bias",
		".1.weight", ".norm.weight",
		".1.bias", ".norm.bias",
		".1.running_mean", ".norm.mean",
		".1.running_var", ".norm.var",
		"embedding.", "embd.",
		"log_var.", "logvar.",
	}
}
