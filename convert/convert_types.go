package convert

import (
	"github.com/strata-ml/strata/fs/gguf"
)

// ModelParameters mirrors the fields of a source model_config.json.
// Name carries the training configuration class, e.g. "AEConfig" or
// "VAEConfig".
type ModelParameters struct {
	Name               string  `json:"name"`
	InputDim           []int32 `json:"input_dim"`
	LatentDim          uint32  `json:"latent_dim"`
	UsesDefaultEncoder bool    `json:"uses_default_encoder"`
	UsesDefaultDecoder bool    `json:"uses_default_decoder"`
}

// ModelConverter maps one part of a source checkpoint to a model.
type ModelConverter interface {
	// KV maps parameters to checkpoint key-values
	KV() gguf.KV
	// Tensors maps input tensors to checkpoint tensors. Part specific
	// modifications can be done here
	Tensors([]Tensor) []*gguf.Tensor
	// Replacements returns a list of string pairs to replace in tensor names.
	// See [strings.Replacer](https://pkg.go.dev/strings#Replacer) for details
	Replacements() []string
}
