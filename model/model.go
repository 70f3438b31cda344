// Package model provides the framework for loading and running
// checkpoint-backed models. Architectures register a constructor under
// their name; New matches a checkpoint to its architecture, builds the
// model and populates its tensors from the backend by reflection.
package model

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/agnivade/levenshtein"

	"github.com/strata-ml/strata/fs"
	"github.com/strata-ml/strata/ml"
	_ "github.com/strata-ml/strata/ml/backend"
)

var ErrUnsupportedModel = errors.New("model architecture not supported")

// Model is implemented by every registered architecture.
type Model interface {
	Backend() ml.Backend
	Config() fs.Config
}

// Encoder maps image batches shaped (batch, channels, height, width)
// to latent codes. levels selects block depths whose intermediate
// activations are captured in the output; see ParseLevels.
type Encoder interface {
	Model

	Encode(ctx ml.Context, imgs ml.Tensor, levels []int) (*Output, error)
}

// Decoder maps latent codes shaped (batch, latent_dim) back to images.
type Decoder interface {
	Model

	Decode(ctx ml.Context, latents ml.Tensor, levels []int) (*Output, error)
}

// Base implements the common fields and methods for all models
type Base struct {
	b      ml.Backend
	config fs.Config
}

// Backend returns the underlying backend that will run the model
func (m *Base) Backend() ml.Backend {
	return m.b
}

// Config returns the checkpoint metadata
func (m *Base) Config() fs.Config {
	return m.config
}

// models maps architecture names to constructors
var models = make(map[string]func(fs.Config) (Model, error))

// Register makes a model constructor available under an architecture
// name. Architectures are expected to call Register in an init
// function.
func Register(name string, f func(fs.Config) (Model, error)) {
	if _, ok := models[name]; ok {
		panic("model: model already registered")
	}

	models[name] = f
}

// New builds the model for the checkpoint at modelPath with its tensor
// fields bound to the backend. Tensor payloads are not read until
// Backend().Load is called.
func New(modelPath string, params ml.BackendParams) (Model, error) {
	b, err := ml.NewBackend(modelPath, params)
	if err != nil {
		return nil, err
	}

	m, err := modelForArch(b.Config())
	if err != nil {
		return nil, err
	}

	base := Base{b: b, config: b.Config()}
	v := reflect.ValueOf(m)
	v.Elem().Set(populateFields(base, v.Elem()))

	return m, nil
}

// modelForArch constructs the registered model for a checkpoint's
// architecture.
func modelForArch(c fs.Config) (Model, error) {
	arch := c.Architecture()
	f, ok := models[arch]
	if !ok {
		if closest := closestArch(arch); closest != "" {
			return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnsupportedModel, arch, closest)
		}

		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, arch)
	}

	return f(c)
}

// closestArch returns the registered architecture nearest to name, or
// "" when nothing is plausibly close.
func closestArch(name string) string {
	var best string
	bestDist := 5
	for arch := range models {
		if d := levenshtein.ComputeDistance(name, arch); d < bestDist {
			best, bestDist = arch, d
		}
	}

	return best
}

// Encode runs an encoder forward pass and computes every output
// tensor.
func Encode(ctx ml.Context, m Encoder, imgs ml.Tensor, levels []int) (*Output, error) {
	out, err := m.Encode(ctx, imgs, levels)
	if err != nil {
		return nil, err
	}

	ts := out.Tensors()
	ctx.Forward(ts...).Compute(ts...)

	return out, nil
}

// Decode runs a decoder forward pass and computes every output tensor.
func Decode(ctx ml.Context, m Decoder, latents ml.Tensor, levels []int) (*Output, error) {
	out, err := m.Decode(ctx, latents, levels)
	if err != nil {
		return nil, err
	}

	ts := out.Tensors()
	ctx.Forward(ts...).Compute(ts...)

	return out, nil
}
