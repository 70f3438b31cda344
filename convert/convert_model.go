// Package convert imports trained checkpoints into the native format.
// A source directory holds a model_config.json plus weights saved as
// safetensors or torch pickles; the encoder and decoder parts are
// converted separately since each loads as its own model.
package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/pdevine/tensor"
	"github.com/pdevine/tensor/native"

	"github.com/strata-ml/strata/fs/gguf"
)

// LoadModelParameters reads and validates the model configuration in
// dir. The architectures only come in one size, so input dimensions
// other than 3x64x64 are rejected here rather than at load time.
func LoadModelParameters(dir string) (ModelParameters, error) {
	var p ModelParameters

	bts, err := fs.ReadFile(os.DirFS(dir), "model_config.json")
	if err != nil {
		return p, err
	}

	if err := json.Unmarshal(bts, &p); err != nil {
		return p, err
	}

	if p.Name == "" {
		return p, errors.New("unknown model type")
	}

	if p.LatentDim == 0 {
		return p, errors.New("latent dimension not set")
	}

	if len(p.InputDim) > 0 && !slices.Equal(p.InputDim, []int32{3, 64, 64}) {
		return p, fmt.Errorf("unsupported input dimensions %v", p.InputDim)
	}

	return p, nil
}

// ConvertEncoder converts the encoder part of the source model in dir,
// writing the checkpoint to f.
// Supported input formats: safetensors (preferred) and torch pickles.
func ConvertEncoder(dir string, f *os.File) error {
	p, err := LoadModelParameters(dir)
	if err != nil {
		return err
	}

	return convertPart(dir, f, &encoderModel{ModelParameters: p})
}

// ConvertDecoder converts the decoder part of the source model in dir,
// writing the checkpoint to f.
func ConvertDecoder(dir string, f *os.File) error {
	p, err := LoadModelParameters(dir)
	if err != nil {
		return err
	}

	return convertPart(dir, f, &decoderModel{ModelParameters: p})
}

func convertPart(dir string, f *os.File, conv ModelConverter) error {
	ts, err := parseTensors(os.DirFS(dir), dir, strings.NewReplacer(conv.Replacements()...))
	if err != nil {
		return err
	}

	// Tensors also inspects the names, e.g. to detect a variational
	// encoder, so it must run before KV.
	out := conv.Tensors(ts)
	if len(out) == 0 {
		return errors.New("no tensors matched the requested model part")
	}

	return gguf.WriteGGUF(f, conv.KV(), out)
}

// transpose reorders a two dimensional payload from (rows, cols) to
// (cols, rows).
func transpose(_ string, data []float32, shape []uint64) ([]float32, error) {
	var dims []int
	for _, dim := range shape {
		dims = append(dims, int(dim))
	}

	n := tensor.New(tensor.WithShape(dims...), tensor.WithBacking(data))
	if err := n.T(); err != nil {
		return nil, err
	}

	if err := n.Transpose(); err != nil {
		return nil, err
	}

	ts, err := native.SelectF32(n, 1)
	if err != nil {
		return nil, err
	}

	f32s := make([]float32, 0, len(data))
	for _, t := range ts {
		f32s = append(f32s, t...)
	}

	return f32s, nil
}
