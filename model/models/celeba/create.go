package celeba

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/exp/rand"

	"github.com/strata-ml/strata/fs/gguf"
	"github.com/strata-ml/strata/ml/nn"
	"github.com/strata-ml/strata/model"
)

// encoderChannels and decoderChannels are the channel progressions of
// the convolution stacks, input first.
var (
	encoderChannels = []int{3, 128, 256, 512, 1024}
	decoderChannels = []int{1024, 512, 256, 128, 3}
)

// Create writes a randomly initialized checkpoint for the named
// architecture. Convolution and projection layers draw from the torch
// default initialization; normalization layers start as the identity.
func Create(path, arch string, latentDim int, seed uint64) error {
	var kv gguf.KV
	var ts []*gguf.Tensor

	switch arch {
	case EncoderAEArch:
		kv, ts = encoderTensors(arch, latentDim, seed, false)
	case EncoderVAEArch:
		kv, ts = encoderTensors(arch, latentDim, seed, true)
	case DecoderAEArch:
		kv, ts = decoderTensors(latentDim, seed)
	default:
		return fmt.Errorf("%w: %q", model.ErrUnsupportedModel, arch)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gguf.WriteGGUF(f, kv, ts)
}

func encoderTensors(arch string, latentDim int, seed uint64, logvar bool) (gguf.KV, []*gguf.Tensor) {
	kv := gguf.KV{
		"general.architecture": arch,
		"general.name":         strings.ReplaceAll(arch, "_", "-"),
		"latent_dim":           uint32(latentDim),
		"block_count":          uint32(len(encoderChannels) - 1),
		"channels":             uint32(encoderChannels[0]),
		"image_size":           uint32(64),
		"batch_norm_epsilon":   float32(1e-5),
		"paddings":             []int32{1, 1, 2, 2},
	}

	src := rand.NewSource(seed)

	var ts []*gguf.Tensor
	for i := 0; i+1 < len(encoderChannels); i++ {
		cin, cout := encoderChannels[i], encoderChannels[i+1]
		fanIn := cin * kernelSize * kernelSize
		prefix := fmt.Sprintf("blk.%d.", i)

		ts = append(ts,
			tensor(prefix+"conv.weight", []uint64{uint64(cout), uint64(cin), kernelSize, kernelSize}, nn.KaimingUniform(src, fanIn, cout*cin*kernelSize*kernelSize)),
			tensor(prefix+"conv.bias", []uint64{uint64(cout)}, nn.KaimingUniform(src, fanIn, cout)),
		)
		ts = append(ts, normTensors(prefix, cout)...)
	}

	// four stride-2 stages bring 64x64 inputs down to 4x4
	features := encoderChannels[len(encoderChannels)-1] * 4 * 4

	ts = append(ts,
		tensor("embd.weight", []uint64{uint64(features), uint64(latentDim)}, nn.KaimingUniform(src, features, features*latentDim)),
		tensor("embd.bias", []uint64{uint64(latentDim)}, nn.KaimingUniform(src, features, latentDim)),
	)

	if logvar {
		ts = append(ts,
			tensor("logvar.weight", []uint64{uint64(features), uint64(latentDim)}, nn.KaimingUniform(src, features, features*latentDim)),
			tensor("logvar.bias", []uint64{uint64(latentDim)}, nn.KaimingUniform(src, features, latentDim)),
		)
	}

	return kv, ts
}

func decoderTensors(latentDim int, seed uint64) (gguf.KV, []*gguf.Tensor) {
	kv := gguf.KV{
		"general.architecture": DecoderAEArch,
		"general.name":         strings.ReplaceAll(DecoderAEArch, "_", "-"),
		"latent_dim":           uint32(latentDim),
		"block_count":          uint32(len(decoderChannels)),
		"channels":             uint32(decoderChannels[len(decoderChannels)-1]),
		"image_size":           uint32(64),
		"batch_norm_epsilon":   float32(1e-5),
		"proj_dims":            []int32{1024, 8, 8},
		"strides":              []int32{2, 2, 2, 1},
		"paddings":             []int32{2, 1, 2, 1},
		"output_paddings":      []int32{0, 0, 1, 0},
	}

	src := rand.NewSource(seed)

	features := decoderChannels[0] * 8 * 8

	ts := []*gguf.Tensor{
		tensor("blk.0.proj.weight", []uint64{uint64(latentDim), uint64(features)}, nn.KaimingUniform(src, latentDim, latentDim*features)),
		tensor("blk.0.proj.bias", []uint64{uint64(features)}, nn.KaimingUniform(src, latentDim, features)),
	}

	for i := 0; i+1 < len(decoderChannels); i++ {
		cin, cout := decoderChannels[i], decoderChannels[i+1]
		fanIn := cout * kernelSize * kernelSize
		prefix := fmt.Sprintf("blk.%d.", i+1)

		ts = append(ts,
			tensor(prefix+"deconv.weight", []uint64{uint64(cin), uint64(cout), kernelSize, kernelSize}, nn.KaimingUniform(src, fanIn, cin*cout*kernelSize*kernelSize)),
			tensor(prefix+"deconv.bias", []uint64{uint64(cout)}, nn.KaimingUniform(src, fanIn, cout)),
		)
		if i+2 < len(decoderChannels) {
			// the last block squashes with sigmoid and has no norm
			ts = append(ts, normTensors(prefix, cout)...)
		}
	}

	return kv, ts
}

// normTensors returns identity batch normalization parameters: unit
// weight and variance, zero bias and mean.
func normTensors(prefix string, channels int) []*gguf.Tensor {
	n := uint64(channels)
	return []*gguf.Tensor{
		tensor(prefix+"norm.weight", []uint64{n}, slices.Repeat([]float32{1}, channels)),
		tensor(prefix+"norm.bias", []uint64{n}, make([]float32, channels)),
		tensor(prefix+"norm.mean", []uint64{n}, make([]float32, channels)),
		tensor(prefix+"norm.var", []uint64{n}, slices.Repeat([]float32{1}, channels)),
	}
}

func tensor(name string, shape []uint64, vs []float32) *gguf.Tensor {
	return &gguf.Tensor{
		Name:     name,
		Kind:     uint32(gguf.TensorTypeF32),
		Shape:    shape,
		WriterTo: floats(vs),
	}
}

// floats writes float32 values little-endian.
type floats []float32

func (f floats) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.LittleEndian, []float32(f)); err != nil {
		return 0, err
	}

	return int64(len(f) * 4), nil
}
