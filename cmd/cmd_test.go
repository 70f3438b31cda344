package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ml/strata/api"
)

func TestShowInfo(t *testing.T) {
	resp := &api.ShowResponse{
		Details: api.ModelDetails{
			Format:            "gguf",
			Family:            "encoder_ae_celeba",
			ParameterSize:     "1.1M",
			QuantizationLevel: "F32",
		},
		ModelInfo: map[string]any{
			"general.architecture":          "encoder_ae_celeba",
			"encoder_ae_celeba.latent_dim":  float64(16),
			"encoder_ae_celeba.image_size":  float64(64),
			"encoder_ae_celeba.channels":    float64(3),
			"encoder_ae_celeba.block_count": float64(4),
		},
	}

	var b strings.Builder
	require.NoError(t, showInfo(resp, false, &b))

	out := b.String()
	for _, want := range []string{
		"architecture", "encoder_ae_celeba",
		"parameters", "1.1M",
		"latent dim", "16",
		"image size", "64",
		"blocks", "4",
		"quantization", "F32",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Metadata")
}

func TestShowInfoVerbose(t *testing.T) {
	resp := &api.ShowResponse{
		Details: api.ModelDetails{Family: "decoder_ae_celeba", QuantizationLevel: "F32"},
		ModelInfo: map[string]any{
			"general.architecture":        "decoder_ae_celeba",
			"decoder_ae_celeba.strides":   []any{float64(2), float64(2), float64(2)},
			"general.file_type":           float64(0),
			"decoder_ae_celeba.some_flag": true,
		},
		Tensors: []api.Tensor{
			{Name: "dec.deconv.0.weight", Type: "F32", Shape: []uint64{512, 256, 4, 4}},
		},
	}

	var b strings.Builder
	require.NoError(t, showInfo(resp, true, &b))

	out := b.String()
	for _, want := range []string{
		"Metadata",
		"decoder_ae_celeba.strides", "[2 2 2]",
		"general.file_type", "0",
		"decoder_ae_celeba.some_flag", "true",
		"Tensors",
		"dec.deconv.0.weight", "[512 256 4 4]",
	} {
		assert.Contains(t, out, want)
	}
}

func TestFormatArrayValue(t *testing.T) {
	short := []any{float64(1), float64(2), float64(3)}
	assert.Equal(t, "[1 2 3]", formatArrayValue(short, 20))

	long := make([]any, 32)
	for i := range long {
		long[i] = float64(i)
	}
	got := formatArrayValue(long, 10)
	assert.True(t, strings.HasPrefix(got, "[0 1 2"), got)
	assert.Contains(t, got, "more]")
}

func TestModelID(t *testing.T) {
	cases := map[string]string{
		"sha256:5f3c8e71c3f2a9b04d1e6a7f8c9d0b1a2c3d4e5f60718293a4b5c6d7e8f9a0b1": "5f3c8e71c3f2",
		"5f3c8e71c3f2a9b0": "5f3c8e71c3f2",
		"abc":              "abc",
		"":                 "",
	}

	for digest, want := range cases {
		assert.Equal(t, want, modelID(digest))
	}
}

func TestReadLatents(t *testing.T) {
	t.Run("raw", func(t *testing.T) {
		got, err := readLatents(strings.NewReader(`[[0.5, -1.25], [2, 3]]`))
		require.NoError(t, err)
		require.Equal(t, [][]float32{{0.5, -1.25}, {2, 3}}, got)
	})

	t.Run("encode output", func(t *testing.T) {
		enc := api.EncodeResponse{
			Model: "faces",
			Embedding: api.TensorData{
				Shape: []int{2, 3},
				Data:  []float32{1, 2, 3, 4, 5, 6},
			},
		}
		data, err := json.Marshal(enc)
		require.NoError(t, err)

		got, err := readLatents(bytes.NewReader(data))
		require.NoError(t, err)
		require.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}}, got)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := readLatents(strings.NewReader(`{"images": []}`))
		require.ErrorContains(t, err, "latents")
	})
}

func TestNewCLI(t *testing.T) {
	cli := NewCLI()

	var names []string
	for _, c := range cli.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "init", "import", "pull", "list", "show", "encode", "reconstruct", "bench"} {
		assert.Contains(t, names, want)
	}

	serve, _, err := cli.Find([]string{"serve"})
	require.NoError(t, err)
	usage := serve.UsageString()
	assert.Contains(t, usage, "Environment Variables:")
	assert.Contains(t, usage, "STRATA_HOST")
	assert.Contains(t, usage, "STRATA_MODELS")
}
