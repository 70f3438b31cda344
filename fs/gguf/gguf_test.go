package gguf

import (
	"bytes"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteGGUF(t *testing.T) {
	w, err := os.CreateTemp(t.TempDir(), "*.gguf")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	kv := KV{
		"general.architecture": "decoder_ae_celeba",
		"general.name":         "test",
		"latent_dim":           uint32(16),
		"block_count":          uint32(5),
	}

	if err := WriteGGUF(w, kv, []*Tensor{
		{Name: "blk.0.proj.weight", Kind: uint32(TensorTypeF32), Shape: []uint64{16, 32}, WriterTo: bytes.NewBuffer(make([]byte, 16*32*4))},
		{Name: "blk.0.proj.bias", Kind: uint32(TensorTypeF32), Shape: []uint64{32}, WriterTo: bytes.NewBuffer(make([]byte, 32*4))},
		{Name: "blk.1.deconv.weight", Kind: uint32(TensorTypeF32), Shape: []uint64{4, 2, 5, 5}, WriterTo: bytes.NewBuffer(make([]byte, 4*2*5*5*4))},
		{Name: "blk.1.norm.weight", Kind: uint32(TensorTypeF32), Shape: []uint64{2}, WriterTo: bytes.NewBuffer(make([]byte, 2*4))},
		{Name: "output.weight", Kind: uint32(TensorTypeF32), Shape: []uint64{3}, WriterTo: bytes.NewBuffer(make([]byte, 3*4))},
	}); err != nil {
		t.Fatal(err)
	}

	r, err := os.Open(w.Name())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	ff, err := Decode(r, -1)
	if err != nil {
		t.Fatal(err)
	}

	if ff.Version != 3 {
		t.Errorf("expected version 3, got %d", ff.Version)
	}

	if diff := cmp.Diff(KV{
		"general.architecture":          "decoder_ae_celeba",
		"general.name":                  "test",
		"general.parameter_count":       uint64(16*32 + 32 + 4*2*5*5 + 2 + 3),
		"decoder_ae_celeba.latent_dim":  uint32(16),
		"decoder_ae_celeba.block_count": uint32(5),
	}, ff.KV()); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}

	if got := ff.KV().LatentDim(); got != 16 {
		t.Errorf("expected latent_dim 16, got %d", got)
	}

	if got := ff.KV().BlockCount(); got != 5 {
		t.Errorf("expected block_count 5, got %d", got)
	}

	ts := ff.Tensors()
	if ts.Offset%32 != 0 {
		t.Errorf("tensor offset %d is not aligned", ts.Offset)
	}

	names := make([]string, 0, len(ts.Items()))
	for _, tensor := range ts.Items() {
		names = append(names, tensor.Name)
		if tensor.Offset%32 != 0 {
			t.Errorf("%s: offset %d is not aligned", tensor.Name, tensor.Offset)
		}
	}

	// sorted by block then name, unprefixed names last
	if diff := cmp.Diff([]string{
		"blk.0.proj.bias",
		"blk.0.proj.weight",
		"blk.1.deconv.weight",
		"blk.1.norm.weight",
		"output.weight",
	}, names); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}

	if got := ts.Items("blk.0.")[0].Size(); got != 32*4 {
		t.Errorf("expected size %d, got %d", 32*4, got)
	}
}

func TestDecodeInvalidMagic(t *testing.T) {
	rs := bytes.NewReader([]byte("NOTGGUF" + "\x00"))
	if _, err := Decode(rs, -1); err == nil {
		t.Fatal("expected error for invalid magic")
	}
}
