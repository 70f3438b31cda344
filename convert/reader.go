package convert

import (
	"errors"
	"io"
	"io/fs"
	"strings"
)

// Tensor is one weight read from a source checkpoint. WriteTo converts
// the payload to the target encoding, applying the repacker first when
// one is set.
type Tensor interface {
	Name() string
	Shape() []uint64
	Kind() uint32
	SetRepacker(Repacker)
	WriteTo(io.Writer) (int64, error)
}

// Repacker rearranges payload values before they are written, e.g. to
// transpose a projection.
type Repacker func(string, []float32, []uint64) ([]float32, error)

type tensorBase struct {
	name     string
	shape    []uint64
	repacker Repacker
}

func (t tensorBase) Name() string {
	return t.name
}

func (t tensorBase) Shape() []uint64 {
	return t.shape
}

const (
	tensorKindF32 uint32 = iota
	tensorKindF16
)

// Kind picks the target encoding: one dimensional tensors such as
// biases and normalization statistics stay float32, everything else is
// halved.
func (t tensorBase) Kind() uint32 {
	if len(t.shape) == 1 {
		return tensorKindF32
	}

	return tensorKindF16
}

func (t *tensorBase) SetRepacker(fn Repacker) {
	t.repacker = fn
}

// parseTensors reads every tensor under dir, with names rewritten
// through replacer. Safetensors are preferred over torch pickles when
// both are present.
func parseTensors(fsys fs.FS, dir string, replacer *strings.Replacer) ([]Tensor, error) {
	patterns := []struct {
		Pattern string
		Func    func(fs.FS, string, *strings.Replacer, ...string) ([]Tensor, error)
	}{
		{"model-*-of-*.safetensors", parseSafetensors},
		{"model.safetensors", parseSafetensors},
		{"pytorch_model-*-of-*.bin", parseTorch},
		{"pytorch_model.bin", parseTorch},
		{"model.pt", parseTorch},
	}

	for _, pattern := range patterns {
		matches, err := fs.Glob(fsys, pattern.Pattern)
		if err != nil {
			return nil, err
		}

		if len(matches) > 0 {
			return pattern.Func(fsys, dir, replacer, matches...)
		}
	}

	return nil, errors.New("unknown tensor format")
}
