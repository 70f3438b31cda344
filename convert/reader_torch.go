package convert

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
	"github.com/x448/float16"
)

type torch struct {
	storage pytorch.StorageInterface
	*tensorBase
}

func parseTorch(_ fs.FS, dir string, replacer *strings.Replacer, ps ...string) ([]Tensor, error) {
	var ts []Tensor
	for _, p := range ps {
		pt, err := pytorch.Load(filepath.Join(dir, p))
		if err != nil {
			return nil, err
		}

		sd, err := stateDict(pt)
		if err != nil {
			return nil, err
		}

		for name, t := range sd {
			shape := make([]uint64, len(t.Size))
			for i, n := range t.Size {
				shape[i] = uint64(n)
			}

			ts = append(ts, torch{
				storage: t.Source,
				tensorBase: &tensorBase{
					name:  replacer.Replace(name),
					shape: shape,
				},
			})
		}
	}

	return ts, nil
}

// stateDict normalizes the unpickled root object. torch saves state
// dicts as collections.OrderedDict but plain dicts appear in older
// exports.
func stateDict(v any) (map[string]*pytorch.Tensor, error) {
	sd := make(map[string]*pytorch.Tensor)

	add := func(k, e any) error {
		name, ok := k.(string)
		if !ok {
			return fmt.Errorf("unexpected state dict key type %T", k)
		}

		if t, ok := e.(*pytorch.Tensor); ok {
			sd[name] = t
		}

		return nil
	}

	switch d := v.(type) {
	case *types.OrderedDict:
		for k, e := range d.Map {
			if err := add(k, e.Value); err != nil {
				return nil, err
			}
		}
	case *types.Dict:
		for _, e := range *d {
			if err := add(e.Key, e.Value); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unexpected state dict type %T", v)
	}

	return sd, nil
}

func (pt torch) WriteTo(w io.Writer) (int64, error) {
	var f32s []float32
	switch s := pt.storage.(type) {
	case *pytorch.FloatStorage:
		f32s = s.Data
	case *pytorch.HalfStorage:
		f32s = s.Data
	case *pytorch.DoubleStorage:
		f32s = make([]float32, 0, len(s.Data))
		for _, f64 := range s.Data {
			f32s = append(f32s, float32(f64))
		}
	default:
		return 0, fmt.Errorf("unknown data type: %T", s)
	}

	if pt.repacker != nil {
		var err error
		f32s, err = pt.repacker(pt.Name(), f32s, pt.Shape())
		if err != nil {
			return 0, err
		}
	}

	switch pt.Kind() {
	case tensorKindF32:
		return 0, binary.Write(w, binary.LittleEndian, f32s)
	case tensorKindF16:
		f16s := make([]uint16, len(f32s))
		for i := range f32s {
			f16s[i] = float16.Fromfloat32(f32s[i]).Bits()
		}

		return 0, binary.Write(w, binary.LittleEndian, f16s)
	default:
		return 0, fmt.Errorf("unknown storage type: %d", pt.Kind())
	}
}
