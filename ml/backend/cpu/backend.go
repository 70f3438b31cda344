// Package cpu is a pure Go backend executing tensor operations eagerly on
// the host. Checkpoints are loaded into float32 regardless of their on-disk
// encoding.
package cpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/x448/float16"
	"golang.org/x/sync/errgroup"

	"github.com/strata-ml/strata/fs"
	"github.com/strata-ml/strata/fs/gguf"
	"github.com/strata-ml/strata/ml"
)

func init() {
	ml.RegisterBackend("cpu", New)
}

type Backend struct {
	modelPath string
	meta      *gguf.File

	tensors map[string]*Tensor
	threads int
}

func New(modelPath string, params ml.BackendParams) (ml.Backend, error) {
	f, err := os.Open(modelPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta, err := gguf.Decode(f, -1)
	if err != nil {
		return nil, err
	}

	threads := params.NumThreads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	b := Backend{
		modelPath: modelPath,
		meta:      meta,
		tensors:   make(map[string]*Tensor, len(meta.Tensors().Items())),
		threads:   threads,
	}

	for _, t := range meta.Tensors().Items() {
		switch gguf.TensorType(t.Kind) {
		case gguf.TensorTypeF32, gguf.TensorTypeF16:
		default:
			return nil, fmt.Errorf("%s: unsupported tensor type %s", t.Name, t.Type())
		}

		shape := make([]int, len(t.Shape))
		for i, n := range t.Shape {
			shape[i] = int(n)
		}

		b.tensors[t.Name] = &Tensor{dtype: ml.DTypeF32, shape: shape}
	}

	return &b, nil
}

// Load reads all tensor payloads. Tensors are read concurrently, each
// through its own section of the file.
func (b *Backend) Load(ctx context.Context, progress func(float32)) error {
	f, err := os.Open(b.modelPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var total uint64
	for _, t := range b.meta.Tensors().Items() {
		total += t.Size()
	}

	var done atomic.Uint64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.threads)
	for _, t := range b.meta.Tensors().Items() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			sr := io.NewSectionReader(f, int64(b.meta.Tensors().Offset+t.Offset), int64(t.Size()))
			buf := make([]byte, t.Size())
			if _, err := io.ReadFull(sr, buf); err != nil {
				return fmt.Errorf("%s: %w", t.Name, err)
			}

			data := make([]float32, t.Elements())
			switch gguf.TensorType(t.Kind) {
			case gguf.TensorTypeF32:
				for i := range data {
					data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
				}
			case gguf.TensorTypeF16:
				for i := range data {
					data[i] = float16.Frombits(binary.LittleEndian.Uint16(buf[i*2:])).Float32()
				}
			}

			b.tensors[t.Name].data = data

			if progress != nil {
				progress(float32(done.Add(t.Size())) / float32(total))
			}

			return nil
		})
	}

	return g.Wait()
}

func (b *Backend) Close() {
	for _, t := range b.tensors {
		t.data = nil
	}
}

func (b *Backend) Config() fs.Config {
	return b.meta.KV()
}

func (b *Backend) Get(name string) ml.Tensor {
	if t, ok := b.tensors[name]; ok {
		return t
	}

	return nil
}

func (b *Backend) NewContext() ml.Context {
	return &Context{b: b}
}
