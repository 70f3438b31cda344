package gguf

import (
	"fmt"
	"io"
	"strings"
)

type Tensors struct {
	items []*Tensor

	// Offset is the position of the first tensor payload in the file.
	Offset uint64
}

func (ts Tensors) Items(prefix ...string) []*Tensor {
	if len(prefix) == 0 {
		return ts.items
	}

	var items []*Tensor
	for _, t := range ts.items {
		if strings.HasPrefix(t.Name, prefix[0]) {
			items = append(items, t)
		}
	}

	return items
}

// Tensor describes one tensor in a checkpoint. When writing, WriterTo
// supplies the payload bytes.
type Tensor struct {
	Name   string `json:"name"`
	Kind   uint32 `json:"kind"`
	Offset uint64 `json:"-"`

	// Shape is the number of elements in each dimension
	Shape []uint64 `json:"shape"`

	io.WriterTo `json:"-"`
}

func (t Tensor) Elements() uint64 {
	var count uint64 = 1
	for _, n := range t.Shape {
		count *= n
	}

	return count
}

func (t Tensor) Size() uint64 {
	return t.Elements() * TensorType(t.Kind).TypeSize()
}

func (t Tensor) Type() string {
	return TensorType(t.Kind).String()
}

// TensorType is the element encoding of a tensor payload. The numeric
// values are fixed by the GGUF container format; quantized encodings in the
// gap are not supported here.
type TensorType uint32

const (
	TensorTypeF32  TensorType = 0
	TensorTypeF16  TensorType = 1
	TensorTypeI8   TensorType = 24
	TensorTypeI16  TensorType = 25
	TensorTypeI32  TensorType = 26
	TensorTypeI64  TensorType = 27
	TensorTypeF64  TensorType = 28
	TensorTypeBF16 TensorType = 30
)

func (t TensorType) TypeSize() uint64 {
	switch t {
	case TensorTypeF32:
		return 4
	case TensorTypeF16:
		return 2
	case TensorTypeI8:
		return 1
	case TensorTypeI16:
		return 2
	case TensorTypeI32:
		return 4
	case TensorTypeI64:
		return 8
	case TensorTypeF64:
		return 8
	case TensorTypeBF16:
		return 2
	default:
		return 0
	}
}

func (t TensorType) String() string {
	switch t {
	case TensorTypeF32:
		return "F32"
	case TensorTypeF16:
		return "F16"
	case TensorTypeI8:
		return "I8"
	case TensorTypeI16:
		return "I16"
	case TensorTypeI32:
		return "I32"
	case TensorTypeI64:
		return "I64"
	case TensorTypeF64:
		return "F64"
	case TensorTypeBF16:
		return "BF16"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}
