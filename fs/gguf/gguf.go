// Package gguf reads and writes model checkpoints in the GGUF container
// format: a typed key-value metadata section followed by aligned tensor data.
package gguf

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	fileMagicLE = 0x46554747
	fileMagicBE = 0x47475546
)

const (
	ggufTypeUint8 uint32 = iota
	ggufTypeInt8
	ggufTypeUint16
	ggufTypeInt16
	ggufTypeUint32
	ggufTypeInt32
	ggufTypeFloat32
	ggufTypeBool
	ggufTypeString
	ggufTypeArray
	ggufTypeUint64
	ggufTypeInt64
	ggufTypeFloat64
)

// File is a decoded GGUF checkpoint: its metadata and tensor descriptors.
// Tensor payloads are not read by Decode; they start at Tensors().Offset
// within the underlying reader.
type File struct {
	ByteOrder binary.ByteOrder
	Version   uint32

	kv      KV
	tensors []*Tensor

	parameters   uint64
	tensorOffset uint64

	// Length is the size of the metadata section in bytes.
	Length int64

	maxArraySize int
	scratch      [16 << 10]byte
}

func (f *File) KV() KV {
	return f.kv
}

func (f *File) Tensors() Tensors {
	return Tensors{
		items:  f.tensors,
		Offset: f.tensorOffset,
	}
}

// Decode reads the metadata section of a GGUF file. maxArraySize limits how
// many elements of a metadata array are retained; negative keeps everything.
func Decode(rs io.ReadSeeker, maxArraySize int) (*File, error) {
	var magic uint32
	if err := binary.Read(rs, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}

	f := File{kv: make(KV), maxArraySize: maxArraySize}
	switch magic {
	case fileMagicLE:
		f.ByteOrder = binary.LittleEndian
	case fileMagicBE:
		f.ByteOrder = binary.BigEndian
	default:
		return nil, errors.New("invalid file magic")
	}

	if err := binary.Read(rs, f.ByteOrder, &f.Version); err != nil {
		return nil, err
	}

	if f.Version < 2 {
		return nil, fmt.Errorf("unsupported version: %d", f.Version)
	}

	var numTensor, numKV uint64
	if err := binary.Read(rs, f.ByteOrder, &numTensor); err != nil {
		return nil, err
	}

	if err := binary.Read(rs, f.ByteOrder, &numKV); err != nil {
		return nil, err
	}

	for range numKV {
		k, err := readGGUFString(&f, rs)
		if err != nil {
			return nil, err
		}

		t, err := readGGUF[uint32](&f, rs)
		if err != nil {
			return nil, err
		}

		var v any
		switch t {
		case ggufTypeUint8:
			v, err = readGGUF[uint8](&f, rs)
		case ggufTypeInt8:
			v, err = readGGUF[int8](&f, rs)
		case ggufTypeUint16:
			v, err = readGGUF[uint16](&f, rs)
		case ggufTypeInt16:
			v, err = readGGUF[int16](&f, rs)
		case ggufTypeUint32:
			v, err = readGGUF[uint32](&f, rs)
		case ggufTypeInt32:
			v, err = readGGUF[int32](&f, rs)
		case ggufTypeUint64:
			v, err = readGGUF[uint64](&f, rs)
		case ggufTypeInt64:
			v, err = readGGUF[int64](&f, rs)
		case ggufTypeFloat32:
			v, err = readGGUF[float32](&f, rs)
		case ggufTypeFloat64:
			v, err = readGGUF[float64](&f, rs)
		case ggufTypeBool:
			v, err = readGGUF[bool](&f, rs)
		case ggufTypeString:
			v, err = readGGUFString(&f, rs)
		case ggufTypeArray:
			v, err = readGGUFArray(&f, rs)
		default:
			return nil, fmt.Errorf("invalid type: %d", t)
		}

		if err != nil {
			return nil, err
		}

		f.kv[k] = v
	}

	for range numTensor {
		name, err := readGGUFString(&f, rs)
		if err != nil {
			return nil, fmt.Errorf("failed to read tensor name: %w", err)
		}

		dims, err := readGGUF[uint32](&f, rs)
		if err != nil {
			return nil, fmt.Errorf("failed to read tensor dimensions: %w", err)
		}

		shape := make([]uint64, dims)
		for i := range shape {
			shape[i], err = readGGUF[uint64](&f, rs)
			if err != nil {
				return nil, fmt.Errorf("failed to read tensor shape: %w", err)
			}
		}

		kind, err := readGGUF[uint32](&f, rs)
		if err != nil {
			return nil, fmt.Errorf("failed to read tensor kind: %w", err)
		}

		offset, err := readGGUF[uint64](&f, rs)
		if err != nil {
			return nil, fmt.Errorf("failed to read tensor offset: %w", err)
		}

		tensor := Tensor{
			Name:   name,
			Kind:   kind,
			Offset: offset,
			Shape:  shape,
		}

		f.tensors = append(f.tensors, &tensor)
		f.parameters += tensor.Elements()
	}

	f.kv["general.parameter_count"] = f.parameters

	alignment := f.kv.Uint("general.alignment", 32)

	offset, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	f.tensorOffset = uint64(offset + ggufPadding(offset, int64(alignment)))
	f.Length = offset

	return &f, nil
}

func readGGUF[T any](f *File, r io.Reader) (T, error) {
	var t T
	err := binary.Read(r, f.ByteOrder, &t)
	return t, err
}

func readGGUFString(f *File, r io.Reader) (string, error) {
	buf := f.scratch[:8]
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	length := int(f.ByteOrder.Uint64(buf))
	if length > len(f.scratch) {
		buf = make([]byte, length)
	} else {
		buf = f.scratch[:length]
	}
	clear(buf)

	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	return string(buf), nil
}

func readGGUFArray(f *File, r io.Reader) (any, error) {
	t, err := readGGUF[uint32](f, r)
	if err != nil {
		return nil, err
	}

	n, err := readGGUF[uint64](f, r)
	if err != nil {
		return nil, err
	}

	switch t {
	case ggufTypeUint8:
		return readGGUFArrayData(f, r, newArray[uint8](int(n), f.maxArraySize))
	case ggufTypeInt8:
		return readGGUFArrayData(f, r, newArray[int8](int(n), f.maxArraySize))
	case ggufTypeUint16:
		return readGGUFArrayData(f, r, newArray[uint16](int(n), f.maxArraySize))
	case ggufTypeInt16:
		return readGGUFArrayData(f, r, newArray[int16](int(n), f.maxArraySize))
	case ggufTypeUint32:
		return readGGUFArrayData(f, r, newArray[uint32](int(n), f.maxArraySize))
	case ggufTypeInt32:
		return readGGUFArrayData(f, r, newArray[int32](int(n), f.maxArraySize))
	case ggufTypeUint64:
		return readGGUFArrayData(f, r, newArray[uint64](int(n), f.maxArraySize))
	case ggufTypeInt64:
		return readGGUFArrayData(f, r, newArray[int64](int(n), f.maxArraySize))
	case ggufTypeFloat32:
		return readGGUFArrayData(f, r, newArray[float32](int(n), f.maxArraySize))
	case ggufTypeFloat64:
		return readGGUFArrayData(f, r, newArray[float64](int(n), f.maxArraySize))
	case ggufTypeBool:
		return readGGUFArrayData(f, r, newArray[bool](int(n), f.maxArraySize))
	case ggufTypeString:
		return readGGUFStringsData(f, r, newArray[string](int(n), f.maxArraySize))
	default:
		return nil, fmt.Errorf("invalid array type: %d", t)
	}
}

func readGGUFArrayData[T any](f *File, r io.Reader, a *array[T]) (any, error) {
	for i := range a.size {
		e, err := readGGUF[T](f, r)
		if err != nil {
			return nil, err
		}

		if a.values != nil {
			a.values[i] = e
		}
	}

	return a, nil
}

func readGGUFStringsData(f *File, r io.Reader, a *array[string]) (any, error) {
	for i := range a.size {
		if a.values != nil {
			e, err := readGGUFString(f, r)
			if err != nil {
				return nil, err
			}

			a.values[i] = e
		} else {
			if err := discardGGUFString(f, r); err != nil {
				return nil, err
			}
		}
	}

	return a, nil
}

func discardGGUFString(f *File, r io.Reader) error {
	buf := f.scratch[:8]
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}

	size := int(f.ByteOrder.Uint64(buf))
	for size > 0 {
		n, err := r.Read(f.scratch[:min(size, cap(f.scratch))])
		if err != nil {
			return err
		}
		size -= n
	}

	return nil
}

// array holds a decoded metadata array. values is nil when the array was
// longer than the decode limit; size is always the on-disk element count.
type array[T any] struct {
	size   int
	values []T
}

func (a *array[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.values)
}

func newArray[T any](size, maxSize int) *array[T] {
	a := array[T]{size: size}
	if maxSize < 0 || size <= maxSize {
		a.values = make([]T, size)
	}

	return &a
}

func ggufPadding(offset, align int64) int64 {
	return (align - offset%align) % align
}
