package gguf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// KV is one metadata entry. Supported values: string, []string, bool,
// uint32, int32, uint64, int64, float32, float64.
type KV struct {
	Key   string
	Value interface{}
}

// Tensor is a tensor to be written. Values are stored row-major; Dimensions
// use the GGML order ([cols, rows]).
type Tensor struct {
	Name       string
	Dimensions []uint64
	Type       GGMLType
	Values     []float32
}

// Writer emits GGUF v3 images.
type Writer struct {
	KV        []KV
	Tensors   []Tensor
	Alignment uint64
}

func (w *Writer) AddKV(key string, value interface{}) {
	w.KV = append(w.KV, KV{Key: key, Value: value})
}

// AddMatrix adds a rows x cols F32 tensor.
func (w *Writer) AddMatrix(name string, rows, cols int, values []float32) {
	w.Tensors = append(w.Tensors, Tensor{
		Name:       name,
		Dimensions: []uint64{uint64(cols), uint64(rows)},
		Type:       GGMLTypeF32,
		Values:     values,
	})
}

// AddVector adds a 1-D F32 tensor.
func (w *Writer) AddVector(name string, values []float32) {
	w.Tensors = append(w.Tensors, Tensor{
		Name:       name,
		Dimensions: []uint64{uint64(len(values))},
		Type:       GGMLTypeF32,
		Values:     values,
	})
}

func (w *Writer) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := w.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteTo serializes the image.
func (w *Writer) WriteTo(out io.Writer) error {
	alignment := w.Alignment
	if alignment == 0 {
		alignment = DefaultAlignment
	}

	for _, t := range w.Tensors {
		var n uint64 = 1
		for _, d := range t.Dimensions {
			n *= d
		}
		if uint64(len(t.Values)) != n {
			return fmt.Errorf("tensor %s: %d values for dims %v", t.Name, len(t.Values), t.Dimensions)
		}
		if t.Type != GGMLTypeF32 && t.Type != GGMLTypeF16 {
			return ErrUnsupportedType{Tensor: t.Name, Type: t.Type}
		}
	}

	bw := bufio.NewWriter(out)
	cw := &countingWriter{w: bw}
	le := binary.LittleEndian

	put := func(v interface{}) {
		if cw.err == nil {
			cw.err = binary.Write(cw, le, v)
		}
	}
	putString := func(s string) {
		put(uint64(len(s)))
		if cw.err == nil {
			_, cw.err = io.WriteString(cw, s)
		}
	}

	put(uint32(GGUFMagic))
	put(uint32(GGUFVersion))
	put(uint64(len(w.Tensors)))
	put(uint64(len(w.KV)))

	for _, kv := range w.KV {
		putString(kv.Key)
		switch v := kv.Value.(type) {
		case string:
			put(uint32(GGUFMetadataValueTypeString))
			putString(v)
		case []string:
			put(uint32(GGUFMetadataValueTypeArray))
			put(uint32(GGUFMetadataValueTypeString))
			put(uint64(len(v)))
			for _, s := range v {
				putString(s)
			}
		case bool:
			put(uint32(GGUFMetadataValueTypeBool))
			if v {
				put(uint8(1))
			} else {
				put(uint8(0))
			}
		case uint32:
			put(uint32(GGUFMetadataValueTypeUint32))
			put(v)
		case int32:
			put(uint32(GGUFMetadataValueTypeInt32))
			put(v)
		case uint64:
			put(uint32(GGUFMetadataValueTypeUint64))
			put(v)
		case int64:
			put(uint32(GGUFMetadataValueTypeInt64))
			put(v)
		case float32:
			put(uint32(GGUFMetadataValueTypeFloat32))
			put(v)
		case float64:
			put(uint32(GGUFMetadataValueTypeFloat64))
			put(v)
		default:
			return fmt.Errorf("kv %s: unsupported value type %T", kv.Key, kv.Value)
		}
	}

	var dataOff uint64
	offsets := make([]uint64, len(w.Tensors))
	for i, t := range w.Tensors {
		offsets[i] = dataOff
		size := tensorBytes(t)
		dataOff += size
		if pad := dataOff % alignment; pad != 0 {
			dataOff += alignment - pad
		}
	}

	for i, t := range w.Tensors {
		putString(t.Name)
		put(uint32(len(t.Dimensions)))
		for _, d := range t.Dimensions {
			put(d)
		}
		put(uint32(t.Type))
		put(offsets[i])
	}

	padTo := func() {
		if pad := cw.n % alignment; pad != 0 && cw.err == nil {
			_, cw.err = cw.Write(make([]byte, alignment-pad))
		}
	}
	padTo()

	for _, t := range w.Tensors {
		switch t.Type {
		case GGMLTypeF32:
			for _, v := range t.Values {
				put(math.Float32bits(v))
			}
		case GGMLTypeF16:
			for _, v := range t.Values {
				put(Fp32ToFp16(v))
			}
		}
		padTo()
	}

	if cw.err != nil {
		return cw.err
	}
	return bw.Flush()
}

func tensorBytes(t Tensor) uint64 {
	if t.Type == GGMLTypeF16 {
		return uint64(len(t.Values)) * 2
	}
	return uint64(len(t.Values)) * 4
}

type countingWriter struct {
	w   io.Writer
	n   uint64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}
