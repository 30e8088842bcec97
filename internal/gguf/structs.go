package gguf

import "fmt"

const (
	GGUFMagic   = 0x46554747 // "GGUF"
	GGUFVersion = 3

	DefaultAlignment = 32
)

type GGMLType uint32

// Only unquantized tensors are used by recurrent checkpoints.
const (
	GGMLTypeF32 GGMLType = 0
	GGMLTypeF16 GGMLType = 1
)

type GGUFMetadataValueType uint32

const (
	GGUFMetadataValueTypeUint8   GGUFMetadataValueType = 0
	GGUFMetadataValueTypeInt8    GGUFMetadataValueType = 1
	GGUFMetadataValueTypeUint16  GGUFMetadataValueType = 2
	GGUFMetadataValueTypeInt16   GGUFMetadataValueType = 3
	GGUFMetadataValueTypeUint32  GGUFMetadataValueType = 4
	GGUFMetadataValueTypeInt32   GGUFMetadataValueType = 5
	GGUFMetadataValueTypeFloat32 GGUFMetadataValueType = 6
	GGUFMetadataValueTypeBool    GGUFMetadataValueType = 7
	GGUFMetadataValueTypeString  GGUFMetadataValueType = 8
	GGUFMetadataValueTypeArray   GGUFMetadataValueType = 9
	GGUFMetadataValueTypeUint64  GGUFMetadataValueType = 10
	GGUFMetadataValueTypeInt64   GGUFMetadataValueType = 11
	GGUFMetadataValueTypeFloat64 GGUFMetadataValueType = 12
)

// TensorInfo describes one tensor. Dimensions follow the GGML convention:
// Dimensions[0] is the fastest varying (column) axis, so a [cols, rows]
// tensor is stored row-major as rows x cols.
type TensorInfo struct {
	Name       string
	Dimensions []uint64
	Type       GGMLType
	Offset     uint64 // relative to the start of the data section
	Data       []byte
}

func (t *TensorInfo) NumElements() uint64 {
	n := uint64(1)
	for _, d := range t.Dimensions {
		n *= d
	}
	return n
}

func (t *TensorInfo) SizeBytes() uint64 {
	switch t.Type {
	case GGMLTypeF32:
		return t.NumElements() * 4
	case GGMLTypeF16:
		return t.NumElements() * 2
	default:
		return 0
	}
}

// Rows and Cols view the tensor as a matrix; 1-D tensors are a single row.
func (t *TensorInfo) Rows() int {
	if len(t.Dimensions) < 2 {
		return 1
	}
	rows := uint64(1)
	for _, d := range t.Dimensions[1:] {
		rows *= d
	}
	return int(rows)
}

func (t *TensorInfo) Cols() int {
	if len(t.Dimensions) == 0 {
		return 0
	}
	return int(t.Dimensions[0])
}

type GGUFFile struct {
	Header     GGUFHeader
	KV         map[string]interface{}
	Tensors    []*TensorInfo
	Data       []byte
	DataOffset uint64

	mapped bool
}

type GGUFHeader struct {
	Magic       uint32
	Version     uint32
	TensorCount uint64
	KVCount     uint64
}

// Tensor returns the named tensor or nil.
func (f *GGUFFile) Tensor(name string) *TensorInfo {
	for _, t := range f.Tensors {
		if t.Name == name {
			return t
		}
	}
	return nil
}

type ErrInvalidMagic struct{ Magic uint32 }

func (e ErrInvalidMagic) Error() string {
	return fmt.Sprintf("invalid GGUF magic: %x", e.Magic)
}

type ErrUnsupportedVersion struct{ Version uint32 }

func (e ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported GGUF version: %d", e.Version)
}

type ErrUnsupportedType struct {
	Tensor string
	Type   GGMLType
}

func (e ErrUnsupportedType) Error() string {
	return fmt.Sprintf("tensor %s: unsupported type %v", e.Tensor, e.Type)
}

func (t GGMLType) String() string {
	switch t {
	case GGMLTypeF32:
		return "F32"
	case GGMLTypeF16:
		return "F16"
	default:
		return fmt.Sprintf("UNKNOWN_TYPE_%d", t)
	}
}
