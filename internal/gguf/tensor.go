package gguf

import (
	"encoding/binary"
	"math"
)

// Float64s decodes the tensor into row-major float64 values.
func (t *TensorInfo) Float64s() ([]float64, error) {
	n := t.NumElements()
	out := make([]float64, n)
	switch t.Type {
	case GGMLTypeF32:
		for i := uint64(0); i < n; i++ {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(t.Data[i*4:])))
		}
	case GGMLTypeF16:
		for i := uint64(0); i < n; i++ {
			out[i] = float64(Fp16ToFp32(binary.LittleEndian.Uint16(t.Data[i*2:])))
		}
	default:
		return nil, ErrUnsupportedType{Tensor: t.Name, Type: t.Type}
	}
	return out, nil
}

func Fp16ToFp32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	mant := uint32(h) & 0x3FF

	var f32 uint32
	switch {
	case exp == 0 && mant == 0:
		f32 = sign << 31
	case exp == 0:
		// subnormal: renormalize the mantissa
		shift := uint32(0)
		m := mant
		for m < 0x400 {
			m <<= 1
			shift++
		}
		m = (m & 0x3FF) << 13
		e := 127 - 14 - shift
		f32 = (sign << 31) | (e << 23) | m
	case exp == 31:
		f32 = (sign << 31) | 0x7F800000 | (mant << 13)
	default:
		f32 = (sign << 31) | ((exp - 15 + 127) << 23) | (mant << 13)
	}
	return math.Float32frombits(f32)
}

// Fp32ToFp16 truncates the mantissa; values below the f16 subnormal range
// flush to signed zero.
func Fp32ToFp16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>31) << 15
	exp := int((bits >> 23) & 0xFF)
	mant := bits & 0x7FFFFF

	switch {
	case exp == 0:
		return sign
	case exp == 255:
		if mant != 0 {
			return sign | 0x7C00 | uint16(mant>>13) | 1
		}
		return sign | 0x7C00
	}

	newExp := exp - 127 + 15
	switch {
	case newExp >= 31:
		return sign | 0x7C00
	case newExp <= 0:
		shift := uint32(1 - newExp)
		if shift > 10 {
			return sign
		}
		m := mant | 0x800000
		return sign | uint16(m>>(13+shift))
	default:
		return sign | uint16(newExp<<10) | uint16(mant>>13)
	}
}
