package model

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/23skdu/longbow-quill/internal/config"
)

// MapSource serves tensors from memory, keyed by name, row-major.
type MapSource map[string][]float64

func (m MapSource) Matrix(name string, rows, cols int) (*mat.Dense, error) {
	v, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	if len(v) != rows*cols {
		return nil, fmt.Errorf("tensor %s: %d values, want %dx%d", name, len(v), rows, cols)
	}
	return mat.NewDense(rows, cols, append([]float64(nil), v...)), nil
}

func (m MapSource) Vector(name string, n int) (*mat.VecDense, error) {
	v, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	if len(v) != n {
		return nil, fmt.Errorf("tensor %s: %d values, want %d", name, len(v), n)
	}
	return mat.NewVecDense(n, append([]float64(nil), v...)), nil
}

// RandomWeights fills every tensor of cfg uniformly in [-scale, scale).
func RandomWeights(cfg config.Config, rng *rand.Rand, scale float64) MapSource {
	src := make(MapSource)
	for _, s := range Shapes(cfg) {
		n := s.Rows
		if s.Cols > 0 {
			n *= s.Cols
		}
		v := make([]float64, n)
		for i := range v {
			v[i] = (rng.Float64()*2 - 1) * scale
		}
		src[s.Name] = v
	}
	return src
}
