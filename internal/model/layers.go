package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// TensorSource hands out checkpoint tensors with the requested shape.
type TensorSource interface {
	Matrix(name string, rows, cols int) (*mat.Dense, error)
	Vector(name string, n int) (*mat.VecDense, error)
}

type embedding struct {
	w *mat.Dense
}

func loadEmbedding(src TensorSource, name string, rows, cols int) (*embedding, error) {
	w, err := src.Matrix(name, rows, cols)
	if err != nil {
		return nil, err
	}
	return &embedding{w: w}, nil
}

func (e *embedding) size() int {
	r, _ := e.w.Dims()
	return r
}

// lookupInto copies row i into dst starting at off.
func (e *embedding) lookupInto(dst *mat.VecDense, off, i int) error {
	rows, cols := e.w.Dims()
	if i < 0 || i >= rows {
		return fmt.Errorf("index %d out of range [0,%d)", i, rows)
	}
	row := e.w.RawRowView(i)
	for j := 0; j < cols; j++ {
		dst.SetVec(off+j, row[j])
	}
	return nil
}

type linear struct {
	w *mat.Dense
	b *mat.VecDense
}

func loadLinear(src TensorSource, wName, bName string, out, in int) (*linear, error) {
	w, err := src.Matrix(wName, out, in)
	if err != nil {
		return nil, err
	}
	b, err := src.Vector(bName, out)
	if err != nil {
		return nil, err
	}
	return &linear{w: w, b: b}, nil
}

func (l *linear) forward(x mat.Vector) *mat.VecDense {
	out, _ := l.w.Dims()
	y := mat.NewVecDense(out, nil)
	y.MulVec(l.w, x)
	y.AddVec(y, l.b)
	return y
}

// lstmLayer uses the i, f, g, o gate layout in both weight matrices.
type lstmLayer struct {
	hidden int
	wih    *mat.Dense
	whh    *mat.Dense
	bias   *mat.VecDense
}

func loadLSTMLayer(src TensorSource, prefix string, layer, in, hidden int) (*lstmLayer, error) {
	wihName, whhName, bihName, bhhName := lstmNames(prefix, layer)
	wih, err := src.Matrix(wihName, 4*hidden, in)
	if err != nil {
		return nil, err
	}
	whh, err := src.Matrix(whhName, 4*hidden, hidden)
	if err != nil {
		return nil, err
	}
	bih, err := src.Vector(bihName, 4*hidden)
	if err != nil {
		return nil, err
	}
	bhh, err := src.Vector(bhhName, 4*hidden)
	if err != nil {
		return nil, err
	}
	bias := mat.NewVecDense(4*hidden, nil)
	bias.AddVec(bih, bhh)
	return &lstmLayer{hidden: hidden, wih: wih, whh: whh, bias: bias}, nil
}

// step advances (h, c) in place given input x.
func (l *lstmLayer) step(x mat.Vector, h, c *mat.VecDense) {
	gates := mat.NewVecDense(4*l.hidden, nil)
	var rec mat.VecDense
	gates.MulVec(l.wih, x)
	rec.MulVec(l.whh, h)
	gates.AddVec(gates, &rec)
	gates.AddVec(gates, l.bias)

	n := l.hidden
	for j := 0; j < n; j++ {
		i := sigmoid(gates.AtVec(j))
		f := sigmoid(gates.AtVec(n + j))
		g := math.Tanh(gates.AtVec(2*n + j))
		o := sigmoid(gates.AtVec(3*n + j))
		cj := f*c.AtVec(j) + i*g
		c.SetVec(j, cj)
		h.SetVec(j, o*math.Tanh(cj))
	}
}

type lstmState struct {
	h []*mat.VecDense
	c []*mat.VecDense
}

type lstm struct {
	layers []*lstmLayer
}

func loadLSTM(src TensorSource, prefix string, layers, in, hidden int) (*lstm, error) {
	out := &lstm{}
	for l := 0; l < layers; l++ {
		layerIn := hidden
		if l == 0 {
			layerIn = in
		}
		layer, err := loadLSTMLayer(src, prefix, l, layerIn, hidden)
		if err != nil {
			return nil, err
		}
		out.layers = append(out.layers, layer)
	}
	return out, nil
}

func (m *lstm) zeroState() *lstmState {
	s := &lstmState{}
	for _, l := range m.layers {
		s.h = append(s.h, mat.NewVecDense(l.hidden, nil))
		s.c = append(s.c, mat.NewVecDense(l.hidden, nil))
	}
	return s
}

// step feeds x through every layer and returns the top hidden state.
func (m *lstm) step(x mat.Vector, s *lstmState) *mat.VecDense {
	in := x
	for i, l := range m.layers {
		l.step(in, s.h[i], s.c[i])
		in = s.h[i]
	}
	return s.h[len(s.h)-1]
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
