package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/23skdu/longbow-quill/internal/config"
)

var ErrEmptyInput = errors.New("model: empty input sequence")

// Network is a forward-only recurrent model driven one atom at a time.
// A Network is read-only after construction; all mutable state lives in the
// State values it returns, so one Network can serve any number of passes.
type Network interface {
	// Begin consumes the conditioning input and returns a state whose logits
	// score the first generated atom.
	Begin(input []int, author int) (*State, error)
	// Advance feeds one generated atom and refreshes the state's logits.
	Advance(s *State, atom int) error
	VocabSize() int
	Type() config.ModelType
}

// State carries the recurrent state of one decoding pass.
type State struct {
	author int
	dec    *lstmState
	logits []float64
	steps  int
}

// Logits returns the scores for the next atom. The slice is owned by the
// state and is replaced on every Advance.
func (s *State) Logits() []float64 { return s.logits }

// Steps is the number of atoms fed to the decoder so far.
func (s *State) Steps() int { return s.steps }

// NewState seeds a state for Network implementations that keep their own
// recurrent memory.
func NewState(author int, logits []float64) *State {
	return &State{author: author, logits: logits}
}

// Author is the conditioning author of the pass.
func (s *State) Author() int { return s.author }

// Update replaces the logits after one more atom was consumed.
func (s *State) Update(logits []float64) {
	s.logits = logits
	s.steps++
}

// New builds the network for cfg.ModelType from src.
func New(cfg config.Config, src TensorSource) (Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.ModelType {
	case config.ModelGenerative:
		return NewCharLSTM(cfg, src)
	case config.ModelTranslator:
		return NewCharTranslator(cfg, src)
	}
	return nil, fmt.Errorf("model: unsupported type %q", cfg.ModelType)
}

// decoder is the author-conditioned language model shared by both networks.
type decoder struct {
	embed   *embedding
	authors *embedding
	rnn     *lstm
	out     *linear

	embedSize  int
	authorSize int
	numAuthors int
}

func loadDecoder(cfg config.Config, src TensorSource) (*decoder, error) {
	d := &decoder{
		embedSize:  cfg.EmbeddingSize,
		authorSize: cfg.AuthorEmbeddingSize,
		numAuthors: cfg.NumAuthors,
	}
	var err error
	if d.embed, err = loadEmbedding(src, CharEmbed, cfg.VocabSize, cfg.EmbeddingSize); err != nil {
		return nil, err
	}
	if cfg.AuthorEmbeddingSize > 0 {
		if d.authors, err = loadEmbedding(src, AuthorEmbed, cfg.NumAuthors, cfg.AuthorEmbeddingSize); err != nil {
			return nil, err
		}
	}
	if d.rnn, err = loadLSTM(src, DecoderPrefix, cfg.Layers, cfg.EmbeddingSize+cfg.AuthorEmbeddingSize, cfg.HiddenSize); err != nil {
		return nil, err
	}
	if d.out, err = loadLinear(src, OutWeight, OutBias, cfg.VocabSize, cfg.HiddenSize); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *decoder) checkAuthor(author int) error {
	if author < 0 || author >= d.numAuthors {
		return fmt.Errorf("model: author %d out of range [0,%d)", author, d.numAuthors)
	}
	return nil
}

// input builds [embed(atom); authorEmbed(author)].
func (d *decoder) input(atom, author int) (*mat.VecDense, error) {
	x := mat.NewVecDense(d.embedSize+d.authorSize, nil)
	if err := d.embed.lookupInto(x, 0, atom); err != nil {
		return nil, fmt.Errorf("model: atom: %w", err)
	}
	if d.authors != nil {
		if err := d.authors.lookupInto(x, d.embedSize, author); err != nil {
			return nil, fmt.Errorf("model: author: %w", err)
		}
	}
	return x, nil
}

func (d *decoder) feed(s *State, atom int) error {
	x, err := d.input(atom, s.author)
	if err != nil {
		return err
	}
	top := d.rnn.step(x, s.dec)
	s.logits = d.out.forward(top).RawVector().Data
	s.steps++
	return nil
}

// CharLSTM is the generative model: the conditioning input is a seed that
// the network continues.
type CharLSTM struct {
	dec *decoder
}

func NewCharLSTM(cfg config.Config, src TensorSource) (*CharLSTM, error) {
	d, err := loadDecoder(cfg, src)
	if err != nil {
		return nil, err
	}
	return &CharLSTM{dec: d}, nil
}

func (m *CharLSTM) Begin(input []int, author int) (*State, error) {
	if len(input) == 0 {
		return nil, ErrEmptyInput
	}
	if err := m.dec.checkAuthor(author); err != nil {
		return nil, err
	}
	s := &State{author: author, dec: m.dec.rnn.zeroState()}
	for _, atom := range input {
		if err := m.dec.feed(s, atom); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (m *CharLSTM) Advance(s *State, atom int) error {
	return m.dec.feed(s, atom)
}

func (m *CharLSTM) VocabSize() int         { return m.dec.embed.size() }
func (m *CharLSTM) Type() config.ModelType { return config.ModelGenerative }

// CharTranslator encodes the input sentence and decodes it again under the
// requested author. The decoder starts from input[0], the start atom.
type CharTranslator struct {
	embed  *embedding
	enc    *lstm
	bridge *linear
	dec    *decoder
}

func NewCharTranslator(cfg config.Config, src TensorSource) (*CharTranslator, error) {
	d, err := loadDecoder(cfg, src)
	if err != nil {
		return nil, err
	}
	enc, err := loadLSTM(src, EncoderPrefix, cfg.EncoderDepth(), cfg.EmbeddingSize, cfg.EncoderHidden())
	if err != nil {
		return nil, err
	}
	bridge, err := loadLinear(src, BridgeW, BridgeB, cfg.HiddenSize, cfg.EncoderHidden())
	if err != nil {
		return nil, err
	}
	return &CharTranslator{embed: d.embed, enc: enc, bridge: bridge, dec: d}, nil
}

func (m *CharTranslator) Begin(input []int, author int) (*State, error) {
	if len(input) == 0 {
		return nil, ErrEmptyInput
	}
	if err := m.dec.checkAuthor(author); err != nil {
		return nil, err
	}

	encState := m.enc.zeroState()
	var top *mat.VecDense
	x := mat.NewVecDense(m.dec.embedSize, nil)
	for _, atom := range input {
		if err := m.embed.lookupInto(x, 0, atom); err != nil {
			return nil, fmt.Errorf("model: atom: %w", err)
		}
		top = m.enc.step(x, encState)
	}

	init := m.bridge.forward(top)
	for i := 0; i < init.Len(); i++ {
		init.SetVec(i, math.Tanh(init.AtVec(i)))
	}

	s := &State{author: author, dec: m.dec.rnn.zeroState()}
	for _, h := range s.dec.h {
		h.CopyVec(init)
	}
	if err := m.dec.feed(s, input[0]); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *CharTranslator) Advance(s *State, atom int) error {
	return m.dec.feed(s, atom)
}

func (m *CharTranslator) VocabSize() int         { return m.embed.size() }
func (m *CharTranslator) Type() config.ModelType { return config.ModelTranslator }
