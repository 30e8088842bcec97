package checkpoint

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/23skdu/longbow-quill/internal/config"
	"github.com/23skdu/longbow-quill/internal/gguf"
	"github.com/23skdu/longbow-quill/internal/logger"
	"github.com/23skdu/longbow-quill/internal/metrics"
	"github.com/23skdu/longbow-quill/internal/model"
	"github.com/23skdu/longbow-quill/internal/tokenizer"
	"github.com/23skdu/longbow-quill/internal/vocab"
)

// Checkpoint is a loaded model: architecture, index maps and weights.
// It serves the weights to model.New and must be closed to release the
// mapping.
type Checkpoint struct {
	Name    string
	Config  config.Config
	Atoms   *vocab.Index[string]
	Authors *vocab.Index[string]

	StartAtom string
	EndAtom   string

	file *gguf.GGUFFile
}

// Load maps the checkpoint at path and rebuilds its config and indices.
func Load(path string) (*Checkpoint, error) {
	start := time.Now()
	f, err := gguf.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", path, err)
	}
	ck, err := fromFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("load checkpoint %s: %w", path, err)
	}
	if err := ck.Validate(); err != nil {
		f.Close()
		return nil, fmt.Errorf("load checkpoint %s: %w", path, err)
	}
	if ck.Name == "" {
		ck.Name = path
	}
	metrics.RecordCheckpointLoad(f.ParameterCount(), time.Since(start))
	logger.Log.Debug("Checkpoint loaded",
		"path", path,
		"model_type", ck.Config.ModelType,
		"vocab", ck.Config.VocabSize,
		"authors", ck.Config.NumAuthors,
		"tensors", len(f.Tensors),
		"elapsed", time.Since(start))
	return ck, nil
}

func fromFile(f *gguf.GGUFFile) (*Checkpoint, error) {
	if arch, ok := f.String(keyArch); ok && arch != Architecture {
		return nil, fmt.Errorf("unsupported architecture %q", arch)
	}

	atoms, err := f.Strings(keyVocabAtoms, keyMiscAtoms)
	if err != nil {
		return nil, fmt.Errorf("atom vocabulary: %w", err)
	}
	authors, err := f.Strings(keyVocabAuthors, keyMiscAuthors)
	if err != nil {
		return nil, fmt.Errorf("author index: %w", err)
	}

	ck := &Checkpoint{file: f}
	if ck.Atoms, err = vocab.FromSlice(atoms); err != nil {
		return nil, fmt.Errorf("atom vocabulary: %w", err)
	}
	if ck.Authors, err = vocab.FromSlice(authors); err != nil {
		return nil, fmt.Errorf("author index: %w", err)
	}
	ck.Name, _ = f.String(keyName)

	var ok bool
	if ck.StartAtom, ok = f.String(keyStart); !ok {
		return nil, fmt.Errorf("missing %s", keyStart)
	}
	if ck.EndAtom, ok = f.String(keyEnd); !ok {
		return nil, fmt.Errorf("missing %s", keyEnd)
	}

	cfg := config.Default()
	if s, ok := f.String(keyModelType); ok {
		if cfg.ModelType, err = config.ParseModelType(s); err != nil {
			return nil, err
		}
	}
	cfg.EmbeddingSize, _ = f.Int(keyEmbedding)
	cfg.AuthorEmbeddingSize, _ = f.Int(keyAuthorEmbed)
	cfg.HiddenSize, _ = f.Int(keyHidden)
	cfg.Layers, _ = f.Int(keyLayers)
	cfg.EncoderHiddenSize, _ = f.Int(keyEncHidden)
	cfg.EncoderLayers, _ = f.Int(keyEncLayers)
	if v, ok := f.Int(keyMaxSeqLen); ok {
		cfg.MaxSeqLen = v
	}
	if v, ok := f.Float(keySoftmaxScale); ok {
		cfg.SoftmaxScale = v
	}
	if v, ok := f.String(keyAtoms); ok {
		cfg.Atoms = v
	}
	cfg.DatasetFile, _ = f.String(keyDataset)
	cfg.VocabSize = ck.Atoms.Size()
	cfg.NumAuthors = ck.Authors.Size()
	ck.Config = cfg
	return ck, nil
}

// Validate checks the config and that every tensor the architecture needs is
// present with the expected shape.
func (c *Checkpoint) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if !c.Atoms.Exists(c.StartAtom) {
		return fmt.Errorf("start atom %q not in vocabulary", c.StartAtom)
	}
	if !c.Atoms.Exists(c.EndAtom) {
		return fmt.Errorf("end atom %q not in vocabulary", c.EndAtom)
	}
	if c.file == nil {
		return nil
	}
	for _, s := range model.Shapes(c.Config) {
		t := c.file.Tensor(s.Name)
		if t == nil {
			return fmt.Errorf("tensor %s not found", s.Name)
		}
		if err := checkShape(t, s); err != nil {
			return err
		}
	}
	return nil
}

func checkShape(t *gguf.TensorInfo, s model.Shape) error {
	if s.Cols == 0 {
		if len(t.Dimensions) != 1 || int(t.Dimensions[0]) != s.Rows {
			return fmt.Errorf("tensor %s: shape %v, want [%d]", s.Name, t.Dimensions, s.Rows)
		}
		return nil
	}
	if len(t.Dimensions) != 2 || t.Rows() != s.Rows || t.Cols() != s.Cols {
		return fmt.Errorf("tensor %s: shape %v, want [%d %d]", s.Name, t.Dimensions, s.Cols, s.Rows)
	}
	return nil
}

// SetSoftmaxScale overrides the stored softmax scale.
func (c *Checkpoint) SetSoftmaxScale(scale float64) error {
	if scale <= 0 {
		return fmt.Errorf("invalid softmax_scale: %v (must be positive)", scale)
	}
	c.Config.SoftmaxScale = scale
	return nil
}

// Start and End are the sentinel atom ids.
func (c *Checkpoint) Start() int {
	id, _ := c.Atoms.Get(c.StartAtom)
	return id
}

func (c *Checkpoint) End() int {
	id, _ := c.Atoms.Get(c.EndAtom)
	return id
}

func (c *Checkpoint) Tokenizer() (*tokenizer.Tokenizer, error) {
	return tokenizer.New(c.Atoms, c.Config.Atoms, c.StartAtom, c.EndAtom)
}

// Network builds the forward-only network from the stored weights.
func (c *Checkpoint) Network() (model.Network, error) {
	return model.New(c.Config, c)
}

func (c *Checkpoint) tensor(name string) ([]float64, *gguf.TensorInfo, error) {
	if c.file == nil {
		return nil, nil, fmt.Errorf("checkpoint closed")
	}
	t := c.file.Tensor(name)
	if t == nil {
		return nil, nil, fmt.Errorf("tensor %s not found", name)
	}
	v, err := t.Float64s()
	if err != nil {
		return nil, nil, err
	}
	return v, t, nil
}

func (c *Checkpoint) Matrix(name string, rows, cols int) (*mat.Dense, error) {
	v, t, err := c.tensor(name)
	if err != nil {
		return nil, err
	}
	if t.Rows() != rows || t.Cols() != cols {
		return nil, fmt.Errorf("tensor %s: %dx%d, want %dx%d", name, t.Rows(), t.Cols(), rows, cols)
	}
	return mat.NewDense(rows, cols, v), nil
}

func (c *Checkpoint) Vector(name string, n int) (*mat.VecDense, error) {
	v, _, err := c.tensor(name)
	if err != nil {
		return nil, err
	}
	if len(v) != n {
		return nil, fmt.Errorf("tensor %s: %d values, want %d", name, len(v), n)
	}
	return mat.NewVecDense(n, v), nil
}

// File exposes the underlying container for inspection.
func (c *Checkpoint) File() *gguf.GGUFFile { return c.file }

func (c *Checkpoint) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}
