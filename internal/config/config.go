package config

import (
	"fmt"
	"strings"
)

type ModelType string

const (
	ModelGenerative ModelType = "generative"
	ModelTranslator ModelType = "translator"
)

func ParseModelType(s string) (ModelType, error) {
	switch ModelType(strings.ToLower(s)) {
	case ModelGenerative:
		return ModelGenerative, nil
	case ModelTranslator:
		return ModelTranslator, nil
	}
	return "", fmt.Errorf("unknown model type %q (want generative or translator)", s)
}

const (
	AtomsChar = "char"
	AtomsWord = "word"
)

// Config is the architecture stored alongside the weights.
type Config struct {
	ModelType ModelType

	EmbeddingSize       int
	AuthorEmbeddingSize int
	HiddenSize          int
	Layers              int

	// Translator encoder; zero means "same as the decoder".
	EncoderHiddenSize int
	EncoderLayers     int

	VocabSize  int
	NumAuthors int

	MaxSeqLen    int
	SoftmaxScale float64
	Atoms        string

	DatasetFile string
}

func (c *Config) Validate() error {
	if _, err := ParseModelType(string(c.ModelType)); err != nil {
		return err
	}
	if c.EmbeddingSize <= 0 {
		return fmt.Errorf("invalid embedding_size: %d (must be positive)", c.EmbeddingSize)
	}
	if c.AuthorEmbeddingSize < 0 {
		return fmt.Errorf("invalid author_embedding_size: %d (must be non-negative)", c.AuthorEmbeddingSize)
	}
	if c.HiddenSize <= 0 {
		return fmt.Errorf("invalid hidden_size: %d (must be positive)", c.HiddenSize)
	}
	if c.Layers <= 0 {
		return fmt.Errorf("invalid layers: %d (must be positive)", c.Layers)
	}
	if c.EncoderHiddenSize < 0 {
		return fmt.Errorf("invalid encoder_hidden_size: %d (must be non-negative)", c.EncoderHiddenSize)
	}
	if c.EncoderLayers < 0 {
		return fmt.Errorf("invalid encoder_layers: %d (must be non-negative)", c.EncoderLayers)
	}
	if c.VocabSize <= 0 {
		return fmt.Errorf("invalid vocab_size: %d (must be positive)", c.VocabSize)
	}
	if c.NumAuthors <= 0 {
		return fmt.Errorf("invalid num_authors: %d (must be positive)", c.NumAuthors)
	}
	if c.MaxSeqLen <= 0 {
		return fmt.Errorf("invalid max_seq_len: %d (must be positive)", c.MaxSeqLen)
	}
	if c.SoftmaxScale <= 0 {
		return fmt.Errorf("invalid softmax_scale: %f (must be positive)", c.SoftmaxScale)
	}
	if c.Atoms != AtomsChar && c.Atoms != AtomsWord {
		return fmt.Errorf("invalid atoms: %q (must be %q or %q)", c.Atoms, AtomsChar, AtomsWord)
	}
	return nil
}

func (c *Config) EncoderHidden() int {
	if c.EncoderHiddenSize > 0 {
		return c.EncoderHiddenSize
	}
	return c.HiddenSize
}

func (c *Config) EncoderDepth() int {
	if c.EncoderLayers > 0 {
		return c.EncoderLayers
	}
	return c.Layers
}

// Joiner is the separator placed between decoded atoms.
func (c *Config) Joiner() string {
	if c.Atoms == AtomsWord {
		return " "
	}
	return ""
}

func Default() Config {
	return Config{
		ModelType:    ModelGenerative,
		MaxSeqLen:    100,
		SoftmaxScale: 1.0,
		Atoms:        AtomsChar,
	}
}
