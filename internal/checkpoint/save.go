package checkpoint

import (
	"fmt"

	"github.com/23skdu/longbow-quill/internal/config"
	"github.com/23skdu/longbow-quill/internal/gguf"
	"github.com/23skdu/longbow-quill/internal/model"
)

// Meta describes a checkpoint to be written.
type Meta struct {
	Name    string
	Config  config.Config
	Atoms   []string
	Authors []string
	Start   string
	End     string
}

// Encode builds the GGUF image for meta with weights from src. VocabSize and
// NumAuthors are taken from the atom and author lists.
func Encode(meta Meta, src model.MapSource) (*gguf.Writer, error) {
	cfg := meta.Config
	cfg.VocabSize = len(meta.Atoms)
	cfg.NumAuthors = len(meta.Authors)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &gguf.Writer{}
	w.AddKV(keyArch, Architecture)
	if meta.Name != "" {
		w.AddKV(keyName, meta.Name)
	}
	w.AddKV(keyModelType, string(cfg.ModelType))
	w.AddKV(keyEmbedding, uint32(cfg.EmbeddingSize))
	w.AddKV(keyAuthorEmbed, uint32(cfg.AuthorEmbeddingSize))
	w.AddKV(keyHidden, uint32(cfg.HiddenSize))
	w.AddKV(keyLayers, uint32(cfg.Layers))
	if cfg.ModelType == config.ModelTranslator {
		w.AddKV(keyEncHidden, uint32(cfg.EncoderHidden()))
		w.AddKV(keyEncLayers, uint32(cfg.EncoderDepth()))
	}
	w.AddKV(keyMaxSeqLen, uint32(cfg.MaxSeqLen))
	w.AddKV(keySoftmaxScale, float32(cfg.SoftmaxScale))
	w.AddKV(keyAtoms, cfg.Atoms)
	if cfg.DatasetFile != "" {
		w.AddKV(keyDataset, cfg.DatasetFile)
	}
	w.AddKV(keyStart, meta.Start)
	w.AddKV(keyEnd, meta.End)
	w.AddKV(keyVocabAtoms, meta.Atoms)
	w.AddKV(keyVocabAuthors, meta.Authors)

	for _, s := range model.Shapes(cfg) {
		v, ok := src[s.Name]
		if !ok {
			return nil, fmt.Errorf("tensor %s not found", s.Name)
		}
		vals := make([]float32, len(v))
		for i, x := range v {
			vals[i] = float32(x)
		}
		if s.Cols == 0 {
			w.AddVector(s.Name, vals)
		} else {
			w.AddMatrix(s.Name, s.Rows, s.Cols, vals)
		}
	}
	return w, nil
}

// Save writes meta and src to path.
func Save(path string, meta Meta, src model.MapSource) error {
	w, err := Encode(meta, src)
	if err != nil {
		return err
	}
	return w.WriteFile(path)
}
