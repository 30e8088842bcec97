package model

import (
	"fmt"

	"github.com/23skdu/longbow-quill/internal/config"
)

// Tensor names used by checkpoints.
const (
	CharEmbed   = "char_embed.weight"
	AuthorEmbed = "author_embed.weight"
	OutWeight   = "decoder.weight"
	OutBias     = "decoder.bias"
	BridgeW     = "enc2dec.weight"
	BridgeB     = "enc2dec.bias"

	DecoderPrefix = "lstm"
	EncoderPrefix = "enc.lstm"
)

// Shape is a named tensor shape. Cols is zero for vectors.
type Shape struct {
	Name string
	Rows int
	Cols int
}

func lstmNames(prefix string, layer int) (wih, whh, bih, bhh string) {
	p := fmt.Sprintf("%s.l%d.", prefix, layer)
	return p + "weight_ih", p + "weight_hh", p + "bias_ih", p + "bias_hh"
}

func lstmShapes(prefix string, layers, input, hidden int) []Shape {
	var out []Shape
	for l := 0; l < layers; l++ {
		in := hidden
		if l == 0 {
			in = input
		}
		wih, whh, bih, bhh := lstmNames(prefix, l)
		out = append(out,
			Shape{Name: wih, Rows: 4 * hidden, Cols: in},
			Shape{Name: whh, Rows: 4 * hidden, Cols: hidden},
			Shape{Name: bih, Rows: 4 * hidden},
			Shape{Name: bhh, Rows: 4 * hidden},
		)
	}
	return out
}

// Shapes lists every tensor a checkpoint with this architecture carries.
func Shapes(cfg config.Config) []Shape {
	out := []Shape{{Name: CharEmbed, Rows: cfg.VocabSize, Cols: cfg.EmbeddingSize}}
	if cfg.AuthorEmbeddingSize > 0 {
		out = append(out, Shape{Name: AuthorEmbed, Rows: cfg.NumAuthors, Cols: cfg.AuthorEmbeddingSize})
	}
	decoderIn := cfg.EmbeddingSize + cfg.AuthorEmbeddingSize
	if cfg.ModelType == config.ModelTranslator {
		out = append(out, lstmShapes(EncoderPrefix, cfg.EncoderDepth(), cfg.EmbeddingSize, cfg.EncoderHidden())...)
		out = append(out,
			Shape{Name: BridgeW, Rows: cfg.HiddenSize, Cols: cfg.EncoderHidden()},
			Shape{Name: BridgeB, Rows: cfg.HiddenSize},
		)
	}
	out = append(out, lstmShapes(DecoderPrefix, cfg.Layers, decoderIn, cfg.HiddenSize)...)
	out = append(out,
		Shape{Name: OutWeight, Rows: cfg.VocabSize, Cols: cfg.HiddenSize},
		Shape{Name: OutBias, Rows: cfg.VocabSize},
	)
	return out
}
