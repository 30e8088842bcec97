package dataset

import (
	"fmt"

	"github.com/23skdu/longbow-quill/internal/tokenizer"
	"github.com/23skdu/longbow-quill/internal/vocab"
)

// Batch is a sample ready for the network.
type Batch struct {
	// Inputs is the start atom followed by at most maxLen text atoms.
	Inputs []int
	// Targets is the text atoms followed by the end atom, same length cap.
	Targets []int
	Author  int
	Len     int
}

// Prepare encodes s for the network.
func Prepare(s Sample, tok *tokenizer.Tokenizer, authors *vocab.Index[string], maxLen int) (Batch, error) {
	author, ok := authors.Get(s.Author)
	if !ok {
		return Batch{}, fmt.Errorf("dataset: unknown author %q", s.Author)
	}
	ids, err := tok.Encode(s.Text)
	if err != nil {
		return Batch{}, fmt.Errorf("dataset: %w", err)
	}
	if maxLen > 0 && len(ids) > maxLen {
		ids = ids[:maxLen]
	}

	b := Batch{Author: author, Len: len(ids) + 1}
	b.Inputs = append(make([]int, 0, len(ids)+1), tok.Start)
	b.Inputs = append(b.Inputs, ids...)
	b.Targets = append(append(make([]int, 0, len(ids)+1), ids...), tok.End)
	if maxLen > 0 && len(b.Targets) > maxLen {
		b.Targets = b.Targets[:maxLen]
	}
	return b, nil
}
