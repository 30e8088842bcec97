package tokenizer

import (
	"fmt"
	"strings"

	"github.com/23skdu/longbow-quill/internal/config"
	"github.com/23skdu/longbow-quill/internal/vocab"
)

// Tokenizer converts between text and atom ids. Atoms are single characters
// or whitespace-separated words depending on the checkpoint.
type Tokenizer struct {
	Atoms *vocab.Index[string]
	Mode  string
	Start int
	End   int
}

func New(atoms *vocab.Index[string], mode, start, end string) (*Tokenizer, error) {
	if mode != config.AtomsChar && mode != config.AtomsWord {
		return nil, fmt.Errorf("tokenizer: unknown atom mode %q", mode)
	}
	s, ok := atoms.Get(start)
	if !ok {
		return nil, fmt.Errorf("tokenizer: start atom %q not in vocabulary", start)
	}
	e, ok := atoms.Get(end)
	if !ok {
		return nil, fmt.Errorf("tokenizer: end atom %q not in vocabulary", end)
	}
	return &Tokenizer{Atoms: atoms, Mode: mode, Start: s, End: e}, nil
}

// Split breaks text into atoms without looking them up.
func (t *Tokenizer) Split(text string) []string {
	if t.Mode == config.AtomsWord {
		return strings.Fields(text)
	}
	out := make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

// Encode maps text to ids. Every atom must be in the vocabulary.
func (t *Tokenizer) Encode(text string) ([]int, error) {
	parts := t.Split(text)
	ids := make([]int, 0, len(parts))
	for i, p := range parts {
		id, ok := t.Atoms.Get(p)
		if !ok {
			return nil, fmt.Errorf("tokenizer: atom %q at position %d not in vocabulary", p, i)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *Tokenizer) Joiner() string {
	if t.Mode == config.AtomsWord {
		return " "
	}
	return ""
}

// Decode joins the atoms of ids, skipping ids outside the vocabulary.
func (t *Tokenizer) Decode(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := t.Atoms.GetInverse(id); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, t.Joiner())
}

// StripEnd drops end atoms.
func (t *Tokenizer) StripEnd(ids []int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id != t.End {
			out = append(out, id)
		}
	}
	return out
}

// StripStart drops a leading start atom.
func (t *Tokenizer) StripStart(ids []int) []int {
	if len(ids) > 0 && ids[0] == t.Start {
		return ids[1:]
	}
	return ids
}
