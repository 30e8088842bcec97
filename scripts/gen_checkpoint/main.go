// Command gen_checkpoint writes a random-weight checkpoint and a matching
// two-author dataset for smoke runs of quill.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/23skdu/longbow-quill/internal/checkpoint"
	"github.com/23skdu/longbow-quill/internal/config"
	"github.com/23skdu/longbow-quill/internal/logger"
	"github.com/23skdu/longbow-quill/internal/model"
	"github.com/23skdu/longbow-quill/internal/registry"
)

const (
	startAtom = "\x02"
	endAtom   = "\x03"
)

var corpus = map[string][]string{
	"austen": {
		"it is a truth universally acknowledged .",
		"there is no charm equal to tenderness of heart .",
		"i declare after all there is no enjoyment like reading !",
		"a lady 's imagination is very rapid .",
	},
	"twain": {
		"the secret of getting ahead is getting started .",
		"i have never let my schooling interfere with my education .",
		"get your facts first , then you can distort them as you please .",
		"kindness is the language which the deaf can hear .",
	},
}

type doc struct {
	Author string   `json:"author"`
	Split  string   `json:"split"`
	Sents  []string `json:"sents"`
}

func main() {
	out := pflag.StringP("out", "o", "quill-demo.gguf", "checkpoint to write")
	dsOut := pflag.String("dataset-out", "", "dataset to write (default: next to the checkpoint)")
	mType := pflag.String("type", "translator", "generative or translator")
	atoms := pflag.String("atoms", config.AtomsChar, "char or word")
	hidden := pflag.Int("hidden", 32, "hidden size")
	layers := pflag.Int("layers", 1, "LSTM layers")
	seed := pflag.Int64("seed", 1, "weight seed")
	register := pflag.String("register", "", "also publish the checkpoint to the registry as name[:tag]")
	pflag.Parse()

	if err := run(*out, *dsOut, *mType, *atoms, *hidden, *layers, *seed, *register); err != nil {
		logger.Log.Error("gen_checkpoint failed", err)
		os.Exit(1)
	}
}

func run(out, dsOut, mType, atoms string, hidden, layers int, seed int64, register string) error {
	mt, err := config.ParseModelType(mType)
	if err != nil {
		return err
	}
	if dsOut == "" {
		dsOut = strings.TrimSuffix(out, filepath.Ext(out)) + ".json"
	}

	authors := make([]string, 0, len(corpus))
	for a := range corpus {
		authors = append(authors, a)
	}
	sort.Strings(authors)

	var docs []doc
	seen := map[string]bool{startAtom: true, endAtom: true}
	vocab := []string{startAtom, endAtom}
	for _, a := range authors {
		sents := corpus[a]
		docs = append(docs,
			doc{Author: a, Split: "train", Sents: sents[:2]},
			doc{Author: a, Split: "val", Sents: sents[2:]},
		)
		for _, s := range sents {
			var parts []string
			if atoms == config.AtomsWord {
				parts = strings.Fields(s)
			} else {
				for _, r := range s {
					parts = append(parts, string(r))
				}
			}
			for _, p := range parts {
				if !seen[p] {
					seen[p] = true
					vocab = append(vocab, p)
				}
			}
		}
	}

	ds := map[string]interface{}{
		"configs": map[string]string{"start": startAtom, "end": endAtom},
		"docs":    docs,
	}
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(dsOut, data, 0o644); err != nil {
		return err
	}

	cfg := config.Default()
	cfg.ModelType = mt
	cfg.EmbeddingSize = 16
	cfg.AuthorEmbeddingSize = 4
	cfg.HiddenSize = hidden
	cfg.Layers = layers
	cfg.Atoms = atoms
	cfg.DatasetFile = filepath.Base(dsOut)
	cfg.VocabSize = len(vocab)
	cfg.NumAuthors = len(authors)

	meta := checkpoint.Meta{
		Name:    "quill-demo",
		Config:  cfg,
		Atoms:   vocab,
		Authors: authors,
		Start:   startAtom,
		End:     endAtom,
	}
	src := model.RandomWeights(cfg, rand.New(rand.NewSource(seed)), 0.2)
	if err := checkpoint.Save(out, meta, src); err != nil {
		return err
	}
	logger.Log.Info("Checkpoint written", "path", out, "dataset", dsOut, "atoms", len(vocab), "type", mt)

	if register != "" {
		settings, err := config.LoadSettings()
		if err != nil {
			return err
		}
		digest, err := registry.Publish(settings.ModelsDir, register, out)
		if err != nil {
			return err
		}
		fmt.Printf("registered %s as %s in %s\n", register, digest, settings.ModelsDir)
	}
	return nil
}
