package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-quill/internal/checkpoint"
	"github.com/23skdu/longbow-quill/internal/config"
	"github.com/23skdu/longbow-quill/internal/dataset"
	"github.com/23skdu/longbow-quill/internal/registry"
)

func newInspectCmd(settings config.Settings) *cobra.Command {
	var datasetFile string
	cmd := &cobra.Command{
		Use:   "inspect <checkpoint>",
		Short: "Print a checkpoint's architecture, indices and tensors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := registry.Resolve(settings.ModelsDir, args[0])
			if err != nil {
				return err
			}
			ck, err := checkpoint.Load(path)
			if err != nil {
				return err
			}
			defer ck.Close()

			out := cmd.OutOrStdout()
			printCheckpoint(out, path, ck)
			if datasetFile != "" {
				ds, err := dataset.Load(datasetFile)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nDataset %s (%d sentences)\n", datasetFile, ds.Len())
				fmt.Fprintln(out, ds.Summary())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&datasetFile, "dataset", "", "also summarise this dataset")
	return cmd
}

func printCheckpoint(w io.Writer, path string, ck *checkpoint.Checkpoint) {
	cfg := ck.Config
	fmt.Fprintf(w, "Checkpoint: %s\n", path)
	fmt.Fprintf(w, "Name: %s\n", ck.Name)
	fmt.Fprintf(w, "Model type: %s\n", cfg.ModelType)
	fmt.Fprintf(w, "Embedding: %d  Author embedding: %d\n", cfg.EmbeddingSize, cfg.AuthorEmbeddingSize)
	fmt.Fprintf(w, "Hidden: %d x %d layers\n", cfg.HiddenSize, cfg.Layers)
	if cfg.ModelType == config.ModelTranslator {
		fmt.Fprintf(w, "Encoder: %d x %d layers\n", cfg.EncoderHidden(), cfg.EncoderDepth())
	}
	fmt.Fprintf(w, "Max seq len: %d  Softmax scale: %g  Atoms: %s\n", cfg.MaxSeqLen, cfg.SoftmaxScale, cfg.Atoms)
	fmt.Fprintf(w, "Vocabulary: %d atoms (start %q, end %q)\n", cfg.VocabSize, ck.StartAtom, ck.EndAtom)
	fmt.Fprintf(w, "Authors: %s\n", strings.Join(ck.Authors.Keys(), ", "))
	if cfg.DatasetFile != "" {
		fmt.Fprintf(w, "Dataset: %s\n", cfg.DatasetFile)
	}

	f := ck.File()
	fmt.Fprintf(w, "\nTensors (%d, %d parameters):\n", len(f.Tensors), f.ParameterCount())
	tensors := append(f.Tensors[:0:0], f.Tensors...)
	sort.Slice(tensors, func(i, j int) bool { return tensors[i].Name < tensors[j].Name })
	for _, t := range tensors {
		fmt.Fprintf(w, "  %-28s %-4s %v\n", t.Name, t.Type, t.Dimensions)
	}
}
