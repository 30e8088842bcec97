package main

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/23skdu/longbow-quill/internal/checkpoint"
	"github.com/23skdu/longbow-quill/internal/config"
	"github.com/23skdu/longbow-quill/internal/export"
	"github.com/23skdu/longbow-quill/internal/model"
	"github.com/23skdu/longbow-quill/internal/registry"
)

const testDataset = `{
  "configs": {"start": "<", "end": ">"},
  "docs": [
    {"author": "austen", "split": "val", "sents": ["a cab.", "abba cab"]},
    {"author": "twain", "split": "val", "sents": ["cc ba.", "bab"]}
  ]
}`

func fixture(t *testing.T, mt config.ModelType) (ckPath, dsPath string) {
	t.Helper()
	dir := t.TempDir()
	dsPath = filepath.Join(dir, "styles.json")
	if err := os.WriteFile(dsPath, []byte(testDataset), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.ModelType = mt
	cfg.EmbeddingSize = 4
	cfg.AuthorEmbeddingSize = 2
	cfg.HiddenSize = 6
	cfg.Layers = 1
	cfg.MaxSeqLen = 30
	cfg.DatasetFile = "styles.json"
	meta := checkpoint.Meta{
		Name:    "styles",
		Config:  cfg,
		Atoms:   []string{"<", ">", "a", "b", "c", " ", "."},
		Authors: []string{"austen", "twain"},
		Start:   "<",
		End:     ">",
	}
	cfg.VocabSize = len(meta.Atoms)
	cfg.NumAuthors = len(meta.Authors)
	ckPath = filepath.Join(dir, "styles.gguf")
	if err := checkpoint.Save(ckPath, meta, model.RandomWeights(cfg, rand.New(rand.NewSource(9)), 0.4)); err != nil {
		t.Fatal(err)
	}
	return ckPath, dsPath
}

func execute(t *testing.T, settings config.Settings, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(settings)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestRunTranslatorWithCycleAndExport(t *testing.T) {
	ck, ds := fixture(t, config.ModelTranslator)
	exp := filepath.Join(t.TempDir(), "runs", "run.arrow")

	out, err := execute(t, config.Settings{}, "",
		"-m", ck, "--dataset", ds, "--num_samples", "3", "--show_rev", "1",
		"--seed", "7", "--greedy", "-l", "12", "--export", exp)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := strings.Count(out, "Translate from"); n != 3 {
		t.Errorf("samples printed = %d, want 3\n%s", n, out)
	}
	if n := strings.Count(out, "Rev "); n != 3 {
		t.Errorf("reverse lines = %d, want 3", n)
	}

	rows, err := export.ReadFile(exp)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("exported rows = %d, want 3", len(rows))
	}
	for _, r := range rows {
		if r.ModelType != "translator" || !r.HasReverse || r.Split != "val" {
			t.Errorf("row = %+v", r)
		}
		// without flip the output keeps the input author
		if r.Source != r.Target {
			t.Errorf("source %s != target %s", r.Source, r.Target)
		}
	}
}

func TestRunGenerativeFlip(t *testing.T) {
	ck, _ := fixture(t, config.ModelGenerative)
	exp := filepath.Join(t.TempDir(), "run.arrow")

	// dataset comes from the path stored in the checkpoint
	out, err := execute(t, config.Settings{}, "",
		"-m", ck, "--num_samples", "2", "--flip", "1", "--seed", "3",
		"--seed_length", "4", "--export", exp)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Count(out, "Out ") != 2 || strings.Contains(out, "Rev ") {
		t.Errorf("unexpected transcript:\n%s", out)
	}
	rows, err := export.ReadFile(exp)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if r.Source == r.Target {
			t.Errorf("flip kept author %s", r.Source)
		}
		if len([]rune(r.Input)) > 4 {
			t.Errorf("seed %q longer than seed_length", r.Input)
		}
	}
}

func TestRunRegistryName(t *testing.T) {
	ck, ds := fixture(t, config.ModelTranslator)
	models := t.TempDir()
	if _, err := registry.Publish(models, "styles:v1", ck); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, config.Settings{ModelsDir: models}, "",
		"-m", "styles:v1", "--dataset", ds, "--num_samples", "1", "--seed", "1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Translate from") {
		t.Errorf("no transcript:\n%s", out)
	}
}

func TestInteractive(t *testing.T) {
	ck, _ := fixture(t, config.ModelTranslator)
	exp := filepath.Join(t.TempDir(), "run.arrow")
	stdin := "twain: abc\n\nxyz!\nbab\n"

	out, err := execute(t, config.Settings{}, stdin,
		"-m", ck, "-i", "--seed", "5", "--export", exp)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// the line with unknown atoms is skipped
	if n := strings.Count(out, "Translate from"); n != 2 {
		t.Errorf("samples = %d, want 2\n%s", n, out)
	}
	rows, err := export.ReadFile(exp)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Source != "twain" || rows[0].Input != "abc" || rows[0].Split != "stdin" {
		t.Errorf("first row = %+v", rows[0])
	}
}

func TestRunErrors(t *testing.T) {
	ck, ds := fixture(t, config.ModelTranslator)
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing model", []string{"--dataset", ds}, "--model is required"},
		{"unknown model", []string{"-m", "nope:latest"}, "not found"},
		{"m_type mismatch", []string{"-m", ck, "--dataset", ds, "--m_type", "generative"}, "does not match"},
		{"bad m_type", []string{"-m", ck, "--dataset", ds, "--m_type", "gan"}, "unknown model type"},
		{"unknown split", []string{"-m", ck, "--dataset", ds, "-s", "test"}, "unknown split"},
		{"bad softmax scale", []string{"-m", ck, "--dataset", ds, "--softmax_scale", "-2"}, "softmax_scale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, config.Settings{ModelsDir: t.TempDir()}, "", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestInspect(t *testing.T) {
	ck, ds := fixture(t, config.ModelTranslator)
	out, err := execute(t, config.Settings{}, "", "inspect", ck, "--dataset", ds)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{
		"Model type: translator",
		"Authors: austen, twain",
		"enc.lstm.l0.weight_ih",
		"enc2dec.weight",
		"Dataset " + ds + " (4 sentences)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestDatasetPath(t *testing.T) {
	dir := t.TempDir()
	ck := filepath.Join(dir, "m.gguf")
	tests := []struct {
		explicit, stored, want string
	}{
		{"x.json", "y.json", "x.json"},
		{"", "", ""},
		{"", "/abs/y.json", "/abs/y.json"},
		{"", "y.json", filepath.Join(dir, "y.json")},
	}
	for _, tt := range tests {
		if got := datasetPath(tt.explicit, tt.stored, ck); got != tt.want {
			t.Errorf("datasetPath(%q, %q) = %q, want %q", tt.explicit, tt.stored, got, tt.want)
		}
	}
}
