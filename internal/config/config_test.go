package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Default()
	cfg.EmbeddingSize = 16
	cfg.AuthorEmbeddingSize = 4
	cfg.HiddenSize = 32
	cfg.Layers = 2
	cfg.VocabSize = 50
	cfg.NumAuthors = 2
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ModelType != ModelGenerative {
		t.Errorf("expected generative model, got %q", cfg.ModelType)
	}
	if cfg.MaxSeqLen != 100 {
		t.Errorf("expected MaxSeqLen 100, got %d", cfg.MaxSeqLen)
	}
	if cfg.SoftmaxScale != 1.0 {
		t.Errorf("expected SoftmaxScale 1.0, got %v", cfg.SoftmaxScale)
	}
	if cfg.Atoms != AtomsChar {
		t.Errorf("expected char atoms, got %q", cfg.Atoms)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid config", func(*Config) {}, ""},
		{"translator", func(c *Config) { c.ModelType = ModelTranslator }, ""},
		{"unknown model", func(c *Config) { c.ModelType = "gan" }, "unknown model type"},
		{"zero embedding", func(c *Config) { c.EmbeddingSize = 0 }, "embedding_size"},
		{"negative author embedding", func(c *Config) { c.AuthorEmbeddingSize = -1 }, "author_embedding_size"},
		{"zero hidden", func(c *Config) { c.HiddenSize = 0 }, "hidden_size"},
		{"zero layers", func(c *Config) { c.Layers = 0 }, "layers"},
		{"negative encoder", func(c *Config) { c.EncoderHiddenSize = -4 }, "encoder_hidden_size"},
		{"zero vocab", func(c *Config) { c.VocabSize = 0 }, "vocab_size"},
		{"zero authors", func(c *Config) { c.NumAuthors = 0 }, "num_authors"},
		{"zero max len", func(c *Config) { c.MaxSeqLen = 0 }, "max_seq_len"},
		{"zero scale", func(c *Config) { c.SoftmaxScale = 0 }, "softmax_scale"},
		{"bad atoms", func(c *Config) { c.Atoms = "bpe" }, "atoms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEncoderFallbacks(t *testing.T) {
	cfg := validConfig()
	if cfg.EncoderHidden() != 32 || cfg.EncoderDepth() != 2 {
		t.Errorf("encoder should default to decoder sizes, got %d/%d", cfg.EncoderHidden(), cfg.EncoderDepth())
	}
	cfg.EncoderHiddenSize = 12
	cfg.EncoderLayers = 1
	if cfg.EncoderHidden() != 12 || cfg.EncoderDepth() != 1 {
		t.Errorf("explicit encoder sizes ignored, got %d/%d", cfg.EncoderHidden(), cfg.EncoderDepth())
	}
}

func TestJoiner(t *testing.T) {
	cfg := validConfig()
	if cfg.Joiner() != "" {
		t.Errorf("char joiner = %q", cfg.Joiner())
	}
	cfg.Atoms = AtomsWord
	if cfg.Joiner() != " " {
		t.Errorf("word joiner = %q", cfg.Joiner())
	}
}

func TestParseModelType(t *testing.T) {
	if mt, err := ParseModelType("Translator"); err != nil || mt != ModelTranslator {
		t.Errorf("ParseModelType(Translator) = %q, %v", mt, err)
	}
	if _, err := ParseModelType("lstm"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("QUILL_LOG_LEVEL", "debug")
	t.Setenv("QUILL_METRICS_ADDR", ":9191")
	t.Setenv("QUILL_MODELS", "/srv/quill")
	t.Setenv("QUILL_DATASET", "data.json")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", s.LogLevel)
	}
	if s.LogFormat != "console" {
		t.Errorf("LogFormat default = %q", s.LogFormat)
	}
	if s.MetricsAddr != ":9191" {
		t.Errorf("MetricsAddr = %q", s.MetricsAddr)
	}
	if s.ModelsDir != "/srv/quill" {
		t.Errorf("ModelsDir = %q", s.ModelsDir)
	}
	if s.Dataset != "data.json" {
		t.Errorf("Dataset = %q", s.Dataset)
	}
}

func TestLoadSettingsDefaultModelsDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("QUILL_MODELS", "")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.ModelsDir != filepath.Join(home, ".quill", "models") {
		t.Errorf("ModelsDir = %q", s.ModelsDir)
	}
}
