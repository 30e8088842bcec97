package config

import (
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "QUILL"

// Settings are process-level knobs read from QUILL_* environment variables.
// Command-line flags take precedence over them.
type Settings struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"console"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	ModelsDir   string `envconfig:"MODELS"`
	Dataset     string `envconfig:"DATASET"`
}

func LoadSettings() (Settings, error) {
	var s Settings
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return s, err
	}
	if s.ModelsDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			s.ModelsDir = filepath.Join(home, ".quill", "models")
		}
	}
	return s, nil
}
