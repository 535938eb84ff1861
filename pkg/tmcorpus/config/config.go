// Package config loads tmcorpus settings and the YAML resource files the
// preprocessing components are built from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
)

// EnvPrefix prefixes environment overrides, e.g. TMCORPUS_DATA_HOME.
const EnvPrefix = "TMCORPUS"

// Config holds the settings shared by the library facade and the CLI.
type Config struct {
	DataHome  string `mapstructure:"data_home"`
	Language  string `mapstructure:"language"`
	StorePath string `mapstructure:"store_path"`
	Debug     bool   `mapstructure:"debug"`

	Remote        RemoteConfig      `mapstructure:"remote"`
	Preprocessors PreprocessorMap   `mapstructure:"preprocessors"`
	Stoplists     map[string]string `mapstructure:"stoplists"` // language -> YAML stoplist path
	ModelSteps    string            `mapstructure:"model_steps"`
	Embeddings    EmbeddingConfig   `mapstructure:"embeddings"`
}

// RemoteConfig points at the published dataset mirror.
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PreprocessorMap selects a preprocessor variant per language.
type PreprocessorMap struct {
	Default   string            `mapstructure:"default"`
	Languages map[string]string `mapstructure:"languages"`
}

// EmbeddingConfig configures the word embedders.
type EmbeddingConfig struct {
	GloVePath string `mapstructure:"glove_path"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	BatchSize int    `mapstructure:"batch_size"`
}

// DatasetDir is where preprocessed datasets are kept.
func (c *Config) DatasetDir() string {
	return filepath.Join(c.DataHome, "preprocessed_datasets")
}

// CacheDir is where downloaded datasets are mirrored.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataHome, "cache")
}

// Load reads the config file at path, or `.tmcorpus.yaml` in the home or
// working directory when path is empty. A missing default file is not an
// error; environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(".tmcorpus")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(cfg.DataHome, "tmcorpus.db")
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DataHome == "" {
		return fmt.Errorf("data_home must be set: %w", internalerr.ErrInvalidConfig)
	}
	if c.Language == "" {
		return fmt.Errorf("language must be set: %w", internalerr.ErrInvalidConfig)
	}
	if c.Embeddings.BatchSize < 0 {
		return fmt.Errorf("embeddings.batch_size must not be negative: %w", internalerr.ErrInvalidConfig)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_home", defaultDataHome())
	v.SetDefault("language", "en")
	v.SetDefault("store_path", "")
	v.SetDefault("debug", false)

	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.timeout", 60*time.Second)

	v.SetDefault("preprocessors.default", "text")
	v.SetDefault("preprocessors.languages", map[string]string{"ar": "arabic"})
	v.SetDefault("stoplists", map[string]string{})
	v.SetDefault("model_steps", "")

	v.SetDefault("embeddings.glove_path", "")
	v.SetDefault("embeddings.base_url", "")
	v.SetDefault("embeddings.api_key", "")
	v.SetDefault("embeddings.model", "")
	v.SetDefault("embeddings.batch_size", 256)
}

func defaultDataHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tmcorpus_data"
	}
	return filepath.Join(home, "tmcorpus_data")
}
