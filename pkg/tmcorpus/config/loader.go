package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/stoplist"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/textprep"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	Config *Config
	Logger *zap.Logger
}

// Components holds all loaded configuration components
type Components struct {
	Preprocessor *textprep.Selector
	ModelSteps   ModelSteps
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	cfg := l.Config
	if cfg == nil {
		return nil, fmt.Errorf("config: loader has no config")
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sel, err := textprep.NewSelector(cfg.Preprocessors.Languages, cfg.Preprocessors.Default, logger)
	if err != nil {
		return nil, fmt.Errorf("build preprocessors: %w", err)
	}

	// Stoplist files replace the built-in lists of their language
	for lang, path := range cfg.Stoplists {
		sl, err := LoadStoplist(path)
		if err != nil {
			return nil, fmt.Errorf("load stoplist %s: %w", lang, err)
		}
		sel.SetStoplist(lang, stoplist.NewManager(sl.Terms))
		logger.Debug("loaded stoplist", zap.String("language", lang), zap.String("path", path), zap.Int("terms", len(sl.Terms)))
	}

	presets, err := LoadModelSteps(cfg.ModelSteps)
	if err != nil {
		return nil, fmt.Errorf("load model steps: %w", err)
	}

	return &Components{Preprocessor: sel, ModelSteps: presets}, nil
}
