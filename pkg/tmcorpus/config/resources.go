package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/steps"
)

//go:embed model_steps.yaml
var defaultModelSteps []byte

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("parse stoplist %s: %w", path, err)
	}
	return &sl, nil
}

// ModelSteps maps a topic model type to the preprocessing steps it expects.
type ModelSteps map[string]steps.Set

// LoadModelSteps reads model presets from a YAML file. An empty path loads
// the built-in presets.
func LoadModelSteps(path string) (ModelSteps, error) {
	data := defaultModelSteps
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	return ParseModelSteps(data)
}

// ParseModelSteps decodes `models: {<type>: {<step>: <value>}}`.
func ParseModelSteps(data []byte) (ModelSteps, error) {
	var doc struct {
		Models map[string]map[string]any `yaml:"models"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse model steps: %w", err)
	}
	out := make(ModelSteps, len(doc.Models))
	for model, set := range doc.Models {
		if len(set) == 0 {
			return nil, fmt.Errorf("model %s has no steps: %w", model, internalerr.ErrInvalidConfig)
		}
		preset := make(steps.Set, len(set))
		for name, value := range set {
			preset[name] = steps.Normalize(value)
		}
		out[model] = preset
	}
	return out, nil
}

// For returns a copy of the steps for modelType.
func (m ModelSteps) For(modelType string) (steps.Set, error) {
	set, ok := m[modelType]
	if !ok {
		return nil, fmt.Errorf("unknown model type %q (known: %v): %w", modelType, m.Types(), internalerr.ErrInvalidInput)
	}
	return set.Clone(), nil
}

// Types lists the known model types, sorted.
func (m ModelSteps) Types() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
