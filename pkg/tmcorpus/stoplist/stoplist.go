package stoplist

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lists/*.yaml
var builtin embed.FS

// Manager holds a stopword set
type Manager struct {
	stops map[string]struct{}
}

// NewManager creates a new stoplist manager
func NewManager(initialStops []string) *Manager {
	m := &Manager{stops: make(map[string]struct{}, len(initialStops))}
	for _, s := range initialStops {
		m.Add(s)
	}
	return m
}

// ForLanguage returns the built-in stoplist for an ISO 639-1 language code.
// Languages without a built-in list get an empty manager.
func ForLanguage(lang string) (*Manager, error) {
	data, err := builtin.ReadFile(path.Join("lists", strings.ToLower(lang)+".yaml"))
	if err != nil {
		return NewManager(nil), nil
	}
	terms, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("stoplist %s: %w", lang, err)
	}
	return NewManager(terms), nil
}

// Languages lists the languages with a built-in stoplist.
func Languages() []string {
	entries, _ := builtin.ReadDir("lists")
	langs := make([]string, 0, len(entries))
	for _, e := range entries {
		langs = append(langs, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(langs)
	return langs
}

// Parse decodes a stoplist YAML document of the form `terms: [...]`.
func Parse(data []byte) ([]string, error) {
	var sl struct {
		Terms []string `yaml:"terms"`
	}
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}
	return sl.Terms, nil
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[strings.ToLower(token)]
	return ok
}

// Add adds a token to the stoplist
func (m *Manager) Add(token string) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return
	}
	m.stops[token] = struct{}{}
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, strings.ToLower(token))
}

// With returns a copy extended with extra terms.
func (m *Manager) With(extra []string) *Manager {
	out := NewManager(nil)
	for s := range m.stops {
		out.stops[s] = struct{}{}
	}
	for _, s := range extra {
		out.Add(s)
	}
	return out
}

// Len returns the number of stopwords.
func (m *Manager) Len() int { return len(m.stops) }

// All returns all stopwords, sorted
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}
