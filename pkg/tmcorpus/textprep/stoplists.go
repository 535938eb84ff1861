package textprep

import (
	"strings"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/stoplist"
)

// stopSource resolves the base stopword list of a language. Lists installed
// with SetStoplist replace the built-in ones.
type stopSource struct {
	overrides map[string]*stoplist.Manager
}

// SetStoplist replaces the built-in stopword list of language.
func (s *stopSource) SetStoplist(language string, m *stoplist.Manager) {
	if s.overrides == nil {
		s.overrides = make(map[string]*stoplist.Manager)
	}
	s.overrides[strings.ToLower(language)] = m
}

func (s *stopSource) base(language string) (*stoplist.Manager, error) {
	if m, ok := s.overrides[strings.ToLower(language)]; ok {
		return m, nil
	}
	return stoplist.ForLanguage(language)
}
