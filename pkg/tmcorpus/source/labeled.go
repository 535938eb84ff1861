package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store"
)

// LabeledDirs reads a tree of `<Root>/<dataset>/<label>/*.txt` documents;
// each sub-directory name becomes the label of the files inside it.
type LabeledDirs struct {
	Root     string
	Language string
	Logger   *zap.Logger
}

// Load implements Source.
func (l LabeledDirs) Load(ctx context.Context, name string) (*Raw, error) {
	log := logger(l.Logger)
	dir := filepath.Join(l.Root, DirName(name))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &internalerr.NotFoundError{Name: name, Tried: []string{dir}}
		}
		return nil, err
	}

	var (
		docs   []store.Doc
		labels = make(map[string]struct{})
		failed int
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		label := entry.Name()
		files, err := filepath.Glob(filepath.Join(dir, label, "*.txt"))
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				log.Error("read document", zap.String("path", path), zap.Error(err))
				failed++
				continue
			}
			text := strings.TrimSpace(string(data))
			if text == "" {
				continue
			}
			docs = append(docs, store.Doc{Text: text, Label: label})
			labels[label] = struct{}{}
		}
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no text files under %s: %w", dir, internalerr.ErrInvalidInput)
	}
	log.Info("loaded labeled directories",
		zap.String("path", dir),
		zap.Int("documents", len(docs)),
		zap.Int("labels", len(labels)),
		zap.Int("errors", failed),
	)

	lang := l.Language
	if lang == "" {
		lang = "en"
	}
	return &Raw{
		Docs:     docs,
		Info:     &store.Info{Name: name, Language: lang, PreprocessingSteps: map[string]any{}},
		Location: dir,
	}, nil
}
