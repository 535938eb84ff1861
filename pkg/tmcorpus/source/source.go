// Package source loads raw datasets from folders, labeled directory trees,
// remote mirrors and the dataset cache.
package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store"
)

// InfoSuffix is appended to a dataset name to form its step record file name.
const InfoSuffix = "_info.yaml"

// DataSuffix is appended to a dataset name to form its document file name.
const DataSuffix = ".jsonl"

// Available maps the published dataset names to their folder names.
var Available = map[string]string{
	"BBC_News":     "bbc_news",
	"20NewsGroups": "20newsgroups",
	"Arabic_News":  "Arabiya",
}

// DirName returns the folder name of a dataset.
func DirName(name string) string {
	if dir, ok := Available[name]; ok {
		return dir
	}
	return name
}

// Raw is a dataset as read from a source.
type Raw struct {
	Docs     []store.Doc
	Info     *store.Info // nil when the source has no step record
	Location string
}

// Source loads a raw dataset by name.
type Source interface {
	Load(ctx context.Context, name string) (*Raw, error)
}

// Folder reads `<Dir>/<name>.jsonl` and the optional `<Dir>/<name>_info.yaml`.
type Folder struct {
	Dir    string
	Logger *zap.Logger
}

// Load implements Source.
func (f Folder) Load(ctx context.Context, name string) (*Raw, error) {
	dataPath := filepath.Join(f.Dir, name+DataSuffix)
	docs, err := readJSONL(dataPath, logger(f.Logger))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &internalerr.NotFoundError{Name: name, Tried: []string{dataPath}}
	}
	if err != nil {
		return nil, err
	}

	raw := &Raw{Docs: docs, Location: f.Dir}
	info, err := ReadInfo(filepath.Join(f.Dir, name+InfoSuffix))
	switch {
	case err == nil:
		raw.Info = info
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}
	return raw, nil
}

// ReadInfo decodes a step record file.
func ReadInfo(path string) (*store.Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info store.Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if info.PreprocessingSteps == nil {
		info.PreprocessingSteps = map[string]any{}
	}
	return &info, nil
}

// WriteFolder writes docs and info in the layout Folder reads, creating dir.
func WriteFolder(dir, name string, docs []store.Doc, info store.Info) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	var buf strings.Builder
	for _, d := range docs {
		line, err := json.Marshal(d)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, name+DataSuffix), []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write documents: %w", err)
	}

	data, err := yaml.Marshal(info)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, name+InfoSuffix), data, 0o644); err != nil {
		return fmt.Errorf("write info: %w", err)
	}
	return nil
}

// readJSONL loads documents from a JSONL file, skipping malformed lines
func readJSONL(path string, log *zap.Logger) ([]store.Doc, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var docs []store.Doc
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var doc store.Doc
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			log.Warn("skipping malformed JSON line", zap.String("path", path), zap.Int("line", line), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return docs, nil
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
