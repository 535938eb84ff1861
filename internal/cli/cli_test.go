package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/source"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store"
)

type fixture struct {
	home    string
	cfgPath string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	home := t.TempDir()
	cfgPath := filepath.Join(home, "tmcorpus.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data_home: "+home+"\n"), 0o644))

	docs := []store.Doc{{Text: "Hello World", Label: "a"}, {Text: "FOO bar", Label: "b"}}
	info := store.Info{Name: "demo", Language: "en", PreprocessingSteps: map[string]any{}}
	require.NoError(t, source.WriteFolder(filepath.Join(home, "preprocessed_datasets"), "demo", docs, info))
	return fixture{home: home, cfgPath: cfgPath}
}

func (f fixture) run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand("test")
	root.SetOut(&out)
	root.SetArgs(append([]string{"--config", f.cfgPath}, args...))
	require.NoError(t, root.Execute())
	return out.String()
}

func TestPreprocessPersistsSteps(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, "preprocess", "demo", "--step", "lowercase=true")
	assert.Contains(t, out, "applied lowercase to 2 documents")

	out = f.run(t, "info", "demo")
	assert.Contains(t, out, "name: demo")
	assert.Contains(t, out, "lowercase: true")

	out = f.run(t, "preprocess", "demo", "--step", "lowercase=true")
	assert.Contains(t, out, "all requested steps already applied")
}

func TestVectorizeAndSave(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, "vectorize", "demo", "--kind", "tfidf", "--show", "2")
	assert.Contains(t, out, "demo tfidf: 2 documents x 4 features")
	assert.Contains(t, out, "features: bar foo")

	dir := filepath.Join(f.home, "export")
	out = f.run(t, "save", "demo", "--dir", dir)
	assert.Contains(t, out, "saved 2 documents")
	assert.FileExists(t, filepath.Join(dir, "demo.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "demo_info.yaml"))
}

func TestUnknownDatasetFails(t *testing.T) {
	f := newFixture(t)

	root := NewRootCommand("test")
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", f.cfgPath, "fetch", "missing"})
	require.Error(t, root.Execute())
}
