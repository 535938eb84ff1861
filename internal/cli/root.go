// Package cli implements the tmcorpus command line.
package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/tmcorpus/internal/llm"
	"github.com/cognicore/tmcorpus/internal/logger"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/config"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/embed"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/source"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store/sqlite"
)

// app carries the state shared by the sub-commands of one invocation.
type app struct {
	cfgFile  string
	debug    bool
	language string

	// fetch source selection
	path    string
	labeled string
	remote  bool

	cfg        *config.Config
	log        *zap.Logger
	store      store.Store
	components *config.Components
}

// NewRootCommand builds the tmcorpus command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "tmcorpus",
		Short:         "Fetch and preprocess topic-modeling corpora",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default .tmcorpus.yaml in the working or home directory)")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	flags.StringVar(&a.language, "language", "", "dataset language (overrides config)")
	flags.StringVar(&a.path, "path", "", "directory holding <name>.jsonl and <name>_info.yaml")
	flags.StringVar(&a.labeled, "labeled", "", "root of <name>/<label>/*.txt document trees")
	flags.BoolVar(&a.remote, "remote", false, "download the dataset from the configured mirror")

	root.AddCommand(
		newFetchCommand(a),
		newPreprocessCommand(a),
		newInfoCommand(a),
		newVectorizeCommand(a),
		newEmbedCommand(a),
		newSaveCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.language != "" {
		cfg.Language = a.language
	}
	a.cfg = cfg

	if a.log, err = logger.NewLogger(a.debug || cfg.Debug); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if a.components, err = (&config.Loader{Config: cfg, Logger: a.log}).Load(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if a.store, err = sqlite.OpenSQLite(cmd.Context(), cfg.StorePath); err != nil {
		return err
	}
	return nil
}

func (a *app) teardown() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// source returns the dataset source selected by the flags, fronted by the
// store cache.
func (a *app) source() source.Source {
	var next source.Source
	switch {
	case a.labeled != "":
		next = source.LabeledDirs{Root: a.labeled, Language: a.cfg.Language, Logger: a.log}
	case a.remote:
		next = source.Remote{
			BaseURL:    a.cfg.Remote.BaseURL,
			CacheDir:   a.cfg.CacheDir(),
			HTTPClient: &http.Client{Timeout: a.cfg.Remote.Timeout},
			Logger:     a.log,
		}
	default:
		var candidates []string
		if a.path != "" {
			candidates = append(candidates, a.path)
		}
		candidates = append(candidates, a.cfg.DatasetDir(), filepath.Join("data", "preprocessed_datasets"))
		next = source.Probe{
			Candidates: candidates,
			Open:       func(dir string) source.Source { return source.Folder{Dir: dir, Logger: a.log} },
			Logger:     a.log,
		}
	}
	return source.Cached{Store: a.store, Next: next, Logger: a.log}
}

func (a *app) embedders() map[string]embed.WordEmbedder {
	out := make(map[string]embed.WordEmbedder)
	e := a.cfg.Embeddings
	if e.GloVePath != "" {
		out[embed.ModelGloVe] = embed.NewGloVe(e.GloVePath)
	}
	if e.BaseURL != "" {
		model := e.Model
		if model == "" {
			model = embed.ModelMiniLM
		}
		out[embed.ModelMiniLM] = embed.Remote{Client: &llm.EmbeddingClient{
			BaseURL:   e.BaseURL,
			APIKey:    e.APIKey,
			Model:     model,
			BatchSize: e.BatchSize,
		}}
	}
	return out
}

// dataset fetches name into a new Dataset bound to the shared store.
func (a *app) dataset(cmd *cobra.Command, name string) (*tmcorpus.Dataset, error) {
	d := tmcorpus.New(tmcorpus.Options{
		Name:         name,
		Language:     a.language,
		Store:        a.store,
		Preprocessor: a.components.Preprocessor,
		ModelSteps:   a.components.ModelSteps,
		Embedders:    a.embedders(),
		Logger:       a.log,
	})
	if err := d.Fetch(cmd.Context(), name, a.source()); err != nil {
		return nil, err
	}
	return d, nil
}
