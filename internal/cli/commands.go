package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/embed"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/vectorize"
)

func newFetchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch NAME",
		Short: "Load a dataset into the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dataset(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d documents, %d distinct tokens\n", d.Name(), d.Len(), len(d.Vocabulary()))
			return nil
		},
	}
}

func newPreprocessCommand(a *app) *cobra.Command {
	var (
		modelType string
		stopwords []string
		stepArgs  []string
	)
	cmd := &cobra.Command{
		Use:   "preprocess NAME",
		Short: "Apply preprocessing steps and store the result",
		Long: `Apply preprocessing steps to a dataset. Steps already recorded for the
dataset with the same value are skipped; the result and the updated step
record are written back to the store.

Examples:
  tmcorpus preprocess BBC_News --step lowercase=true --step min_word_length=3
  tmcorpus preprocess BBC_News --model LDA --stopwords said,mr`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requested, err := parseSteps(stepArgs)
			if err != nil {
				return err
			}
			d, err := a.dataset(cmd, args[0])
			if err != nil {
				return err
			}
			sess, err := d.Preprocess(cmd.Context(), tmcorpus.Request{
				ModelType:       modelType,
				CustomStopwords: stopwords,
				Steps:           requested,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !sess.Executed {
				fmt.Fprintf(out, "%s: all requested steps already applied\n", d.Name())
				return nil
			}
			if err := d.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: applied %s to %d documents in %s\n",
				d.Name(), strings.Join(sess.Effective.Pending().Names(), ", "), d.Len(), sess.Duration)
			return nil
		},
	}
	cmd.Flags().StringVar(&modelType, "model", "", "apply the preset steps of a topic model type")
	cmd.Flags().StringSliceVar(&stopwords, "stopwords", nil, "additional stopwords to remove")
	cmd.Flags().StringArrayVar(&stepArgs, "step", nil, "step to apply as name=value (repeatable)")
	return cmd
}

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info NAME",
		Short: "Print the step record of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dataset(cmd, args[0])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(d.Info())
		},
	}
}

func newVectorizeCommand(a *app) *cobra.Command {
	var (
		kind string
		opts vectorize.Options
		top  int
	)
	cmd := &cobra.Command{
		Use:   "vectorize NAME",
		Short: "Build the bag-of-words or TF-IDF matrix of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dataset(cmd, args[0])
			if err != nil {
				return err
			}
			var m vectorize.Matrix
			switch kind {
			case tmcorpus.FeatureBOW:
				m, err = d.BOW(opts)
			case tmcorpus.FeatureTFIDF:
				m, err = d.TFIDF(opts)
			default:
				return fmt.Errorf("unknown matrix kind %q, use bow or tfidf", kind)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s: %d documents x %d features\n", d.Name(), kind, len(m.Rows), len(m.Features))
			if top > 0 {
				n := min(top, len(m.Features))
				fmt.Fprintf(out, "features: %s\n", strings.Join(m.Features[:n], " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", tmcorpus.FeatureBOW, "matrix kind: bow or tfidf")
	cmd.Flags().IntVar(&opts.MinDF, "min-df", 1, "minimum document frequency")
	cmd.Flags().Float64Var(&opts.MaxDF, "max-df", 1, "maximum document frequency as a fraction")
	cmd.Flags().IntVar(&opts.MaxFeatures, "max-features", 0, "keep only the most frequent terms")
	cmd.Flags().IntVar(&top, "show", 0, "print the first N feature names")
	return cmd
}

func newEmbedCommand(a *app) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "embed NAME",
		Short: "Compute and cache word embeddings for the dataset vocabulary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dataset(cmd, args[0])
			if err != nil {
				return err
			}
			cached, err := d.HasWordEmbeddings(cmd.Context(), model)
			if err != nil {
				return err
			}
			vectors, err := d.WordEmbeddings(cmd.Context(), model, nil)
			if err != nil {
				return err
			}
			state := "computed"
			if cached {
				state = "cached"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d of %d words embedded (%s)\n",
				d.Name(), model, len(vectors), len(d.Vocabulary()), state)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", embed.DefaultModel, "embedding model: "+strings.Join(embed.Models, ", "))
	return cmd
}

func newSaveCommand(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Export a dataset to a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dataset(cmd, args[0])
			if err != nil {
				return err
			}
			if dir == "" {
				dir = a.cfg.DatasetDir()
			}
			if err := d.Export(dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: saved %d documents to %s\n", d.Name(), d.Len(), dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default <data_home>/preprocessed_datasets)")
	return cmd
}
