package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xaenox/sentia/internal/classifier"
	"github.com/xaenox/sentia/internal/models"
)

type classification struct {
	Text     string                      `json:"texto"`
	Source   string                      `json:"source"`
	Emotions map[string]float64          `json:"emotions"`
	Result   models.ClassificationResult `json:"resultado"`
}

func newClassifyCmd(opts *options) *cobra.Command {
	var external bool
	cmd := &cobra.Command{
		Use:   "classify TEXT...",
		Short: "Train the model and print the emotions of each argument as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()

			local, err := classifier.Train(ctx, classifier.SeedCorpus(), cfg.Classifier.Model(), logger)
			if err != nil {
				return err
			}
			defer local.Close()

			var model classifier.Classifier = local
			if external {
				model = externalClassifier(cfg.OpenAI, local, logger)
				if model == nil {
					return fmt.Errorf("%w: openai.api_key is not set", classifier.ErrUnavailable)
				}
			}

			out := make([]classification, 0, len(args))
			for _, text := range args {
				dist, source, err := classifier.ClassifyWithSource(ctx, model, classifier.RawText(text))
				if err != nil {
					return fmt.Errorf("classify %q: %w", text, err)
				}
				out = append(out, classification{
					Text:     text,
					Source:   source,
					Emotions: dist.Map(),
					Result:   classifier.Decide(dist, source),
				})
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&external, "external", false, "Use the external model instead of the local LSTM")
	return cmd
}
