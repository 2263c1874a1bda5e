package classifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/xaenox/sentia/internal/models"
	"github.com/xaenox/sentia/internal/textproc"
	"go.uber.org/zap"
)

// LSTMClassifier is a trained model together with the vocabulary it was
// trained on. Its parameters never change after Train returns, so it is safe
// for concurrent use.
type LSTMClassifier struct {
	net      *network
	pipeline textproc.Pipeline
	modelID  string
	report   TrainingReport
	pool     *ants.Pool
	logger   *zap.Logger
}

func newLSTMClassifier(net *network, pipeline textproc.Pipeline, cfg Config, report TrainingReport, logger *zap.Logger) (*LSTMClassifier, error) {
	c := &LSTMClassifier{
		net:      net,
		pipeline: pipeline,
		modelID:  cfg.ModelID,
		report:   report,
		logger:   logger,
	}
	if cfg.Workers > 1 {
		pool, err := ants.NewPool(cfg.Workers)
		if err != nil {
			return nil, fmt.Errorf("%w: worker pool: %v", ErrInitialization, err)
		}
		c.pool = pool
	}
	return c, nil
}

// ModelID identifies the model in stored results.
func (c *LSTMClassifier) ModelID() string {
	return c.modelID
}

// Report returns the statistics of the training run.
func (c *LSTMClassifier) Report() TrainingReport {
	return c.report
}

// VocabularySize is the number of words learned from the corpus.
func (c *LSTMClassifier) VocabularySize() int {
	return c.pipeline.Vocab.Len()
}

// Encode normalizes, tokenizes and pads raw text the way inference does.
func (c *LSTMClassifier) Encode(raw string) []int {
	return c.pipeline.Encode(raw)
}

// Predict runs a forward pass over an already encoded sequence.
func (c *LSTMClassifier) Predict(encoded []int) models.Distribution {
	var d models.Distribution
	copy(d[:], c.net.forward(encoded, nil, nil))
	return d
}

// Classify returns the distribution for a single input.
func (c *LSTMClassifier) Classify(_ context.Context, in Input) (models.Distribution, error) {
	text, err := in.Text()
	if err != nil {
		return models.Distribution{}, err
	}
	return c.Predict(c.Encode(text)), nil
}

// ClassifyBatch classifies inputs concurrently on the worker pool. Results
// keep the input order. Every input is validated before any work starts.
func (c *LSTMClassifier) ClassifyBatch(ctx context.Context, inputs []Input) ([]models.Distribution, error) {
	texts := make([]string, len(inputs))
	for i, in := range inputs {
		text, err := in.Text()
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		texts[i] = text
	}

	out := make([]models.Distribution, len(texts))
	if c.pool == nil {
		for i, text := range texts {
			out[i] = c.Predict(c.Encode(text))
		}
		return out, nil
	}

	var wg sync.WaitGroup
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		i, text := i, text
		if err := c.pool.Submit(func() {
			defer wg.Done()
			out[i] = c.Predict(c.Encode(text))
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit input %d: %w", i, err)
		}
	}
	wg.Wait()
	return out, nil
}

// Close releases the worker pool.
func (c *LSTMClassifier) Close() {
	if c.pool != nil {
		c.pool.Release()
	}
}
