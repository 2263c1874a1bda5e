package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/xaenox/sentia/internal/models"
	"github.com/xaenox/sentia/internal/textproc"
	"go.uber.org/zap"
)

// LocalModelID identifies the built-in LSTM model in stored results.
const LocalModelID = "ia_propia"

// Config holds the vocabulary, network and training hyperparameters.
type Config struct {
	MaxWords         int
	MaxLen           int
	EmbeddingDim     int
	Units            int
	DenseUnits       int
	Dropout          float64
	RecurrentDropout float64
	DenseDropout     float64
	Epochs           int
	BatchSize        int
	ValidationSplit  float64
	LearningRate     float64
	Seed             int64
	ModelID          string
	Workers          int
}

// DefaultConfig returns the reference hyperparameters.
func DefaultConfig() Config {
	return Config{
		MaxWords:         5000,
		MaxLen:           20,
		EmbeddingDim:     64,
		Units:            64,
		DenseUnits:       32,
		Dropout:          0.3,
		RecurrentDropout: 0.3,
		DenseDropout:     0.3,
		Epochs:           10,
		BatchSize:        2,
		ValidationSplit:  0.2,
		LearningRate:     0.001,
		Seed:             42,
		ModelID:          LocalModelID,
		Workers:          4,
	}
}

func (c Config) validate() error {
	switch {
	case c.MaxWords < 2:
		return fmt.Errorf("max words must be at least 2, got %d", c.MaxWords)
	case c.MaxLen <= 0, c.EmbeddingDim <= 0, c.Units <= 0, c.DenseUnits <= 0:
		return fmt.Errorf("sequence length and layer sizes must be positive")
	case c.Epochs <= 0 || c.BatchSize <= 0:
		return fmt.Errorf("epochs and batch size must be positive")
	case c.LearningRate <= 0:
		return fmt.Errorf("learning rate must be positive")
	case c.ValidationSplit <= 0 || c.ValidationSplit >= 1:
		return fmt.Errorf("validation split must be in (0, 1), got %v", c.ValidationSplit)
	}
	for _, rate := range []float64{c.Dropout, c.RecurrentDropout, c.DenseDropout} {
		if rate < 0 || rate >= 1 {
			return fmt.Errorf("dropout must be in [0, 1), got %v", rate)
		}
	}
	return nil
}

// TrainingReport summarises a finished training run.
type TrainingReport struct {
	TrainSize          int
	ValidationSize     int
	VocabularySize     int
	TrainLoss          float64
	TrainAccuracy      float64
	ValidationLoss     float64
	ValidationAccuracy float64
	Elapsed            time.Duration
}

// Train cleans the corpus, fits the vocabulary and trains the network. It is
// deterministic for a given corpus and cfg.Seed. Any problem with the corpus
// or a non-finite result is reported as ErrInitialization.
func Train(ctx context.Context, corpus []Example, cfg Config, logger *zap.Logger) (*LSTMClassifier, error) {
	start := time.Now()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
	}
	if cfg.ModelID == "" {
		cfg.ModelID = LocalModelID
	}

	labels := make([]int, len(corpus))
	cleaned := make([]string, len(corpus))
	for i, ex := range corpus {
		labels[i] = models.LabelIndex(ex.Label)
		if labels[i] < 0 {
			return nil, fmt.Errorf("%w: example %d has unknown label %q", ErrInitialization, i, ex.Label)
		}
		cleaned[i] = textproc.Normalize(ex.Text)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	trainIdx, valIdx, err := stratifiedSplit(labels, len(models.Labels), cfg.ValidationSplit, rng)
	if err != nil {
		return nil, err
	}

	vocab := textproc.Fit(cleaned, cfg.MaxWords)
	pipeline := textproc.Pipeline{Vocab: vocab, MaxLen: cfg.MaxLen}
	encoded := make([][]int, len(cleaned))
	for i, text := range cleaned {
		encoded[i] = textproc.Pad(vocab.Encode(text), cfg.MaxLen)
	}

	net := newNetwork(vocab.MaxWords(), cfg.EmbeddingDim, cfg.Units, cfg.DenseUnits, len(models.Labels), rng)
	opt := newAdam(cfg.LearningRate)
	params := net.params()

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		order := rng.Perm(len(trainIdx))
		var epochLoss float64
		var correct int
		for b := 0; b < len(order); b += cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
			}
			end := min(b+cfg.BatchSize, len(order))
			for _, o := range order[b:end] {
				i := trainIdx[o]
				mk := net.sampleMasks(cfg, rng)
				tr := &trace{}
				probs := net.forward(encoded[i], mk, tr)
				epochLoss += crossEntropy(probs, labels[i])
				if argmax(probs) == labels[i] {
					correct++
				}
				net.backward(tr, mk, labels[i])
			}
			opt.step(params, 1/float64(end-b))
		}
		logger.Debug("Training epoch finished",
			zap.Int("epoch", epoch),
			zap.Float64("loss", epochLoss/float64(len(trainIdx))),
			zap.Float64("accuracy", float64(correct)/float64(len(trainIdx))))
	}

	report := TrainingReport{
		TrainSize:      len(trainIdx),
		ValidationSize: len(valIdx),
		VocabularySize: vocab.Len(),
	}
	report.TrainLoss, report.TrainAccuracy = evaluate(net, encoded, labels, trainIdx)
	report.ValidationLoss, report.ValidationAccuracy = evaluate(net, encoded, labels, valIdx)
	report.Elapsed = time.Since(start)

	if !isFinite(report.TrainLoss) || !isFinite(report.ValidationLoss) {
		return nil, fmt.Errorf("%w: training produced non-finite loss", ErrInitialization)
	}

	logger.Info("Classifier trained",
		zap.String("model", cfg.ModelID),
		zap.Int("examples", len(corpus)),
		zap.Int("vocabulary", report.VocabularySize),
		zap.Float64("train_loss", report.TrainLoss),
		zap.Float64("train_accuracy", report.TrainAccuracy),
		zap.Float64("validation_loss", report.ValidationLoss),
		zap.Float64("validation_accuracy", report.ValidationAccuracy),
		zap.Duration("elapsed", report.Elapsed))

	return newLSTMClassifier(net, pipeline, cfg, report, logger)
}

// stratifiedSplit holds out ceil(n*fraction) examples in total, shared
// between classes in proportion to their size: every class gets the floor of
// its share and the leftover slots go to the largest remainders, earlier
// labels first on ties. Every class keeps at least one example on each side.
func stratifiedSplit(labels []int, classes int, fraction float64, rng *rand.Rand) (train, val []int, err error) {
	byClass := make([][]int, classes)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	for class, idx := range byClass {
		if len(idx) < 2 {
			return nil, nil, fmt.Errorf("%w: label %q has %d examples, a stratified split needs at least 2",
				ErrInitialization, models.Labels[class], len(idx))
		}
	}

	n := len(labels)
	total := int(math.Ceil(float64(n)*fraction - 1e-9))
	total = max(classes, min(total, n-classes))

	counts := make([]int, classes)
	remainders := make([]int, classes)
	order := make([]int, classes)
	assigned := 0
	for class, idx := range byClass {
		counts[class] = len(idx) * total / n
		remainders[class] = len(idx) * total % n
		order[class] = class
		assigned += counts[class]
	}
	sort.SliceStable(order, func(i, j int) bool {
		return remainders[order[i]] > remainders[order[j]]
	})
	for _, class := range order[:total-assigned] {
		counts[class]++
	}

	for class, idx := range byClass {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		k := max(1, min(counts[class], len(idx)-1))
		val = append(val, idx[:k]...)
		train = append(train, idx[k:]...)
	}
	return train, val, nil
}

func evaluate(net *network, encoded [][]int, labels []int, idx []int) (loss, accuracy float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	var correct int
	for _, i := range idx {
		probs := net.forward(encoded[i], nil, nil)
		loss += crossEntropy(probs, labels[i])
		if argmax(probs) == labels[i] {
			correct++
		}
	}
	return loss / float64(len(idx)), float64(correct) / float64(len(idx))
}

func crossEntropy(probs []float64, label int) float64 {
	return -math.Log(math.Max(probs[label], 1e-12))
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
