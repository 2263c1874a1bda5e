package classifier

import (
	"fmt"
	"math"
	"sort"

	"github.com/xaenox/sentia/internal/models"
)

const summaryTemplate = "Análisis de texto con modelo %s. Principal: %s."

// Rank orders the labels by descending probability. Equal probabilities keep
// the declared order of models.Labels, so negativo wins a tie against neutro
// and neutro against positivo.
func Rank(d models.Distribution) [3]models.Emotion {
	idx := []int{0, 1, 2}
	sort.SliceStable(idx, func(a, b int) bool {
		return d[idx[a]] > d[idx[b]]
	})
	var out [3]models.Emotion
	for i, j := range idx {
		out[i] = models.Labels[j]
	}
	return out
}

// Decide derives the primary and secondary emotion and the summary stored
// for a report. An empty modelID means the local model.
func Decide(d models.Distribution, modelID string) models.ClassificationResult {
	if modelID == "" {
		modelID = LocalModelID
	}
	ranked := Rank(d)
	return models.ClassificationResult{
		Primary:   ranked[0],
		Secondary: ranked[1],
		Summary:   fmt.Sprintf(summaryTemplate, modelName(modelID), ranked[0]),
		Model:     modelID,
	}
}

func modelName(modelID string) string {
	if modelID == LocalModelID {
		return "LSTM"
	}
	return modelID
}

// ParseDistribution validates a label -> probability map received from a
// client or an external model. It must carry exactly the three labels with
// finite, non-negative values and a positive sum; the result is rescaled to
// sum to 1.
func ParseDistribution(m map[string]float64) (models.Distribution, error) {
	var d models.Distribution
	if len(m) != len(models.Labels) {
		return d, fmt.Errorf("%w: expected %d emotions, got %d", ErrInputType, len(models.Labels), len(m))
	}
	for i, l := range models.Labels {
		p, ok := m[string(l)]
		if !ok {
			return d, fmt.Errorf("%w: missing emotion %q", ErrInputType, l)
		}
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return d, fmt.Errorf("%w: invalid probability %v for %q", ErrInputType, p, l)
		}
		d[i] = p
	}

	var sum float64
	for _, p := range d {
		sum += p
	}
	if sum <= 0 || math.IsInf(sum, 0) {
		return models.Distribution{}, fmt.Errorf("%w: probabilities sum to %v", ErrInputType, sum)
	}
	for i := range d {
		d[i] /= sum
	}
	return d, nil
}
