// Package classifier turns employee self-reports into a negativo / neutro /
// positivo distribution and derives the labels stored for a report.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/sentia/internal/models"
)

var (
	// ErrInputType is returned for inputs that are neither raw text nor a
	// structured self-report.
	ErrInputType = errors.New("classifier: unsupported input type")
	// ErrInitialization means the classifier could not be built; callers
	// must not serve requests.
	ErrInitialization = errors.New("classifier: initialization failed")
	// ErrUnavailable is returned when an external model cannot answer and no
	// fallback is configured.
	ErrUnavailable = errors.New("classifier: model unavailable")
)

// Classifier produces an emotion distribution for one input.
type Classifier interface {
	Classify(ctx context.Context, in Input) (models.Distribution, error)
	ModelID() string
}

// SourceClassifier is implemented by classifiers that may hand an input to
// another model. The returned id names the model that produced the
// distribution.
type SourceClassifier interface {
	Classifier
	ClassifyWithSource(ctx context.Context, in Input) (models.Distribution, string, error)
}

// ClassifyWithSource classifies in with c and returns the id of the model
// that answered, which is c.ModelID() unless c fell back to another model.
func ClassifyWithSource(ctx context.Context, c Classifier, in Input) (models.Distribution, string, error) {
	if sc, ok := c.(SourceClassifier); ok {
		return sc.ClassifyWithSource(ctx, in)
	}
	dist, err := c.Classify(ctx, in)
	if err != nil {
		return models.Distribution{}, "", err
	}
	return dist, c.ModelID(), nil
}

type inputKind int

const (
	kindNone inputKind = iota
	kindText
	kindReport
)

// Input is either raw text or a structured self-report. The zero value is
// invalid.
type Input struct {
	kind   inputKind
	text   string
	report models.SelfReport
}

// RawText wraps a free-text utterance.
func RawText(text string) Input {
	return Input{kind: kindText, text: text}
}

// Structured wraps a structured self-report.
func Structured(report models.SelfReport) Input {
	return Input{kind: kindReport, report: report}
}

// Text returns the utterance the input stands for, before normalization.
func (in Input) Text() (string, error) {
	switch in.kind {
	case kindText:
		return in.text, nil
	case kindReport:
		return in.report.Text(), nil
	default:
		return "", fmt.Errorf("%w: empty input", ErrInputType)
	}
}

// IsStructured reports whether the input wraps a self-report.
func (in Input) IsStructured() bool {
	return in.kind == kindReport
}
