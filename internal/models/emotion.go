package models

import "strings"

// Emotion is one of the three classes produced by the classifier.
type Emotion string

const (
	Negative Emotion = "negativo"
	Neutral  Emotion = "neutro"
	Positive Emotion = "positivo"
)

// Labels lists the emotions in class-index order. The order is also the
// tie-break priority when two classes share a probability.
var Labels = [3]Emotion{Negative, Neutral, Positive}

// LabelIndex returns the class index of e, or -1.
func LabelIndex(e Emotion) int {
	for i, l := range Labels {
		if l == e {
			return i
		}
	}
	return -1
}

// Distribution holds the probability of each label, indexed like Labels.
type Distribution [3]float64

// Get returns the probability assigned to e.
func (d Distribution) Get(e Emotion) float64 {
	i := LabelIndex(e)
	if i < 0 {
		return 0
	}
	return d[i]
}

// Map converts the distribution to its wire form.
func (d Distribution) Map() map[string]float64 {
	m := make(map[string]float64, len(Labels))
	for i, l := range Labels {
		m[string(l)] = d[i]
	}
	return m
}

// ClassificationResult is the labelled outcome derived from a Distribution.
type ClassificationResult struct {
	Primary   Emotion `json:"emocion_principal"`
	Secondary Emotion `json:"emocion_secundaria"`
	Summary   string  `json:"descripcion_general"`
	Model     string  `json:"ia_utilizada"`
}

// SelfReport carries the optional free-text fields of a structured report.
// Field order matters: it is the order used when the fields are joined into
// a single utterance.
type SelfReport struct {
	FeelingToday      string `json:"como_se_siente_hoy"`
	EnergyLevel       string `json:"nivel_energia"`
	SleepQuality      string `json:"calidad_sueno"`
	AverageSleepHours string `json:"horas_sueno_promedio"`
	ExerciseFrequency string `json:"frecuencias_ejercicio"`
	Description       string `json:"descripcion"`
	Hobby             string `json:"hobby"`
}

// Text joins the report fields with single spaces. Missing fields
// contribute an empty string, so the separators are always present.
func (r SelfReport) Text() string {
	return strings.Join([]string{
		r.FeelingToday,
		r.EnergyLevel,
		r.SleepQuality,
		r.AverageSleepHours,
		r.ExerciseFrequency,
		r.Description,
		r.Hobby,
	}, " ")
}
