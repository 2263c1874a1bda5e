package api

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/sentia/internal/classifier"
	"github.com/xaenox/sentia/internal/models"
)

// payload is a loosely typed JSON object. Clients send numbers as strings
// and the other way round, so fields are coerced on read.
type payload map[string]any

const dateLayout = "2006-01-02"

// nameKeys are the accepted spellings of an employee's full name, in
// priority order.
var nameKeys = []string{"nombre_completo", "nombre", "name", "full_name", "nombreCompleto"}

func (p payload) has(key string) bool {
	_, ok := p[key]
	return ok
}

// str returns the field as text. Numbers are formatted without a trailing
// fraction; null, missing and composite values yield "".
func (p payload) str(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// optString is nil for a missing or null field.
func (p payload) optString(key string) *string {
	if p[key] == nil {
		return nil
	}
	s := p.str(key)
	return &s
}

func (p payload) firstString(keys ...string) string {
	for _, k := range keys {
		if s := p.str(k); s != "" {
			return s
		}
	}
	return ""
}

// optInt parses integers and numeric strings. Anything else, including a
// fractional string, is nil.
func (p payload) optInt(key string) *int {
	var n int
	switch v := p[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

func (p payload) optFloat(key string) *float64 {
	var f float64
	switch v := p[key].(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// optDate accepts YYYY-MM-DD only.
func (p payload) optDate(key string) *time.Time {
	s, ok := p[key].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// id reads a positive integer identifier sent as a number or a string.
func (p payload) id(key string) (int64, bool) {
	switch v := p[key].(type) {
	case float64:
		if v < 1 || v != math.Trunc(v) || v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n < 1 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (p payload) selfReport() models.SelfReport {
	return models.SelfReport{
		FeelingToday:      p.str("como_se_siente_hoy"),
		EnergyLevel:       p.str("nivel_energia"),
		SleepQuality:      p.str("calidad_sueno"),
		AverageSleepHours: p.str("horas_sueno_promedio"),
		ExerciseFrequency: p.str("frecuencias_ejercicio"),
		Description:       p.str("descripcion"),
		Hobby:             p.str("hobby"),
	}
}

// input maps a JSON value onto a classifier input: a string is raw text, an
// object a structured self-report.
func input(v any) (classifier.Input, error) {
	switch v := v.(type) {
	case string:
		return classifier.RawText(v), nil
	case map[string]any:
		return classifier.Structured(payload(v).selfReport()), nil
	case payload:
		return classifier.Structured(v.selfReport()), nil
	default:
		return classifier.Input{}, fmt.Errorf("%w: texto must be a string or an object, got %T", classifier.ErrInputType, v)
	}
}

// distribution converts the emotions object of a request.
func distribution(v any) (models.Distribution, error) {
	raw, ok := v.(map[string]any)
	if !ok {
		return models.Distribution{}, fmt.Errorf("%w: emotions must be an object", classifier.ErrInputType)
	}
	m := make(map[string]float64, len(raw))
	for k, val := range raw {
		f, ok := val.(float64)
		if !ok {
			return models.Distribution{}, fmt.Errorf("%w: emotion %q is not a number", classifier.ErrInputType, k)
		}
		m[k] = f
	}
	return classifier.ParseDistribution(m)
}

func newEmployee(documentID, name string, p payload) *models.Employee {
	docType := p.str("tipo_documento")
	if docType == "" {
		docType = models.DefaultDocumentType
	}
	return &models.Employee{
		DocumentID:   documentID,
		DocumentType: docType,
		FullName:     name,
		Gender:       p.optString("genero"),
		Company:      p.optString("empresa"),
		Position:     p.optString("cargo"),
		BirthDate:    p.optDate("fecha_nacimiento"),
		Age:          p.optInt("edad"),
		Email:        p.optString("correo"),
		Hobby:        p.optString("hobby"),
	}
}

// mergeEmployee applies the fields present in p. Text fields sent as null
// are cleared; an unparsable date or age keeps the stored value.
func mergeEmployee(e *models.Employee, name string, p payload) {
	if name != "" {
		e.FullName = name
	}
	text := map[string]**string{
		"genero":  &e.Gender,
		"empresa": &e.Company,
		"cargo":   &e.Position,
		"correo":  &e.Email,
		"hobby":   &e.Hobby,
	}
	for key, field := range text {
		if p.has(key) {
			*field = p.optString(key)
		}
	}
	if d := p.optDate("fecha_nacimiento"); d != nil {
		e.BirthDate = d
	}
	if age := p.optInt("edad"); age != nil {
		e.Age = age
	}
}

func newReport(employeeID string, p payload) *models.Report {
	return &models.Report{
		EmployeeID:        employeeID,
		EnergyLevel:       p.optInt("nivel_energia"),
		AverageSleepHours: p.optFloat("horas_sueno_promedio"),
		Feeling:           p.optString("como_se_siente_hoy"),
		Photo:             p.optString("foto"),
		Description:       p.optString("descripcion"),
	}
}
