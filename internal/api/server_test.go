package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/sentia/internal/classifier"
	"github.com/xaenox/sentia/internal/models"
	"github.com/xaenox/sentia/internal/storage"
	"go.uber.org/zap"
)

type fakeModel struct {
	id     string
	dist   models.Distribution
	err    error
	inputs []classifier.Input
}

func (f *fakeModel) ModelID() string     { return f.id }
func (f *fakeModel) VocabularySize() int { return 42 }

func (f *fakeModel) Classify(_ context.Context, in classifier.Input) (models.Distribution, error) {
	if _, err := in.Text(); err != nil {
		return models.Distribution{}, err
	}
	f.inputs = append(f.inputs, in)
	return f.dist, f.err
}

func (f *fakeModel) ClassifyBatch(ctx context.Context, inputs []classifier.Input) ([]models.Distribution, error) {
	out := make([]models.Distribution, len(inputs))
	for i, in := range inputs {
		text, _ := in.Text()
		// Distinguishable per position so the order can be checked.
		out[i] = models.Distribution{float64(len(text)), 0, 0}
		f.inputs = append(f.inputs, in)
	}
	return out, nil
}

type testServer struct {
	*Server
	store    *storage.MemoryStorage
	local    *fakeModel
	external *fakeModel
}

func newTestServer(t *testing.T, withExternal bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		store: storage.NewMemoryStorage(),
		local: &fakeModel{id: classifier.LocalModelID, dist: models.Distribution{0.1, 0.2, 0.7}},
	}
	var external classifier.Classifier
	if withExternal {
		ts.external = &fakeModel{id: "openai/gpt-4o-mini", dist: models.Distribution{0.6, 0.3, 0.1}}
		external = ts.external
	}
	ts.Server = NewServer(ts.store, ts.local, external, zap.NewNop())
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func (ts *testServer) seedEmployee(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, ts.store.CreateEmployee(context.Background(), &models.Employee{
		DocumentID:   id,
		DocumentType: models.DefaultDocumentType,
		FullName:     "Ana Gómez",
		Company:      ptr("Acme"),
	}))
}

func (ts *testServer) seedReport(t *testing.T, employeeID string) int64 {
	t.Helper()
	r := &models.Report{EmployeeID: employeeID}
	require.NoError(t, ts.store.CreateReport(context.Background(), r))
	return r.ID
}

func ptr[T any](v T) *T { return &v }

func TestHealth(t *testing.T) {
	ts := newTestServer(t, true)
	w, body := ts.do(t, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, classifier.LocalModelID, body["model"])
	assert.EqualValues(t, 42, body["vocabulary_size"])
	assert.Equal(t, "openai/gpt-4o-mini", body["external_model"])
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t, false)

	w, _ := ts.do(t, http.MethodGet, "/healthz", "")
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
}

func TestRecovery(t *testing.T) {
	ts := newTestServer(t, false)
	ts.router.GET("/panic", func(*gin.Context) { panic("boom") })

	w, body := ts.do(t, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error interno", body["detail"])
}

func TestSaveEmployee(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"not json", `[1, 2]`, http.StatusBadRequest, ""},
		{"missing id", `{"nombre": "Ana"}`, http.StatusBadRequest, ""},
		{"create without name", `{"employee_id": "1001"}`, http.StatusBadRequest, ""},
		{"create with alias", `{"employee_id": "1001", "full_name": "Ana Gómez", "empresa": "Acme", "edad": "34", "fecha_nacimiento": "1990-05-17"}`, http.StatusCreated, "Empleado creado exitosamente."},
		{"update merges", `{"employee_id": "1001", "cargo": "Analista", "genero": null, "edad": "n/a"}`, http.StatusCreated, "Empleado actualizado exitosamente."},
		{"numeric id", `{"employee_id": 2002, "nombreCompleto": "Luis"}`, http.StatusCreated, "Empleado creado exitosamente."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := ts.do(t, http.MethodPost, "/api/empleados", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body["message"])
			} else {
				assert.NotEmpty(t, body["detail"])
			}
		})
	}

	emp, err := ts.store.GetEmployee(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "Ana Gómez", emp.FullName)
	assert.Equal(t, "CC", emp.DocumentType)
	assert.Equal(t, ptr("Acme"), emp.Company)
	assert.Equal(t, ptr("Analista"), emp.Position)
	assert.Nil(t, emp.Gender)
	assert.Equal(t, ptr(34), emp.Age)
	require.NotNil(t, emp.BirthDate)
	assert.Equal(t, "1990-05-17", emp.BirthDate.Format("2006-01-02"))

	_, err = ts.store.GetEmployee(context.Background(), "2002")
	assert.NoError(t, err)
}

func TestGetEmployee(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seedEmployee(t, "1001")

	w, body := ts.do(t, http.MethodGet, "/api/empleados/1001", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana Gómez", body["nombre_Completo"])
	assert.Equal(t, "Acme", body["empresa"])

	w, _ = ts.do(t, http.MethodGet, "/api/empleados/404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAndListReports(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seedEmployee(t, "1001")

	w, _ := ts.do(t, http.MethodPost, "/api/reportes", `{"nivel_energia": 5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/api/reportes", `{"employee_id": "404"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := ts.do(t, http.MethodPost, "/api/reportes", `{
		"employee_id": "1001",
		"nivel_energia": "7",
		"horas_sueno_promedio": "6.5",
		"como_se_siente_hoy": "Feliz",
		"descripcion": "buen día"
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	firstID := int64(body["id_reporte"].(float64))

	w, _ = ts.do(t, http.MethodPost, "/api/reportes", `{"employee_id": "1001", "nivel_energia": "mucha", "horas_sueno_promedio": ""}`)
	require.Equal(t, http.StatusCreated, w.Code)

	report, err := ts.store.GetReport(context.Background(), firstID)
	require.NoError(t, err)
	assert.Equal(t, ptr(7), report.EnergyLevel)
	assert.Equal(t, ptr(6.5), report.AverageSleepHours)
	assert.Equal(t, ptr("Feliz"), report.Feeling)

	w, body = ts.do(t, http.MethodGet, "/api/empleados/1001/reportes", "")
	require.Equal(t, http.StatusOK, w.Code)
	reports := body["reportes"].([]any)
	require.Len(t, reports, 2)
	latest := reports[0].(map[string]any)
	assert.NotContains(t, latest, "nivel_Energia")
	assert.NotContains(t, latest, "horas_Sueno_Promedio")

	w, _ = ts.do(t, http.MethodGet, "/api/empleados/404/reportes", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClassify(t *testing.T) {
	t.Run("raw text", func(t *testing.T) {
		ts := newTestServer(t, false)
		w, body := ts.do(t, http.MethodPost, "/api/clasificar", `{"employee_id": "1001", "texto": "Me siento muy feliz"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1001", body["employee_id"])
		assert.Equal(t, classifier.LocalModelID, body["source"])
		assert.Equal(t, map[string]any{"negativo": 0.1, "neutro": 0.2, "positivo": 0.7}, body["emotions"])

		require.Len(t, ts.local.inputs, 1)
		text, _ := ts.local.inputs[0].Text()
		assert.Equal(t, "Me siento muy feliz", text)
		assert.False(t, ts.local.inputs[0].IsStructured())
	})

	t.Run("structured texto", func(t *testing.T) {
		ts := newTestServer(t, false)
		w, _ := ts.do(t, http.MethodPost, "/api/clasificar", `{"texto": {"como_se_siente_hoy": "cansado", "nivel_energia": 3, "hobby": "leer"}}`)

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, ts.local.inputs, 1)
		assert.True(t, ts.local.inputs[0].IsStructured())
		text, _ := ts.local.inputs[0].Text()
		assert.Equal(t, models.SelfReport{FeelingToday: "cansado", EnergyLevel: "3", Hobby: "leer"}.Text(), text)
	})

	t.Run("whole body", func(t *testing.T) {
		ts := newTestServer(t, false)
		w, body := ts.do(t, http.MethodPost, "/api/clasificar", `{"employee_id": "7", "descripcion": "todo bien"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "7", body["employee_id"])
		text, _ := ts.local.inputs[0].Text()
		assert.Equal(t, models.SelfReport{Description: "todo bien"}.Text(), text)
	})

	t.Run("external source", func(t *testing.T) {
		ts := newTestServer(t, true)
		w, body := ts.do(t, http.MethodPost, "/api/clasificar", `{"texto": "hola", "fuente": "ia_externa"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "openai/gpt-4o-mini", body["source"])
		assert.Len(t, ts.external.inputs, 1)
		assert.Empty(t, ts.local.inputs)
	})

	t.Run("external falls back to local", func(t *testing.T) {
		ts := newTestServer(t, false)
		down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(down.Close)
		gpt := classifier.NewGPTClassifier(classifier.GPTConfig{
			APIKey:  "test-key",
			BaseURL: down.URL + "/v1",
			Model:   "gpt-4o-mini",
		}, ts.local, zap.NewNop())
		ts.Server = NewServer(ts.store, ts.local, gpt, zap.NewNop())

		w, body := ts.do(t, http.MethodPost, "/api/clasificar", `{"texto": "hola", "fuente": "ia_externa"}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, classifier.LocalModelID, body["source"])
		assert.Equal(t, map[string]any{"negativo": 0.1, "neutro": 0.2, "positivo": 0.7}, body["emotions"])
		assert.Len(t, ts.local.inputs, 1)
	})

	errorCases := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"texto is a number", `{"texto": 42}`, http.StatusBadRequest},
		{"texto is null", `{"texto": null}`, http.StatusBadRequest},
		{"unknown source", `{"texto": "hola", "fuente": "otra"}`, http.StatusBadRequest},
		{"external not configured", `{"texto": "hola", "fuente": "ia_externa"}`, http.StatusServiceUnavailable},
		{"empty body", ``, http.StatusBadRequest},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, false)
			w, _ := ts.do(t, http.MethodPost, "/api/clasificar", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Empty(t, ts.local.inputs)
		})
	}
}

func TestClassifyBatch(t *testing.T) {
	ts := newTestServer(t, false)

	w, body := ts.do(t, http.MethodPost, "/api/clasificar/lote", `{"textos": ["a", "abc", {"descripcion": "x"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, classifier.LocalModelID, body["source"])
	emotions := body["emotions"].([]any)
	require.Len(t, emotions, 3)
	assert.EqualValues(t, 1, emotions[0].(map[string]any)["negativo"])
	assert.EqualValues(t, 3, emotions[1].(map[string]any)["negativo"])
	assert.EqualValues(t, len(models.SelfReport{Description: "x"}.Text()), emotions[2].(map[string]any)["negativo"])

	w, _ = ts.do(t, http.MethodPost, "/api/clasificar/lote", `{"textos": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/api/clasificar/lote", `{"textos": ["ok", 3]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveAndGetResult(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seedEmployee(t, "1001")
	reportID := ts.seedReport(t, "1001")

	emotions := `{"negativo": 0.1, "neutro": 0.2, "positivo": 0.7}`
	errorCases := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing emotions", `{"id_reporte": 1}`, http.StatusBadRequest},
		{"missing report id", `{"emotions": ` + emotions + `}`, http.StatusBadRequest},
		{"missing label", `{"id_reporte": 1, "emotions": {"negativo": 0.5, "positivo": 0.5}}`, http.StatusBadRequest},
		{"non numeric", `{"id_reporte": 1, "emotions": {"negativo": "x", "neutro": 0.5, "positivo": 0.5}}`, http.StatusBadRequest},
		{"zero sum", `{"id_reporte": 1, "emotions": {"negativo": 0, "neutro": 0, "positivo": 0}}`, http.StatusBadRequest},
		{"unknown report", `{"id_reporte": 999, "emotions": ` + emotions + `}`, http.StatusNotFound},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := ts.do(t, http.MethodPost, "/api/resultados", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w, _ := ts.do(t, http.MethodGet, "/api/reportes/1/resultado", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := ts.do(t, http.MethodPost, "/api/resultados", `{"id_reporte": "1", "emotions": `+emotions+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Resultado guardado exitosamente.", body["message"])
	assert.NotZero(t, body["id_resultado"])

	w, _ = ts.do(t, http.MethodPost, "/api/resultados", `{"id_reporte": 1, "emotions": `+emotions+`, "ia_utilizada": "openai/gpt-4o"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = ts.do(t, http.MethodGet, "/api/reportes/1/resultado", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, reportID, body["id_Reporte"])
	assert.Equal(t, "positivo", body["emocion_Principal"])
	assert.Equal(t, "neutro", body["emocion_Secundaria"])
	assert.Equal(t, "Análisis de texto con modelo LSTM. Principal: positivo.", body["descripcion_General"])
	assert.Equal(t, classifier.LocalModelID, body["ia_Utilizada"])

	w, _ = ts.do(t, http.MethodGet, "/api/reportes/abc/resultado", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveResult_ExternalModelSummary(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seedEmployee(t, "1001")
	ts.seedReport(t, "1001")

	w, _ := ts.do(t, http.MethodPost, "/api/resultados",
		`{"id_reporte": 1, "emotions": {"negativo": 0.4, "neutro": 0.2, "positivo": 0.4}, "ia_utilizada": "openai/gpt-4o"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	result, err := ts.store.GetResultByReport(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "negativo", result.PrimaryEmotion)
	assert.Equal(t, "positivo", result.SecondaryEmotion)
	assert.Equal(t, "Análisis de texto con modelo openai/gpt-4o. Principal: negativo.", result.Summary)
	assert.Equal(t, "openai/gpt-4o", result.Model)
}
