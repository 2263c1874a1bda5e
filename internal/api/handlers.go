package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xaenox/sentia/internal/classifier"
	"github.com/xaenox/sentia/internal/models"
	"github.com/xaenox/sentia/internal/storage"
	"go.uber.org/zap"
)

// ExternalSource selects the external model in /api/clasificar.
const ExternalSource = "ia_externa"

func (s *Server) fail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func (s *Server) internalError(c *gin.Context, err error, msg string) {
	_ = c.Error(err)
	s.logger.Error(msg,
		zap.Error(err),
		zap.String("request_id", c.GetString(requestIDKey)))
	s.fail(c, http.StatusInternalServerError, "error interno")
}

func (s *Server) bind(c *gin.Context) (payload, bool) {
	var p payload
	if err := c.ShouldBindJSON(&p); err != nil || p == nil {
		s.fail(c, http.StatusBadRequest, "el cuerpo debe ser un objeto JSON")
		return nil, false
	}
	return p, true
}

func (s *Server) saveEmployee(c *gin.Context) {
	p, ok := s.bind(c)
	if !ok {
		return
	}
	employeeID := p.str("employee_id")
	if employeeID == "" {
		s.fail(c, http.StatusBadRequest, "employee_id es obligatorio")
		return
	}
	name := p.firstString(nameKeys...)
	ctx := c.Request.Context()

	s.logger.Info("Saving employee",
		zap.String("employee_id", employeeID),
		zap.Bool("has_name", name != ""))

	employee, err := s.store.GetEmployee(ctx, employeeID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if name == "" {
			s.fail(c, http.StatusBadRequest, "nombre_completo es obligatorio al crear un empleado")
			return
		}
		err := s.store.CreateEmployee(ctx, newEmployee(employeeID, name, p))
		if errors.Is(err, storage.ErrConflict) {
			s.fail(c, http.StatusConflict, fmt.Sprintf("El empleado %s ya existe.", employeeID))
			return
		}
		if err != nil {
			s.internalError(c, err, "Failed to create employee")
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"status":              "ok",
			"message":             "Empleado creado exitosamente.",
			"documento_Identidad": employeeID,
		})

	case err != nil:
		s.internalError(c, err, "Failed to get employee")

	default:
		mergeEmployee(employee, name, p)
		if err := s.store.UpdateEmployee(ctx, employee); err != nil {
			s.internalError(c, err, "Failed to update employee")
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"status":              "ok",
			"message":             "Empleado actualizado exitosamente.",
			"documento_Identidad": employeeID,
		})
	}
}

func (s *Server) getEmployee(c *gin.Context) {
	id := c.Param("id")
	employee, err := s.store.GetEmployee(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(c, http.StatusNotFound, fmt.Sprintf("Empleado con ID %s no encontrado.", id))
		return
	}
	if err != nil {
		s.internalError(c, err, "Failed to get employee")
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (s *Server) createReport(c *gin.Context) {
	p, ok := s.bind(c)
	if !ok {
		return
	}
	employeeID := p.str("employee_id")
	if employeeID == "" {
		s.fail(c, http.StatusBadRequest, "employee_id es obligatorio")
		return
	}

	report := newReport(employeeID, p)
	err := s.store.CreateReport(c.Request.Context(), report)
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(c, http.StatusNotFound, fmt.Sprintf("Empleado con ID %s no encontrado.", employeeID))
		return
	}
	if err != nil {
		s.internalError(c, err, "Failed to create report")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":     "ok",
		"message":    "Reporte guardado exitosamente.",
		"id_reporte": report.ID,
	})
}

func (s *Server) listReports(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if _, err := s.store.GetEmployee(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.fail(c, http.StatusNotFound, fmt.Sprintf("Empleado con ID %s no encontrado.", id))
			return
		}
		s.internalError(c, err, "Failed to get employee")
		return
	}

	reports, err := s.store.ListReports(ctx, id)
	if err != nil {
		s.internalError(c, err, "Failed to list reports")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"documento_Identidad": id,
		"reportes":            reports,
	})
}

// model resolves the fuente field of a classification request.
func (s *Server) model(source string) (classifier.Classifier, error) {
	switch {
	case source == "" || source == classifier.LocalModelID || source == s.local.ModelID():
		return s.local, nil
	case source == ExternalSource || (s.external != nil && source == s.external.ModelID()):
		if s.external == nil {
			return nil, fmt.Errorf("%w: no external model configured", classifier.ErrUnavailable)
		}
		return s.external, nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", classifier.ErrInputType, source)
	}
}

func (s *Server) classifyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, classifier.ErrInputType):
		s.fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, classifier.ErrUnavailable):
		s.fail(c, http.StatusServiceUnavailable, err.Error())
	default:
		s.internalError(c, err, "Failed to classify")
	}
}

func (s *Server) classify(c *gin.Context) {
	p, ok := s.bind(c)
	if !ok {
		return
	}

	var raw any = p
	if p.has("texto") {
		raw = p["texto"]
	}
	in, err := input(raw)
	if err != nil {
		s.classifyError(c, err)
		return
	}
	model, err := s.model(p.str("fuente"))
	if err != nil {
		s.classifyError(c, err)
		return
	}

	dist, source, err := classifier.ClassifyWithSource(c.Request.Context(), model, in)
	if err != nil {
		s.classifyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employee_id": p.str("employee_id"),
		"source":      source,
		"emotions":    dist.Map(),
	})
}

func (s *Server) classifyBatch(c *gin.Context) {
	p, ok := s.bind(c)
	if !ok {
		return
	}
	texts, _ := p["textos"].([]any)
	if len(texts) == 0 {
		s.fail(c, http.StatusBadRequest, "textos es obligatorio")
		return
	}

	inputs := make([]classifier.Input, len(texts))
	for i, t := range texts {
		in, err := input(t)
		if err != nil {
			s.classifyError(c, fmt.Errorf("textos[%d]: %w", i, err))
			return
		}
		inputs[i] = in
	}

	dists, err := s.local.ClassifyBatch(c.Request.Context(), inputs)
	if err != nil {
		s.classifyError(c, err)
		return
	}
	emotions := make([]map[string]float64, len(dists))
	for i, d := range dists {
		emotions[i] = d.Map()
	}
	c.JSON(http.StatusOK, gin.H{
		"source":   s.local.ModelID(),
		"emotions": emotions,
	})
}

func (s *Server) saveResult(c *gin.Context) {
	p, ok := s.bind(c)
	if !ok {
		return
	}
	reportID, hasID := p.id("id_reporte")
	if !hasID || p["emotions"] == nil {
		s.fail(c, http.StatusBadRequest, "id_reporte y emotions son obligatorios.")
		return
	}
	dist, err := distribution(p["emotions"])
	if err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	if _, err := s.store.GetReport(ctx, reportID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.fail(c, http.StatusNotFound, fmt.Sprintf("Reporte con ID %d no encontrado.", reportID))
			return
		}
		s.internalError(c, err, "Failed to get report")
		return
	}

	decision := classifier.Decide(dist, p.str("ia_utilizada"))
	result := &models.Result{
		ReportID:         reportID,
		PrimaryEmotion:   string(decision.Primary),
		SecondaryEmotion: string(decision.Secondary),
		Summary:          decision.Summary,
		Model:            decision.Model,
	}
	err = s.store.SaveResult(ctx, result)
	switch {
	case errors.Is(err, storage.ErrConflict):
		s.fail(c, http.StatusConflict, fmt.Sprintf("El reporte %d ya tiene un resultado.", reportID))
		return
	case errors.Is(err, storage.ErrNotFound):
		s.fail(c, http.StatusNotFound, fmt.Sprintf("Reporte con ID %d no encontrado.", reportID))
		return
	case err != nil:
		s.internalError(c, err, "Failed to save result")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":       "ok",
		"message":      "Resultado guardado exitosamente.",
		"id_resultado": result.ID,
		"resultado":    result,
	})
}

func (s *Server) getResult(c *gin.Context) {
	reportID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || reportID < 1 {
		s.fail(c, http.StatusBadRequest, "id de reporte inválido")
		return
	}
	result, err := s.store.GetResultByReport(c.Request.Context(), reportID)
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(c, http.StatusNotFound, fmt.Sprintf("El reporte %d no tiene resultado.", reportID))
		return
	}
	if err != nil {
		s.internalError(c, err, "Failed to get result")
		return
	}
	c.JSON(http.StatusOK, result)
}
