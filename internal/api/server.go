// Package api exposes employees, reports and the emotion classifier over
// HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xaenox/sentia/internal/classifier"
	"github.com/xaenox/sentia/internal/models"
	"github.com/xaenox/sentia/internal/storage"
	"go.uber.org/zap"
)

// LocalModel is the built-in model. Besides single inputs it classifies
// batches and reports the size of its vocabulary.
type LocalModel interface {
	classifier.Classifier
	ClassifyBatch(ctx context.Context, inputs []classifier.Input) ([]models.Distribution, error)
	VocabularySize() int
}

type Server struct {
	router   *gin.Engine
	store    storage.Storage
	local    LocalModel
	external classifier.Classifier
	logger   *zap.Logger
}

// NewServer wires the routes. local must already be trained; external may
// be nil when no external model is configured.
func NewServer(store storage.Storage, local LocalModel, external classifier.Classifier, logger *zap.Logger) *Server {
	s := &Server{
		router:   gin.New(),
		store:    store,
		local:    local,
		external: external,
		logger:   logger,
	}
	s.router.Use(Recovery(logger), RequestID(), Logger(logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.health)

	api := s.router.Group("/api")
	api.POST("/empleados", s.saveEmployee)
	api.GET("/empleados/:id", s.getEmployee)
	api.GET("/empleados/:id/reportes", s.listReports)
	api.POST("/reportes", s.createReport)
	api.GET("/reportes/:id/resultado", s.getResult)
	api.POST("/clasificar", s.classify)
	api.POST("/clasificar/lote", s.classifyBatch)
	api.POST("/resultados", s.saveResult)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{
		"status":          "ok",
		"model":           s.local.ModelID(),
		"vocabulary_size": s.local.VocabularySize(),
	}
	if s.external != nil {
		body["external_model"] = s.external.ModelID()
	}
	c.JSON(http.StatusOK, body)
}
