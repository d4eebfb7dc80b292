package handlers

import (
	"github.com/dokuflow/document-pipeline/internal/service/document"
	"github.com/dokuflow/document-pipeline/pkg/logger"
)

type Handlers struct {
	Document *DocumentHandler
	Health   *HealthHandler
	Metrics  *MetricsHandler
}

func NewHandlers(
	documentService document.Service,
	health *HealthHandler,
	metrics *MetricsHandler,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Document: NewDocumentHandler(documentService, log),
		Health:   health,
		Metrics:  metrics,
	}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
