package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dokuflow/document-pipeline/internal/models"
	"github.com/dokuflow/document-pipeline/internal/repository"
	"github.com/dokuflow/document-pipeline/internal/service/document"
	"github.com/dokuflow/document-pipeline/pkg/logger"
)

type DocumentHandler struct {
	service document.Service
	logger  logger.Logger
}

func NewDocumentHandler(service document.Service, log logger.Logger) *DocumentHandler {
	return &DocumentHandler{service: service, logger: log}
}

// UploadResponse acknowledges an accepted document.
type UploadResponse struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	Filename   string `json:"filename"`
	FileSize   int64  `json:"fileSize"`
	CreatedAt  string `json:"createdAt"`
}

// Upload accepts a multipart document for a tenant and vertical and queues
// it for processing.
func (h *DocumentHandler) Upload(c *gin.Context) {
	vertical, ok := models.ParseVertical(c.Param("vertical"))
	if !ok {
		h.handleError(c, http.StatusBadRequest, "Unknown vertical", nil)
		return
	}

	tenantID := c.GetHeader("X-Tenant-ID")
	if _, err := uuid.Parse(tenantID); err != nil {
		h.handleError(c, http.StatusBadRequest, "X-Tenant-ID must be a UUID", err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid file upload", err)
		return
	}
	defer file.Close()

	doc, err := h.service.Upload(c.Request.Context(), document.UploadRequest{
		TenantID: tenantID,
		Vertical: vertical,
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to accept document", err)
		return
	}

	c.JSON(http.StatusAccepted, UploadResponse{
		DocumentID: doc.ID,
		Status:     string(doc.Status),
		Filename:   header.Filename,
		FileSize:   header.Size,
		CreatedAt:  doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetStatus reports a document's processing state and extracted fields once
// available.
func (h *DocumentHandler) GetStatus(c *gin.Context) {
	vertical, ok := models.ParseVertical(c.Param("vertical"))
	if !ok {
		h.handleError(c, http.StatusBadRequest, "Unknown vertical", nil)
		return
	}

	tenantID := c.GetHeader("X-Tenant-ID")
	if _, err := uuid.Parse(tenantID); err != nil {
		h.handleError(c, http.StatusBadRequest, "X-Tenant-ID must be a UUID", err)
		return
	}

	documentID := c.Param("documentId")
	doc, err := h.service.GetStatus(c.Request.Context(), vertical, tenantID, documentID)
	if errors.Is(err, repository.ErrNotFound) {
		h.handleError(c, http.StatusNotFound, "Document not found", nil)
		return
	}
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to get status", err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) handleError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		h.logger.Error(message,
			logger.String("path", c.FullPath()),
			logger.Error(err),
		)
	}

	resp := ErrorResponse{Error: message}
	if err != nil && status < http.StatusInternalServerError {
		resp.Message = err.Error()
	}
	c.JSON(status, resp)
}
