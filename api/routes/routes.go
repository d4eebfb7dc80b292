package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/dokuflow/document-pipeline/api/handlers"
	"github.com/dokuflow/document-pipeline/api/middleware"
)

// SetupRoutes wires all HTTP routes.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, allowedOrigins []string) {
	r.Use(middleware.CORS(allowedOrigins))

	r.GET("/healthz", h.Health.Live)
	r.GET("/readyz", h.Health.Ready)

	v1 := r.Group("/api/v1")

	docs := v1.Group("/documents")
	{
		docs.POST("/:vertical", h.Document.Upload)
		docs.GET("/:vertical/:documentId", h.Document.GetStatus)
	}

	v1.GET("/metrics", h.Metrics.Snapshot)
}
