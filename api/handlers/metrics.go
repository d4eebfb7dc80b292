package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dokuflow/document-pipeline/pkg/logger"
	"github.com/dokuflow/document-pipeline/pkg/queue"
)

// InFlightCounter reports how many jobs the local worker pool holds.
type InFlightCounter interface {
	InFlight() int
}

type MetricsHandler struct {
	queue       queue.Queue
	workers     InFlightCounter
	workerCount int
	logger      logger.Logger
}

func NewMetricsHandler(q queue.Queue, workers InFlightCounter, workerCount int, log logger.Logger) *MetricsHandler {
	return &MetricsHandler{queue: q, workers: workers, workerCount: workerCount, logger: log}
}

// Snapshot reports queue depth and worker occupancy.
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	resp := gin.H{
		"workerCount": h.workerCount,
	}
	if h.workers != nil {
		resp["inFlight"] = h.workers.InFlight()
	}

	if h.queue != nil {
		depth, err := h.queue.Stats(c.Request.Context())
		if err != nil {
			h.logger.Warn("Failed to read queue depth", logger.Error(err))
		} else {
			resp["queue"] = depth
		}
	}

	c.JSON(http.StatusOK, resp)
}
