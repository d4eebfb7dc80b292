package queue

import (
	"context"

	"github.com/dokuflow/document-pipeline/internal/models"
)

// Depth is a point-in-time view of queue load, used by the metrics endpoint.
type Depth struct {
	Available int `json:"available"`
	InFlight  int `json:"inFlight"`
	Delayed   int `json:"delayed"`
}

// Queue is the job transport between upload and the worker pool. Received
// jobs stay invisible to other consumers for the visibility window; only an
// explicit Delete acknowledges them. An unacknowledged job reappears after
// the window expires, which is the sole retry mechanism.
type Queue interface {
	// Receive long-polls for up to max jobs. An empty slice means the
	// poll window elapsed without traffic.
	Receive(ctx context.Context, max int) ([]models.ProcessingJob, error)
	// Delete acknowledges a job by its receipt handle.
	Delete(ctx context.Context, receiptHandle string) error
	// Send enqueues a job for processing.
	Send(ctx context.Context, job models.ProcessingJob) error
	// Stats reports current queue depth.
	Stats(ctx context.Context) (Depth, error)
}
