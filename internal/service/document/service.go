package document

import (
	"context"
	"io"

	"github.com/dokuflow/document-pipeline/internal/extractor"
	"github.com/dokuflow/document-pipeline/internal/models"
	"github.com/dokuflow/document-pipeline/pkg/cache"
)

// Service is the document pipeline facade: the API uses Upload and
// GetStatus, the worker pool uses Process.
type Service interface {
	// Upload stores the file, creates the pending record and enqueues a
	// processing job.
	Upload(ctx context.Context, req UploadRequest) (*models.Document, error)
	// GetStatus returns the current document state, preferring the cache
	// while a document is in flight.
	GetStatus(ctx context.Context, vertical models.Vertical, tenantID, documentID string) (*models.Document, error)
	// Process runs one job to completion. A returned error requests
	// redelivery; permanent failures are recorded and absorbed.
	Process(ctx context.Context, job models.ProcessingJob) error
}

// UploadRequest carries one incoming document.
type UploadRequest struct {
	TenantID string
	Vertical models.Vertical
	Filename string
	Size     int64
	Body     io.Reader
}

// DocumentStore is the persistence surface the engine mutates.
type DocumentStore interface {
	GetOrCreate(ctx context.Context, job models.ProcessingJob, filename string) (*models.Document, error)
	GetForTenant(ctx context.Context, v models.Vertical, tenantID, id string) (*models.Document, error)
	SetProcessing(ctx context.Context, v models.Vertical, id string) error
	UpdateProgress(ctx context.Context, v models.Vertical, id string, percent int) error
	MarkFailed(ctx context.Context, v models.Vertical, id, reason string, elapsedMs int64) error
	Complete(ctx context.Context, doc *models.Document, chunks []models.EmbeddingChunk) error
}

// Extractor runs the size-routed AI extraction pass. onText is invoked once
// full text has been recovered, ahead of structured extraction finishing.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename string, vertical models.Vertical, onText func()) (*extractor.Result, error)
}

// Embedder windows and embeds the document's full text.
type Embedder interface {
	Generate(ctx context.Context, documentID, text string) ([]models.EmbeddingChunk, error)
}

// StatusCache absorbs progress polling. All writes are best effort.
type StatusCache interface {
	Set(ctx context.Context, st cache.DocumentStatus) error
	Get(ctx context.Context, documentID string) (*cache.DocumentStatus, error)
}

// JobSender enqueues processing jobs.
type JobSender interface {
	Send(ctx context.Context, job models.ProcessingJob) error
}
