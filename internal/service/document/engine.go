package document

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/dokuflow/document-pipeline/internal/extractor"
	"github.com/dokuflow/document-pipeline/internal/models"
	"github.com/dokuflow/document-pipeline/internal/utils/validator"
	"github.com/dokuflow/document-pipeline/pkg/cache"
	"github.com/dokuflow/document-pipeline/pkg/logger"
	"github.com/dokuflow/document-pipeline/pkg/storage"
)

// Progress checkpoints written as a pass advances. Values are advisory;
// failures to persist them never abort the pass.
const (
	progressRecordReady = 10
	progressDownloaded  = 25
	progressTextDone    = 50
	progressFieldsDone  = 75
	progressEmbedded    = 90
)

type service struct {
	store     DocumentStore
	objects   storage.Storage
	extractor Extractor
	embedder  Embedder
	status    StatusCache
	jobs      JobSender
	logger    logger.Logger
}

func NewService(
	store DocumentStore,
	objects storage.Storage,
	ext Extractor,
	embedder Embedder,
	status StatusCache,
	jobs JobSender,
	log logger.Logger,
) Service {
	return &service{
		store:     store,
		objects:   objects,
		extractor: ext,
		embedder:  embedder,
		status:    status,
		jobs:      jobs,
		logger:    log,
	}
}

func (s *service) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	documentID := uuid.NewString()
	now := time.Now().UTC()
	key := fmt.Sprintf("%s-docs/%s/%s/%s%s",
		req.Vertical, req.TenantID, now.Format("2006/01"), documentID, path.Ext(req.Filename))

	if _, err := s.objects.Store(ctx, req.Body, key); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	job := models.ProcessingJob{
		JobID:      uuid.NewString(),
		TenantID:   req.TenantID,
		DocumentID: documentID,
		Vertical:   req.Vertical,
		StorageKey: key,
		SizeBytes:  req.Size,
	}

	doc, err := s.store.GetOrCreate(ctx, job, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	if err := s.jobs.Send(ctx, job); err != nil {
		// The record exists but no job will arrive; surface the error so
		// the client can retry the upload.
		return nil, fmt.Errorf("failed to enqueue processing job: %w", err)
	}

	s.logger.Info("Document uploaded",
		logger.String("document_id", documentID),
		logger.String("tenant_id", req.TenantID),
		logger.String("storage_key", key),
		logger.Int64("size_bytes", req.Size),
	)
	return doc, nil
}

func (s *service) GetStatus(ctx context.Context, vertical models.Vertical, tenantID, documentID string) (*models.Document, error) {
	doc, err := s.store.GetForTenant(ctx, vertical, tenantID, documentID)
	if err != nil {
		return nil, err
	}

	// In-flight documents get fresher progress from the cache; the
	// database row only changes at checkpoints that matter durably.
	if doc.Status == models.StatusPending || doc.Status == models.StatusProcessing {
		if st, cacheErr := s.status.Get(ctx, documentID); cacheErr == nil {
			doc.Status = st.Status
			doc.ProgressPercent = st.Progress
			if st.Error != "" {
				doc.ErrorMessage = st.Error
			}
		}
	}
	return doc, nil
}

// Process is the engine pass: fetch record, download, extract, embed,
// persist. Reprocessing the same document is idempotent because child
// records are replaced wholesale and scalar fields overwritten.
func (s *service) Process(ctx context.Context, job models.ProcessingJob) error {
	started := time.Now()
	log := s.logger.With(
		logger.String("document_id", job.DocumentID),
		logger.String("tenant_id", job.TenantID),
		logger.String("vertical", string(job.Vertical)),
	)

	sk, err := validator.ParseStorageKey(job.StorageKey)
	if err != nil {
		// A bad key can never become processable; record the failure and
		// absorb the job.
		log.Error("Invalid storage key, dropping job", logger.Error(err))
		s.failDocument(ctx, log, job, "invalid storage key: "+err.Error(), started)
		return nil
	}
	if sk.TenantID != job.TenantID || sk.Vertical != job.Vertical {
		log.Error("Storage key does not match job attributes, dropping job",
			logger.String("storage_key", job.StorageKey),
		)
		s.failDocument(ctx, log, job, "storage key does not match job attributes", started)
		return nil
	}

	doc, err := s.store.GetOrCreate(ctx, job, sk.Filename)
	if err != nil {
		return fmt.Errorf("failed to load document record: %w", err)
	}
	if err := s.store.SetProcessing(ctx, job.Vertical, doc.ID); err != nil {
		return fmt.Errorf("failed to mark document processing: %w", err)
	}
	s.checkpoint(ctx, log, job, progressRecordReady)

	data, err := storage.Download(ctx, s.objects, job.StorageKey)
	if err != nil {
		s.failDocument(ctx, log, job, "download failed: "+err.Error(), started)
		return fmt.Errorf("failed to download document: %w", err)
	}
	s.checkpoint(ctx, log, job, progressDownloaded)

	// The text checkpoint fires from inside the router the moment full text
	// is recovered; the fields checkpoint follows once the whole extraction
	// pass has returned.
	result, err := s.extractor.Extract(ctx, data, sk.Filename, job.Vertical, func() {
		s.checkpoint(ctx, log, job, progressTextDone)
	})
	if errors.Is(err, extractor.ErrNoText) {
		// Deterministic for these bytes; retrying cannot help.
		s.failDocument(ctx, log, job, "no text extracted", started)
		return nil
	}
	if err != nil {
		s.failDocument(ctx, log, job, "extraction failed: "+err.Error(), started)
		return fmt.Errorf("extraction failed: %w", err)
	}
	s.checkpoint(ctx, log, job, progressFieldsDone)

	chunks, err := s.embedder.Generate(ctx, doc.ID, result.FullText)
	if err != nil {
		s.failDocument(ctx, log, job, "embedding failed: "+err.Error(), started)
		return fmt.Errorf("embedding failed: %w", err)
	}
	s.checkpoint(ctx, log, job, progressEmbedded)

	doc.Fields = result.Fields
	doc.FullText = result.FullText
	doc.NeedsReview = result.NeedsReview
	doc.ProcessingTimeMs = time.Since(started).Milliseconds()
	if err := s.store.Complete(ctx, doc, chunks); err != nil {
		s.failDocument(ctx, log, job, "persist failed: "+err.Error(), started)
		return fmt.Errorf("failed to persist result: %w", err)
	}

	s.setCachedStatus(ctx, log, cache.DocumentStatus{
		DocumentID: job.DocumentID,
		Status:     models.StatusComplete,
		Progress:   100,
	})
	log.Info("Document processed",
		logger.Int("chunks", len(chunks)),
		logger.Bool("needs_review", result.NeedsReview),
		logger.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (s *service) checkpoint(ctx context.Context, log logger.Logger, job models.ProcessingJob, percent int) {
	if err := s.store.UpdateProgress(ctx, job.Vertical, job.DocumentID, percent); err != nil {
		log.Warn("Failed to persist progress checkpoint",
			logger.Int("percent", percent),
			logger.Error(err),
		)
	}
	s.setCachedStatus(ctx, log, cache.DocumentStatus{
		DocumentID: job.DocumentID,
		Status:     models.StatusProcessing,
		Progress:   percent,
	})
}

func (s *service) failDocument(ctx context.Context, log logger.Logger, job models.ProcessingJob, reason string, started time.Time) {
	elapsed := time.Since(started).Milliseconds()
	if err := s.store.MarkFailed(ctx, job.Vertical, job.DocumentID, reason, elapsed); err != nil {
		log.Error("Failed to record document failure",
			logger.String("reason", reason),
			logger.Error(err),
		)
	}
	s.setCachedStatus(ctx, log, cache.DocumentStatus{
		DocumentID: job.DocumentID,
		Status:     models.StatusFailed,
		Error:      reason,
	})
}

func (s *service) setCachedStatus(ctx context.Context, log logger.Logger, st cache.DocumentStatus) {
	if err := s.status.Set(ctx, st); err != nil {
		log.Debug("Failed to cache document status", logger.Error(err))
	}
}
