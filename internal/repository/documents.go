package repository

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dokuflow/document-pipeline/internal/models"
	"github.com/dokuflow/document-pipeline/pkg/logger"
)

// ErrNotFound is returned when a document record does not exist.
var ErrNotFound = errors.New("document not found")

// DocumentRepository owns the per-vertical document tables and their child
// records. The processing engine is the sole writer.
type DocumentRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// tableFor maps a vertical to its document table.
func tableFor(v models.Vertical) string {
	if v == models.VerticalLegal {
		return "legal_documents"
	}
	return "accounting_documents"
}

const documentColumns = `id, tenant_id, original_filename, storage_key, file_size_bytes,
	processing_status, progress_percent, vendor, document_date, amount, currency,
	document_number, tax_amount, due_date, apar_status, description, document_type,
	needs_review, full_text, error_message, processing_time_ms, created_at, updated_at`

func scanDocument(row pgx.Row, v models.Vertical) (*models.Document, error) {
	var (
		doc      models.Document
		vendor, docDate, currency, docNumber, dueDate *string
		aparStatus, description, docType              *string
		fullText, errMsg                              *string
		processingMs                                  *int64
	)
	err := row.Scan(
		&doc.ID, &doc.TenantID, &doc.OriginalFilename, &doc.StorageKey, &doc.FileSizeBytes,
		&doc.Status, &doc.ProgressPercent, &vendor, &docDate, &doc.Fields.Amount, &currency,
		&docNumber, &doc.Fields.TaxAmount, &dueDate, &aparStatus, &description, &docType,
		&doc.NeedsReview, &fullText, &errMsg, &processingMs, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.Vertical = v
	doc.Fields.Vendor = deref(vendor)
	doc.Fields.DocumentDate = deref(docDate)
	doc.Fields.Currency = deref(currency)
	doc.Fields.DocumentNumber = deref(docNumber)
	doc.Fields.DueDate = deref(dueDate)
	doc.Fields.APARStatus = deref(aparStatus)
	doc.Fields.Description = deref(description)
	doc.Fields.DocumentType = deref(docType)
	doc.FullText = deref(fullText)
	doc.ErrorMessage = deref(errMsg)
	if processingMs != nil {
		doc.ProcessingTimeMs = *processingMs
	}
	return &doc, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetOrCreate fetches the record for a job, creating a pending one when the
// job arrived before any upload-time record was written. Reprocessing an
// existing document reuses its row.
func (r *DocumentRepository) GetOrCreate(ctx context.Context, job models.ProcessingJob, filename string) (*models.Document, error) {
	table := tableFor(job.Vertical)

	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, tenant_id, original_filename, storage_key, file_size_bytes, processing_status, progress_percent)
		 VALUES ($1, $2, $3, $4, $5, $6, 0)
		 ON CONFLICT (id) DO NOTHING`, table),
		job.DocumentID, job.TenantID, filename, job.StorageKey, job.SizeBytes, models.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert document: %w", err)
	}

	return r.Get(ctx, job.Vertical, job.DocumentID)
}

// Get loads one document by id.
func (r *DocumentRepository) Get(ctx context.Context, v models.Vertical, id string) (*models.Document, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1`, documentColumns, tableFor(v)), id)
	return scanDocument(row, v)
}

// GetForTenant loads one document scoped to a tenant, for the status API.
func (r *DocumentRepository) GetForTenant(ctx context.Context, v models.Vertical, tenantID, id string) (*models.Document, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1 AND tenant_id = $2`, documentColumns, tableFor(v)), id, tenantID)
	return scanDocument(row, v)
}

// SetProcessing moves the record into the processing state and clears any
// error left by a previous failed pass.
func (r *DocumentRepository) SetProcessing(ctx context.Context, v models.Vertical, id string) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET processing_status = $2, progress_percent = 0, error_message = NULL, updated_at = now()
		 WHERE id = $1`, tableFor(v)),
		id, models.StatusProcessing,
	)
	return err
}

// UpdateProgress writes a progress checkpoint. Progress is advisory; a
// write failure must not abort the pass, so callers log and continue.
func (r *DocumentRepository) UpdateProgress(ctx context.Context, v models.Vertical, id string, percent int) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET progress_percent = $2, updated_at = now() WHERE id = $1`, tableFor(v)),
		id, percent,
	)
	return err
}

// MarkFailed records a terminal failure with its reason and elapsed time.
func (r *DocumentRepository) MarkFailed(ctx context.Context, v models.Vertical, id, reason string, elapsedMs int64) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET processing_status = $2, error_message = $3, processing_time_ms = $4, updated_at = now()
		 WHERE id = $1`, tableFor(v)),
		id, models.StatusFailed, truncateReason(reason), elapsedMs,
	)
	return err
}

// Complete writes the extraction result, replaces all child records and
// moves the document to complete in one transaction. Children are deleted
// then reinserted so a reprocessed document never accumulates duplicates.
func (r *DocumentRepository) Complete(ctx context.Context, doc *models.Document, chunks []models.EmbeddingChunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	f := doc.Fields
	_, err = tx.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET
			processing_status = $2, progress_percent = 100,
			vendor = NULLIF($3, ''), document_date = NULLIF($4, ''), amount = $5,
			currency = NULLIF($6, ''), document_number = NULLIF($7, ''), tax_amount = $8,
			due_date = NULLIF($9, ''), apar_status = NULLIF($10, ''), description = NULLIF($11, ''),
			document_type = NULLIF($12, ''), needs_review = $13, full_text = $14,
			error_message = NULL, processing_time_ms = $15, updated_at = now()
		 WHERE id = $1`, tableFor(doc.Vertical)),
		doc.ID, models.StatusComplete,
		f.Vendor, f.DocumentDate, f.Amount, f.Currency, f.DocumentNumber, f.TaxAmount,
		f.DueDate, f.APARStatus, f.Description, f.DocumentType,
		doc.NeedsReview, doc.FullText, doc.ProcessingTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	if err := replaceLineItems(ctx, tx, doc.ID, f.LineItems); err != nil {
		return err
	}
	if err := replaceTransactions(ctx, tx, doc.ID, f.Transactions); err != nil {
		return err
	}
	if err := replaceChunks(ctx, tx, doc.ID, chunks); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Postgres text columns are unbounded but error messages come from upstream
// bodies; keep them readable. The cut lands on a rune boundary so multi-byte
// upstream text stays valid UTF-8.
func truncateReason(s string) string {
	const max = 2000
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
