package document

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokuflow/document-pipeline/internal/embeddings"
	"github.com/dokuflow/document-pipeline/internal/extractor"
	"github.com/dokuflow/document-pipeline/internal/models"
	"github.com/dokuflow/document-pipeline/pkg/aiclient"
	"github.com/dokuflow/document-pipeline/pkg/cache"
	"github.com/dokuflow/document-pipeline/pkg/logger"
)

const testTenant = "6f1d2f0a-3f3e-4f2b-9a4e-8a2f9d1c0b7e"

type fakeStore struct {
	mu        sync.Mutex
	doc       *models.Document
	progress  []int
	failedMsg string
	completed *models.Document
	chunks    []models.EmbeddingChunk
}

func (f *fakeStore) GetOrCreate(_ context.Context, job models.ProcessingJob, filename string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil {
		f.doc = &models.Document{
			ID:               job.DocumentID,
			TenantID:         job.TenantID,
			Vertical:         job.Vertical,
			OriginalFilename: filename,
			StorageKey:       job.StorageKey,
			Status:           models.StatusPending,
		}
	}
	cp := *f.doc
	return &cp, nil
}

func (f *fakeStore) GetForTenant(_ context.Context, _ models.Vertical, _, _ string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil {
		return nil, errors.New("not found")
	}
	cp := *f.doc
	return &cp, nil
}

func (f *fakeStore) SetProcessing(_ context.Context, _ models.Vertical, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc.Status = models.StatusProcessing
	return nil
}

func (f *fakeStore) UpdateProgress(_ context.Context, _ models.Vertical, _ string, percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, percent)
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, _ models.Vertical, _ string, reason string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedMsg = reason
	if f.doc != nil {
		f.doc.Status = models.StatusFailed
	}
	return nil
}

func (f *fakeStore) Complete(_ context.Context, doc *models.Document, chunks []models.EmbeddingChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	cp.Status = models.StatusComplete
	cp.ProgressPercent = 100
	f.completed = &cp
	f.doc = &cp
	f.chunks = chunks
	return nil
}

type fakeObjects struct {
	data   []byte
	getErr error
	stored map[string][]byte
}

func (f *fakeObjects) Store(_ context.Context, r io.Reader, key string) (string, error) {
	if f.stored == nil {
		f.stored = map[string][]byte{}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.stored[key] = data
	return key, nil
}

func (f *fakeObjects) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (f *fakeObjects) Delete(context.Context, string) error { return nil }

type fakeExtractor struct {
	result *extractor.Result
	err    error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, _ string, _ models.Vertical, onText func()) (*extractor.Result, error) {
	if f.err == nil && onText != nil {
		onText()
	}
	return f.result, f.err
}

type stubEmbedder struct{}

func (stubEmbedder) Generate(_ context.Context, documentID, text string) ([]models.EmbeddingChunk, error) {
	if text == "" {
		return nil, nil
	}
	return []models.EmbeddingChunk{{DocumentID: documentID, ChunkIndex: 0, Text: text, Vector: []float32{1}}}, nil
}

type fakeCacheStore struct {
	mu       sync.Mutex
	statuses []cache.DocumentStatus
}

func (f *fakeCacheStore) Set(_ context.Context, st cache.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, st)
	return nil
}

func (f *fakeCacheStore) Get(_ context.Context, _ string) (*cache.DocumentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return nil, cache.ErrMiss
	}
	st := f.statuses[len(f.statuses)-1]
	return &st, nil
}

type fakeSender struct {
	jobs []models.ProcessingJob
	err  error
}

func (f *fakeSender) Send(_ context.Context, job models.ProcessingJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func testJob() models.ProcessingJob {
	return models.ProcessingJob{
		JobID:      "job-1",
		TenantID:   testTenant,
		DocumentID: "doc-1",
		Vertical:   models.VerticalAccounting,
		StorageKey: "accounting-docs/" + testTenant + "/2026/08/doc-1.pdf",
		SizeBytes:  1024,
	}
}

func newTestService(store *fakeStore, objects *fakeObjects, ext Extractor, status *fakeCacheStore) Service {
	return NewService(store, objects, ext, stubEmbedder{}, status, &fakeSender{}, logger.NewTestLogger())
}

func TestProcessHappyPath(t *testing.T) {
	amount := 1234567.0
	store := &fakeStore{}
	status := &fakeCacheStore{}
	svc := newTestService(store, &fakeObjects{data: []byte("pdf bytes")}, &fakeExtractor{
		result: &extractor.Result{
			FullText: "INVOICE from Acme",
			Fields:   models.ExtractedFields{Vendor: "Acme", Amount: &amount, Currency: "IDR"},
		},
	}, status)

	require.NoError(t, svc.Process(context.Background(), testJob()))

	require.NotNil(t, store.completed)
	assert.Equal(t, models.StatusComplete, store.completed.Status)
	assert.Equal(t, "Acme", store.completed.Fields.Vendor)
	assert.Equal(t, "INVOICE from Acme", store.completed.FullText)
	require.Len(t, store.chunks, 1)
	assert.Equal(t, 0, store.chunks[0].ChunkIndex)

	// Checkpoints advance monotonically through the pass.
	assert.Equal(t, []int{10, 25, 50, 75, 90}, store.progress)

	last := status.statuses[len(status.statuses)-1]
	assert.Equal(t, models.StatusComplete, last.Status)
	assert.Equal(t, 100, last.Progress)
}

func TestProcessInvalidStorageKeyIsAbsorbed(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeObjects{}, &fakeExtractor{}, &fakeCacheStore{})

	job := testJob()
	job.StorageKey = "not-a-valid/key"

	// nil means the job is acknowledged and never redelivered.
	require.NoError(t, svc.Process(context.Background(), job))
	assert.Contains(t, store.failedMsg, "invalid storage key")
}

func TestProcessTenantMismatchIsAbsorbed(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeObjects{}, &fakeExtractor{}, &fakeCacheStore{})

	job := testJob()
	job.TenantID = "0e8e1c9a-1111-2222-3333-444455556666"

	require.NoError(t, svc.Process(context.Background(), job))
	assert.Contains(t, store.failedMsg, "does not match")
}

func TestProcessDownloadFailureRequestsRedelivery(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeObjects{getErr: errors.New("bucket gone")}, &fakeExtractor{}, &fakeCacheStore{})

	err := svc.Process(context.Background(), testJob())
	require.Error(t, err)
	assert.Contains(t, store.failedMsg, "download failed")
}

func TestProcessNoTextIsAbsorbed(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeObjects{data: []byte("x")}, &fakeExtractor{err: extractor.ErrNoText}, &fakeCacheStore{})

	require.NoError(t, svc.Process(context.Background(), testJob()))
	assert.Equal(t, "no text extracted", store.failedMsg)
	assert.Equal(t, models.StatusFailed, store.doc.Status)
}

func TestProcessIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeObjects{data: []byte("pdf bytes")}, &fakeExtractor{
		result: &extractor.Result{
			FullText: "RECEIPT",
			Fields:   models.ExtractedFields{Vendor: "Warung Sederhana"},
		},
	}, &fakeCacheStore{})

	job := testJob()
	require.NoError(t, svc.Process(context.Background(), job))
	first := *store.completed
	require.NoError(t, svc.Process(context.Background(), job))

	assert.Equal(t, first.Fields, store.completed.Fields)
	assert.Len(t, store.chunks, 1)
}

func TestUploadStoresRecordAndEnqueues(t *testing.T) {
	store := &fakeStore{}
	objects := &fakeObjects{}
	sender := &fakeSender{}
	svc := NewService(store, objects, &fakeExtractor{}, stubEmbedder{}, &fakeCacheStore{}, sender, logger.NewTestLogger())

	doc, err := svc.Upload(context.Background(), UploadRequest{
		TenantID: testTenant,
		Vertical: models.VerticalAccounting,
		Filename: "invoice.pdf",
		Size:     9,
		Body:     bytes.NewReader([]byte("pdf bytes")),
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, doc.Status)
	require.Len(t, sender.jobs, 1)
	job := sender.jobs[0]
	assert.Equal(t, doc.ID, job.DocumentID)
	assert.Contains(t, job.StorageKey, "accounting-docs/"+testTenant+"/")
	assert.Contains(t, job.StorageKey, doc.ID+".pdf")
	_, stored := objects.stored[job.StorageKey]
	assert.True(t, stored)
}

func TestUploadEnqueueFailureSurfaces(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeObjects{}, &fakeExtractor{}, stubEmbedder{},
		&fakeCacheStore{}, &fakeSender{err: errors.New("queue down")}, logger.NewTestLogger())

	_, err := svc.Upload(context.Background(), UploadRequest{
		TenantID: testTenant,
		Vertical: models.VerticalAccounting,
		Filename: "invoice.pdf",
		Body:     bytes.NewReader(nil),
	})
	assert.Error(t, err)
}

// End-to-end through the real router, parser and embedding generator with
// only the AI endpoint faked: an Indonesian-formatted amount in the model
// response lands in the record as a canonical float.
func TestProcessEndToEndNormalizesIndonesianAmounts(t *testing.T) {
	client := &scriptedAI{
		combined: `{"full_text":"Faktur dari PT Acme\nTotal: Rp 1.234.567,00","fields":{"vendor":"PT Acme","amount":"1.234.567,00","currency":"IDR"}}`,
	}
	router := extractor.NewRouter(client, extractor.Config{}, logger.NewTestLogger())
	gen := embeddings.NewGenerator(client, embeddings.Config{BatchDelay: 1}, logger.NewTestLogger())

	store := &fakeStore{}
	svc := NewService(store, &fakeObjects{data: []byte("small pdf")}, router, gen,
		&fakeCacheStore{}, &fakeSender{}, logger.NewTestLogger())

	require.NoError(t, svc.Process(context.Background(), testJob()))

	require.NotNil(t, store.completed)
	assert.Equal(t, models.StatusComplete, store.completed.Status)
	assert.Equal(t, "PT Acme", store.completed.Fields.Vendor)
	require.NotNil(t, store.completed.Fields.Amount)
	assert.InDelta(t, 1234567.0, *store.completed.Fields.Amount, 0.001)
	require.Len(t, store.chunks, 1)
	assert.Contains(t, store.chunks[0].Text, "PT Acme")
}

type scriptedAI struct {
	combined string
}

func (s *scriptedAI) Generate(_ context.Context, req aiclient.GenerateRequest) (string, error) {
	if req.Combined {
		return s.combined, nil
	}
	return "", errors.New("unexpected call")
}

func (s *scriptedAI) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func (s *scriptedAI) Ping(context.Context) error { return nil }
