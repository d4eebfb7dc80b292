package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokuflow/document-pipeline/internal/models"
	"github.com/dokuflow/document-pipeline/pkg/logger"
	"github.com/dokuflow/document-pipeline/pkg/queue"
)

// fakeQueue hands out a fixed set of jobs once, then blocks until the poll
// context is cancelled, mimicking long polling.
type fakeQueue struct {
	mu      sync.Mutex
	pending []models.ProcessingJob
	deleted []string
}

func (q *fakeQueue) Receive(ctx context.Context, max int) ([]models.ProcessingJob, error) {
	q.mu.Lock()
	if len(q.pending) > 0 {
		job := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()
		return []models.ProcessingJob{job}, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(20 * time.Millisecond):
		return nil, nil
	}
}

func (q *fakeQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

func (q *fakeQueue) Send(context.Context, models.ProcessingJob) error { return nil }

func (q *fakeQueue) Stats(context.Context) (queue.Depth, error) { return queue.Depth{}, nil }

func (q *fakeQueue) deletedHandles() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deleted...)
}

type fakeTenants struct {
	unknown map[string]bool
	err     error
}

func (t *fakeTenants) Exists(_ context.Context, tenantID string) (bool, error) {
	if t.err != nil {
		return false, t.err
	}
	return !t.unknown[tenantID], nil
}

type fakeHandler struct {
	mu        sync.Mutex
	processed []models.ProcessingJob
	failIDs   map[string]bool
	block     chan struct{}
}

func (h *fakeHandler) Process(ctx context.Context, job models.ProcessingJob) error {
	if h.block != nil {
		select {
		case <-h.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.mu.Lock()
	h.processed = append(h.processed, job)
	h.mu.Unlock()
	if h.failIDs[job.DocumentID] {
		return errors.New("processing blew up")
	}
	return nil
}

func (h *fakeHandler) processedIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.processed))
	for _, j := range h.processed {
		ids = append(ids, j.DocumentID)
	}
	return ids
}

func (h *fakeHandler) processedJobs() []models.ProcessingJob {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.ProcessingJob(nil), h.processed...)
}

func job(id, tenant string) models.ProcessingJob {
	return models.ProcessingJob{
		JobID:         "job-" + id,
		DocumentID:    id,
		TenantID:      tenant,
		Vertical:      models.VerticalAccounting,
		StorageKey:    "accounting-docs/" + tenant + "/" + id + ".pdf",
		ReceiptHandle: "rh-" + id,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestConsumerAcksSuccessfulJobs(t *testing.T) {
	q := &fakeQueue{pending: []models.ProcessingJob{job("doc-1", "t-1"), job("doc-2", "t-1")}}
	h := &fakeHandler{}

	c := NewConsumer(q, &fakeTenants{}, h, Config{Concurrency: 2, IdleBackoff: time.Millisecond}, logger.NewTestLogger())
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, func() bool { return len(q.deletedHandles()) == 2 })
	assert.ElementsMatch(t, []string{"doc-1", "doc-2"}, h.processedIDs())
	assert.ElementsMatch(t, []string{"rh-doc-1", "rh-doc-2"}, q.deletedHandles())
}

func TestConsumerLeavesFailedJobsUnacked(t *testing.T) {
	q := &fakeQueue{pending: []models.ProcessingJob{job("doc-bad", "t-1")}}
	h := &fakeHandler{failIDs: map[string]bool{"doc-bad": true}}

	c := NewConsumer(q, &fakeTenants{}, h, Config{Concurrency: 1, IdleBackoff: time.Millisecond}, logger.NewTestLogger())
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, func() bool { return len(h.processedIDs()) == 1 })
	assert.Empty(t, q.deletedHandles())
}

func TestConsumerDropsUnknownTenantWithoutProcessing(t *testing.T) {
	q := &fakeQueue{pending: []models.ProcessingJob{job("doc-1", "ghost")}}
	h := &fakeHandler{}

	c := NewConsumer(q, &fakeTenants{unknown: map[string]bool{"ghost": true}}, h,
		Config{Concurrency: 1, IdleBackoff: time.Millisecond}, logger.NewTestLogger())
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, func() bool { return len(q.deletedHandles()) == 1 })
	assert.Empty(t, h.processedIDs())
	assert.Equal(t, []string{"rh-doc-1"}, q.deletedHandles())
}

func TestConsumerBackfillsIdentityFromStorageKey(t *testing.T) {
	const tenant = "11111111-2222-3333-4444-555555555555"
	j := job("doc-1", tenant)
	j.TenantID = ""
	j.Vertical = ""
	q := &fakeQueue{pending: []models.ProcessingJob{j}}
	h := &fakeHandler{}

	c := NewConsumer(q, &fakeTenants{}, h, Config{Concurrency: 1, IdleBackoff: time.Millisecond}, logger.NewTestLogger())
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, func() bool { return len(q.deletedHandles()) == 1 })

	processed := h.processedJobs()
	require.Len(t, processed, 1)
	assert.Equal(t, tenant, processed[0].TenantID)
	assert.Equal(t, models.VerticalAccounting, processed[0].Vertical)
	assert.Equal(t, []string{"rh-doc-1"}, q.deletedHandles())
}

func TestConsumerBackfilledTenantIsStillValidated(t *testing.T) {
	const tenant = "11111111-2222-3333-4444-555555555555"
	j := job("doc-1", tenant)
	j.TenantID = ""
	q := &fakeQueue{pending: []models.ProcessingJob{j}}
	h := &fakeHandler{}

	c := NewConsumer(q, &fakeTenants{unknown: map[string]bool{tenant: true}}, h,
		Config{Concurrency: 1, IdleBackoff: time.Millisecond}, logger.NewTestLogger())
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, func() bool { return len(q.deletedHandles()) == 1 })
	assert.Empty(t, h.processedIDs())
}

func TestConsumerDropsJobWithUnrecoverableIdentity(t *testing.T) {
	j := models.ProcessingJob{
		JobID:         "job-x",
		StorageKey:    "uploads/not-a-recognized-layout.pdf",
		ReceiptHandle: "rh-x",
	}
	q := &fakeQueue{pending: []models.ProcessingJob{j}}
	h := &fakeHandler{}

	c := NewConsumer(q, &fakeTenants{}, h, Config{Concurrency: 1, IdleBackoff: time.Millisecond}, logger.NewTestLogger())
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, func() bool { return len(q.deletedHandles()) == 1 })
	assert.Empty(t, h.processedIDs())
	assert.Equal(t, []string{"rh-x"}, q.deletedHandles())
}

func TestConsumerDefersJobWhenValidatorUnavailable(t *testing.T) {
	q := &fakeQueue{pending: []models.ProcessingJob{job("doc-1", "t-1")}}
	h := &fakeHandler{}

	c := NewConsumer(q, &fakeTenants{err: errors.New("db down")}, h,
		Config{Concurrency: 1, IdleBackoff: time.Millisecond}, logger.NewTestLogger())
	c.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	c.Stop()

	assert.Empty(t, h.processedIDs())
	assert.Empty(t, q.deletedHandles())
}

func TestConsumerStopDrainsInFlightJob(t *testing.T) {
	q := &fakeQueue{pending: []models.ProcessingJob{job("doc-slow", "t-1")}}
	h := &fakeHandler{block: make(chan struct{})}

	c := NewConsumer(q, &fakeTenants{}, h,
		Config{Concurrency: 1, IdleBackoff: time.Millisecond, DrainTimeout: time.Second}, logger.NewTestLogger())
	c.Start(context.Background())

	waitFor(t, func() bool { return c.InFlight() == 1 })

	// Release the job while Stop is draining.
	go func() {
		time.Sleep(30 * time.Millisecond)
		close(h.block)
	}()
	c.Stop()

	assert.Equal(t, []string{"doc-slow"}, h.processedIDs())
	assert.Equal(t, []string{"rh-doc-slow"}, q.deletedHandles())
	assert.Equal(t, 0, c.InFlight())
}

func TestConsumerStopAbandonsJobAtDrainCeiling(t *testing.T) {
	q := &fakeQueue{pending: []models.ProcessingJob{job("doc-stuck", "t-1")}}
	h := &fakeHandler{block: make(chan struct{})}

	c := NewConsumer(q, &fakeTenants{}, h,
		Config{Concurrency: 1, IdleBackoff: time.Millisecond, DrainTimeout: 50 * time.Millisecond}, logger.NewTestLogger())
	c.Start(context.Background())

	waitFor(t, func() bool { return c.InFlight() == 1 })
	c.Stop()

	// The stuck job was cancelled, not acknowledged.
	assert.Empty(t, q.deletedHandles())
	require.Equal(t, 0, c.InFlight())
}
