package worker

import (
	"context"
	"sync"
	"time"

	"github.com/dokuflow/document-pipeline/internal/models"
	"github.com/dokuflow/document-pipeline/internal/utils/validator"
	"github.com/dokuflow/document-pipeline/pkg/logger"
	"github.com/dokuflow/document-pipeline/pkg/queue"
)

// Handler processes one job to completion. A returned error leaves the job
// unacknowledged so the queue redelivers it after the visibility window.
type Handler interface {
	Process(ctx context.Context, job models.ProcessingJob) error
}

// TenantValidator answers whether a job's tenant is known. Unknown tenants
// are acknowledged and dropped; a validator error defers the job instead.
type TenantValidator interface {
	Exists(ctx context.Context, tenantID string) (bool, error)
}

// Config tunes the pool.
type Config struct {
	// Concurrency is the number of poll loops; each handles one job at a
	// time. Default 3.
	Concurrency int
	// DrainTimeout bounds how long Stop waits for in-flight jobs.
	// Default 5m.
	DrainTimeout time.Duration
	// IdleBackoff is the pause after a failed receive. Default 5s.
	IdleBackoff time.Duration
}

func (c *Config) applyDefaults() {
	if c.Concurrency == 0 {
		c.Concurrency = 3
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = 5 * time.Minute
	}
	if c.IdleBackoff == 0 {
		c.IdleBackoff = 5 * time.Second
	}
}

// Consumer runs a fixed pool of poll loops against the job queue.
type Consumer struct {
	queue   queue.Queue
	tenants TenantValidator
	handler Handler
	cfg     Config
	logger  logger.Logger

	mu       sync.Mutex
	inflight map[string]struct{}

	pollCtx    context.Context
	stopPoll   context.CancelFunc
	procCtx    context.Context
	abortProc  context.CancelFunc
	wg         sync.WaitGroup
	started    bool
}

func NewConsumer(q queue.Queue, tenants TenantValidator, handler Handler, cfg Config, log logger.Logger) *Consumer {
	cfg.applyDefaults()
	return &Consumer{
		queue:    q,
		tenants:  tenants,
		handler:  handler,
		cfg:      cfg,
		logger:   log,
		inflight: make(map[string]struct{}),
	}
}

// Start launches the poll loops. It returns immediately.
func (c *Consumer) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.pollCtx, c.stopPoll = context.WithCancel(ctx)
	// Processing survives poll shutdown so in-flight jobs can drain.
	c.procCtx, c.abortProc = context.WithCancel(context.Background())
	c.mu.Unlock()

	for i := 0; i < c.cfg.Concurrency; i++ {
		c.wg.Add(1)
		go c.pollLoop(i)
	}

	c.logger.Info("Worker pool started", logger.Int("concurrency", c.cfg.Concurrency))
}

// Stop halts polling and waits for in-flight jobs up to the drain ceiling.
// Jobs still running at the ceiling are abandoned unacknowledged and will be
// redelivered.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.stopPoll()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Worker pool drained")
	case <-time.After(c.cfg.DrainTimeout):
		c.logger.Warn("Drain ceiling reached, abandoning in-flight jobs",
			logger.Int("in_flight", c.InFlight()),
		)
		c.abortProc()
		<-done
	}
	c.abortProc()
}

// InFlight reports how many jobs are currently being processed.
func (c *Consumer) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

func (c *Consumer) pollLoop(id int) {
	defer c.wg.Done()
	log := c.logger.With(logger.Int("worker", id))

	for {
		select {
		case <-c.pollCtx.Done():
			return
		default:
		}

		jobs, err := c.queue.Receive(c.pollCtx, 1)
		if err != nil {
			if c.pollCtx.Err() != nil {
				return
			}
			log.Warn("Receive failed, backing off", logger.Error(err))
			select {
			case <-time.After(c.cfg.IdleBackoff):
			case <-c.pollCtx.Done():
				return
			}
			continue
		}

		for _, job := range jobs {
			c.handle(log, job)
		}
	}
}

func (c *Consumer) handle(log logger.Logger, job models.ProcessingJob) {
	c.track(job.JobID, true)
	defer c.track(job.JobID, false)

	log = log.With(
		logger.String("job_id", job.JobID),
		logger.Int("delivery_attempt", job.DeliveryAttempt),
	)

	// Messages may arrive with incomplete attributes; the storage key path
	// names the vertical, tenant and document and is the fallback identity
	// source. A job whose key cannot be parsed either is unprocessable.
	if job.DocumentID == "" || job.TenantID == "" || job.Vertical == "" {
		sk, err := validator.ParseStorageKey(job.StorageKey)
		if err != nil {
			log.Error("Job identity incomplete and storage key unparseable, dropping job",
				logger.String("storage_key", job.StorageKey),
				logger.Error(err),
			)
			c.ack(log, job)
			return
		}
		if job.DocumentID == "" {
			job.DocumentID = sk.DocumentID
		}
		if job.TenantID == "" {
			job.TenantID = sk.TenantID
		}
		if job.Vertical == "" {
			job.Vertical = sk.Vertical
		}
	}

	log = log.With(
		logger.String("document_id", job.DocumentID),
		logger.String("tenant_id", job.TenantID),
	)

	ok, err := c.tenants.Exists(c.procCtx, job.TenantID)
	if err != nil {
		// Cannot tell valid from invalid; leave the job for redelivery.
		log.Warn("Tenant validation unavailable, deferring job", logger.Error(err))
		return
	}
	if !ok {
		log.Warn("Unknown tenant, dropping job")
		c.ack(log, job)
		return
	}

	started := time.Now()
	if err := c.handler.Process(c.procCtx, job); err != nil {
		log.Error("Job failed, leaving unacknowledged for redelivery",
			logger.Duration("elapsed", time.Since(started)),
			logger.Error(err),
		)
		return
	}

	log.Info("Job complete", logger.Duration("elapsed", time.Since(started)))
	c.ack(log, job)
}

func (c *Consumer) ack(log logger.Logger, job models.ProcessingJob) {
	// Use a fresh context: the job outcome is decided and the delete
	// should not be lost to shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.queue.Delete(ctx, job.ReceiptHandle); err != nil {
		// The job will be redelivered; processing is idempotent.
		log.Warn("Failed to acknowledge job", logger.Error(err))
	}
}

func (c *Consumer) track(jobID string, add bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if add {
		c.inflight[jobID] = struct{}{}
	} else {
		delete(c.inflight, jobID)
	}
}
