package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dokuflow/document-pipeline/internal/models"
)

// ErrMiss is returned when no cached status exists for a document.
var ErrMiss = errors.New("status not cached")

// DocumentStatus is the lightweight progress view served by the status API
// while a document is in flight. Postgres stays authoritative; the cache
// only absorbs polling traffic.
type DocumentStatus struct {
	DocumentID string                  `json:"documentId"`
	Status     models.ProcessingStatus `json:"status"`
	Progress   int                     `json:"progress"`
	Error      string                  `json:"error,omitempty"`
	UpdatedAt  time.Time               `json:"updatedAt"`
}

// StatusCache stores per-document progress snapshots in Redis.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how stale a crashed worker can leave an entry. Default 1h.
	TTL time.Duration
}

func New(cfg Config) *StatusCache {
	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}
	return &StatusCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: cfg.TTL,
	}
}

func statusKey(documentID string) string {
	return fmt.Sprintf("document:status:%s", documentID)
}

// Set writes a progress snapshot. Failures are non-fatal for the caller;
// the database keeps the authoritative record.
func (c *StatusCache) Set(ctx context.Context, st DocumentStatus) error {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	return c.client.Set(ctx, statusKey(st.DocumentID), data, c.ttl).Err()
}

// Get returns the cached snapshot or ErrMiss.
func (c *StatusCache) Get(ctx context.Context, documentID string) (*DocumentStatus, error) {
	data, err := c.client.Get(ctx, statusKey(documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var st DocumentStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &st, nil
}

// Ping reports cache reachability for health checks.
func (c *StatusCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *StatusCache) Close() error {
	return c.client.Close()
}
