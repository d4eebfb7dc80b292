package document

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/dokuflow/document-pipeline/config"
	"github.com/dokuflow/document-pipeline/internal/embeddings"
	"github.com/dokuflow/document-pipeline/internal/extractor"
	"github.com/dokuflow/document-pipeline/internal/repository"
	"github.com/dokuflow/document-pipeline/pkg/aiclient"
	"github.com/dokuflow/document-pipeline/pkg/cache"
	"github.com/dokuflow/document-pipeline/pkg/logger"
	"github.com/dokuflow/document-pipeline/pkg/queue"
	"github.com/dokuflow/document-pipeline/pkg/storage"
)

// Runtime bundles the service with the shared infrastructure the
// entrypoints also need for health checks, metrics and the worker pool.
type Runtime struct {
	Service Service
	Store   *repository.Store
	Cache   *cache.StatusCache
	Queue   queue.Queue
	AI      aiclient.Client
}

// BuildRuntime wires the full pipeline from environment configuration.
func BuildRuntime(ctx context.Context, log logger.Logger) (*Runtime, error) {
	store, err := repository.NewStore(ctx, config.GetDatabaseConfig().DSN(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	redisCfg := config.GetRedisConfig()
	statusCache := cache.New(cache.Config{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
		TTL:      redisCfg.StatusTTL,
	})

	queueCfg := config.GetQueueConfig()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(queueCfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	jobQueue := queue.NewSQSQueue(sqs.NewFromConfig(awsCfg), queue.SQSConfig{
		QueueURL:          queueCfg.QueueURL,
		VisibilityTimeout: queueCfg.VisibilityTimeout,
		WaitTime:          queueCfg.WaitTime,
	}, log)

	objects, err := storage.NewStorage(storage.StorageType(config.GetWorkerConfig().StorageType), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	extractionCfg := config.GetExtractionConfig()
	ai := aiclient.NewClient(aiclient.Config{
		BaseURL:         extractionCfg.BaseURL,
		APIKey:          extractionCfg.APIKey,
		Model:           extractionCfg.Model,
		EmbedModel:      extractionCfg.EmbedModel,
		CallTimeout:     extractionCfg.CallTimeout,
		CombinedTimeout: extractionCfg.CombinedTimeout,
		MaxAttempts:     extractionCfg.MaxAttempts,
		RetryBaseDelay:  extractionCfg.RetryBaseDelay,
	}, log)

	router := extractor.NewRouter(ai, extractor.Config{
		SmallThreshold: extractionCfg.SmallThresholdBytes,
		LargeThreshold: extractionCfg.LargeThresholdBytes,
	}, log)
	embedder := embeddings.NewGenerator(ai, embeddings.Config{}, log)

	svc := NewService(store.Documents, objects, router, embedder, statusCache, jobQueue, log)

	return &Runtime{
		Service: svc,
		Store:   store,
		Cache:   statusCache,
		Queue:   jobQueue,
		AI:      ai,
	}, nil
}
