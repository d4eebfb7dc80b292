package config

import (
	"sync"
	"time"
)

var (
	queueOnce   sync.Once
	queueConfig *QueueConfig
)

type QueueConfig struct {
	QueueURL string
	Region   string
	// VisibilityTimeout must cover the longest processing pass.
	VisibilityTimeout time.Duration
	WaitTime          time.Duration
}

func GetQueueConfig() *QueueConfig {
	queueOnce.Do(func() {
		loadEnv()
		queueConfig = &QueueConfig{
			QueueURL:          getEnv("SQS_QUEUE_URL", ""),
			Region:            getEnv("AWS_REGION", "ap-southeast-1"),
			VisibilityTimeout: getEnvDuration("SQS_VISIBILITY_TIMEOUT", 15*time.Minute),
			WaitTime:          getEnvDuration("SQS_WAIT_TIME", 20*time.Second),
		}
	})
	return queueConfig
}
