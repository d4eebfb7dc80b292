package config

import (
	"sync"
	"time"
)

var (
	workerOnce   sync.Once
	workerConfig *WorkerConfig
)

type WorkerConfig struct {
	Concurrency  int
	DrainTimeout time.Duration
	StorageType  string
}

func GetWorkerConfig() *WorkerConfig {
	workerOnce.Do(func() {
		loadEnv()
		workerConfig = &WorkerConfig{
			Concurrency:  getEnvInt("WORKER_CONCURRENCY", 3),
			DrainTimeout: getEnvDuration("WORKER_DRAIN_TIMEOUT", 5*time.Minute),
			StorageType:  getEnv("STORAGE_TYPE", "s3"),
		}
	})
	return workerConfig
}
