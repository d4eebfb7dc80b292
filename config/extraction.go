package config

import (
	"sync"
	"time"
)

var (
	extractionOnce   sync.Once
	extractionConfig *ExtractionConfig
)

type ExtractionConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	EmbedModel string

	CallTimeout     time.Duration
	CombinedTimeout time.Duration
	MaxAttempts     int
	RetryBaseDelay  time.Duration

	// Size thresholds for the extraction strategy router.
	SmallThresholdBytes int64
	LargeThresholdBytes int64
}

func GetExtractionConfig() *ExtractionConfig {
	extractionOnce.Do(func() {
		loadEnv()
		extractionConfig = &ExtractionConfig{
			BaseURL:             getEnv("EXTRACTION_BASE_URL", "http://localhost:8081"),
			APIKey:              getEnv("EXTRACTION_API_KEY", ""),
			Model:               getEnv("EXTRACTION_MODEL", "document-extractor-v2"),
			EmbedModel:          getEnv("EMBEDDING_MODEL", "text-embed-v1"),
			CallTimeout:         getEnvDuration("EXTRACTION_CALL_TIMEOUT", 60*time.Second),
			CombinedTimeout:     getEnvDuration("EXTRACTION_COMBINED_TIMEOUT", 90*time.Second),
			MaxAttempts:         getEnvInt("EXTRACTION_MAX_ATTEMPTS", 3),
			RetryBaseDelay:      getEnvDuration("EXTRACTION_RETRY_BASE_DELAY", time.Second),
			SmallThresholdBytes: int64(getEnvInt("EXTRACTION_SMALL_THRESHOLD", 500*1024)),
			LargeThresholdBytes: int64(getEnvInt("EXTRACTION_LARGE_THRESHOLD", 2*1024*1024)),
		}
	})
	return extractionConfig
}
