package config

import "sync"

var (
	serverOnce   sync.Once
	serverConfig *ServerConfig
)

type ServerConfig struct {
	Port string
	// MaxUploadBytes caps multipart uploads.
	MaxUploadBytes int64
	AllowedOrigins []string
}

func GetServerConfig() *ServerConfig {
	serverOnce.Do(func() {
		loadEnv()
		serverConfig = &ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 32*1024*1024)),
			AllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGIN", "*")},
		}
	})
	return serverConfig
}
