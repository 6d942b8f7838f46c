package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Realtime RealtimeConfig
	Storage  StorageConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
}

type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	FlagCacheTTL   time.Duration
}

type RealtimeConfig struct {
	URL            string
	BaseRetryDelay time.Duration
	MaxRetries     int
	WriteWait      time.Duration
}

type StorageConfig struct {
	Path string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "vecta-client.log"),
		},
		Backend: BackendConfig{
			BaseURL:        getEnv("VECTA_API_BASE_URL", "http://localhost:8000"),
			RequestTimeout: getEnvAsDuration("VECTA_API_TIMEOUT", 30*time.Second),
			FlagCacheTTL:   getEnvAsDuration("VECTA_FLAG_CACHE_TTL", 5*time.Minute),
		},
		Realtime: RealtimeConfig{
			URL:            getEnv("VECTA_WS_URL", "ws://localhost:8000/ws/advisory"),
			BaseRetryDelay: getEnvAsDuration("VECTA_WS_BASE_RETRY_DELAY", time.Second),
			MaxRetries:     getEnvAsInt("VECTA_WS_MAX_RETRIES", 5),
			WriteWait:      getEnvAsDuration("VECTA_WS_WRITE_WAIT", 10*time.Second),
		},
		Storage: StorageConfig{
			Path: getEnv("VECTA_STORAGE_PATH", "vecta.db"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
