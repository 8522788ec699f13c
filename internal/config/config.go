package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// OpenAI provider
	OpenAIKey     string
	OpenAIBaseURL string
	ChatModel     string

	// Cost governance
	DailyCostCapUSD float64

	// Media intake
	MaxUploadBytes     int64
	SyncThresholdBytes int64
	TempDir            string

	// Rate limiting
	RateLimitWindow time.Duration
	RateLimitMax    int
	TrustedHosts    []string

	// Async dispatch (external queue worker)
	DispatchURL   string
	DispatchToken string

	// Daily spend counter store (Upstash Redis REST)
	UpstashURL   string
	UpstashToken string

	// Blob staging for queued payloads
	Minio MinioConfig
}

// MinioConfig configures the object store used to stage oversized payloads.
type MinioConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		ChatModel:          getEnv("OPENAI_CHAT_MODEL", "gpt-4o"),
		DailyCostCapUSD:    getEnvFloat("DAILY_COST_CAP", 5.0),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 100*1024*1024),
		SyncThresholdBytes: getEnvInt64("SYNC_THRESHOLD_BYTES", 20*1024*1024),
		TempDir:            getEnv("TEMP_DIR", os.TempDir()),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", 10*time.Minute),
		RateLimitMax:       getEnvInt("RATE_LIMIT_MAX", 3),
		DispatchURL:        os.Getenv("DISPATCH_URL"),
		DispatchToken:      os.Getenv("DISPATCH_TOKEN"),
		UpstashURL:         os.Getenv("UPSTASH_REDIS_REST_URL"),
		UpstashToken:       os.Getenv("UPSTASH_REDIS_REST_TOKEN"),
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			Bucket:    getEnv("MINIO_BUCKET", "showscribe"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
	}

	if host := os.Getenv("TRUSTED_PREVIEW_HOST"); host != "" {
		cfg.TrustedHosts = append(cfg.TrustedHosts, host)
	}

	// Validate required environment variables
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required. Please set it as environment variable:\n  Linux/Mac: export OPENAI_API_KEY=\"your_key\"\n  Windows PowerShell: $env:OPENAI_API_KEY=\"your_key\"")
	}

	if cfg.DailyCostCapUSD <= 0 {
		return nil, fmt.Errorf("DAILY_COST_CAP must be positive, got %v", cfg.DailyCostCapUSD)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
