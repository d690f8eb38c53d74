package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

type Config struct {
	App        AppConfig
	API        APIConfig
	Cloudinary CloudinaryConfig
	Upload     UploadConfig
	Queue      QueueConfig
	Worker     WorkerConfig
	Storage    StorageConfig
	Database   DatabaseConfig
	Tracing    TracingConfig
	RateLimit  RateLimitConfig
	Webhook    WebhookConfig
}

type AppConfig struct {
	Env string
}

func (a AppConfig) Development() bool {
	return a.Env == "development"
}

type APIConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
}

// CloudinaryConfig holds the account credentials. Empty values are allowed at
// startup; the client reports them on its first remote call.
type CloudinaryConfig struct {
	CloudName   string
	APIKey      string
	APISecret   string
	APIURL      string
	DeliveryURL string
	Timeout     time.Duration
}

type UploadConfig struct {
	TempDir string
}

type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Name          string
	Enabled       bool
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

type WorkerConfig struct {
	Concurrency    int
	MaxActiveTasks int
	MetricsAddr    string
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// DatabaseConfig selects the edit store. An empty DSN keeps edits in memory.
type DatabaseConfig struct {
	DSN string
}

type TracingConfig struct {
	ServiceName  string
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

type RateLimitConfig struct {
	Enabled  bool
	Capacity int
	Window   time.Duration
}

type WebhookConfig struct {
	SigningSecret  string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func Load() Config {
	defaultWorkerSlots := max(1, runtime.NumCPU()/2)

	return Config{
		App: AppConfig{
			Env: strings.ToLower(env("APP_ENV", "development")),
		},
		API: APIConfig{
			Addr:           env("IMGREPLACE_API_ADDR", ":8080"),
			ReadTimeout:    envDuration("IMGREPLACE_API_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   envDuration("IMGREPLACE_API_WRITE_TIMEOUT", 2*time.Minute),
			IdleTimeout:    envDuration("IMGREPLACE_API_IDLE_TIMEOUT", 60*time.Second),
			MaxUploadBytes: int64(envInt("IMGREPLACE_MAX_UPLOAD_BYTES", 20<<20)),
		},
		Cloudinary: CloudinaryConfig{
			CloudName:   env("CLOUD_NAME", ""),
			APIKey:      env("API_KEY", ""),
			APISecret:   env("API_SECRET", ""),
			APIURL:      env("CLOUDINARY_API_URL", "https://api.cloudinary.com"),
			DeliveryURL: env("CLOUDINARY_DELIVERY_URL", "https://res.cloudinary.com"),
			Timeout:     envDuration("CLOUDINARY_TIMEOUT", 90*time.Second),
		},
		Upload: UploadConfig{
			TempDir: env("IMGREPLACE_TEMP_DIR", os.TempDir()),
		},
		Queue: QueueConfig{
			RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisDB:       envInt("REDIS_DB", 0),
			Name:          env("ASYNC_QUEUE", "default"),
			Enabled:       envBool("IMGREPLACE_NOTIFY_ENABLED", false),
		},
		Worker: WorkerConfig{
			Concurrency:    envInt("WORKER_CONCURRENCY", max(2, runtime.NumCPU())),
			MaxActiveTasks: envInt("WORKER_MAX_ACTIVE_TASKS", defaultWorkerSlots),
			MetricsAddr:    env("WORKER_METRICS_ADDR", ":9091"),
		},
		Storage: StorageConfig{
			Enabled:   envBool("IMGREPLACE_STORAGE_ENABLED", false),
			Endpoint:  env("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: env("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: env("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    env("MINIO_BUCKET", "imgreplace-outputs"),
			UseSSL:    envBool("MINIO_USE_SSL", false),
		},
		Database: DatabaseConfig{
			DSN: env("POSTGRES_DSN", ""),
		},
		Tracing: TracingConfig{
			ServiceName:  env("OTEL_SERVICE_NAME", "imgreplace"),
			Exporter:     env("OTEL_TRACES_EXPORTER", "none"),
			OTLPEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
		RateLimit: RateLimitConfig{
			Enabled:  envBool("IMGREPLACE_RATE_LIMIT_ENABLED", false),
			Capacity: envInt("IMGREPLACE_RATE_LIMIT_CAPACITY", 10),
			Window:   envDuration("IMGREPLACE_RATE_LIMIT_WINDOW", time.Minute),
		},
		Webhook: WebhookConfig{
			SigningSecret:  env("WEBHOOK_SIGNING_SECRET", ""),
			Timeout:        envDuration("WEBHOOK_TIMEOUT", 10*time.Second),
			MaxAttempts:    envInt("WEBHOOK_MAX_ATTEMPTS", 3),
			InitialBackoff: envDuration("WEBHOOK_INITIAL_BACKOFF", time.Second),
			MaxBackoff:     envDuration("WEBHOOK_MAX_BACKOFF", 10*time.Second),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
