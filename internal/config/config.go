// Package config provides configuration loading for the comfybridge worker.
package config

import (
	"os"
	"strconv"
	"time"
)

// Monitor modes select the execution-monitoring strategy at startup.
const (
	MonitorModeStream = "stream"
	MonitorModePoll   = "poll"
)

// Config holds all configuration for the worker.
type Config struct {
	// Server configuration
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	ShutdownGrace time.Duration

	// Engine (ComfyUI) configuration
	ComfyHost     string // host:port of the engine HTTP surface
	ComfyDir      string // working directory the engine process is started from
	PythonBin     string // interpreter used to launch the engine
	ManagedEngine bool   // false = never start the process, only probe it

	// Readiness probing
	ProbeAttempts int
	ProbeInterval time.Duration

	// Monitoring
	MonitorMode        string // "stream" or "poll"
	WSReconnectTries   int
	WSReconnectDelay   time.Duration
	WSHandshakeTimeout time.Duration
	PollTimeout        time.Duration
	PollInterval       time.Duration

	// Artifact upload (S3/MinIO); empty endpoint and bucket = inline base64
	BucketEndpointURL string
	BucketName        string
	BucketRegion      string
	BucketAccessKey   string
	BucketSecretKey   string
	BucketUseSSL      bool
	BucketPrefix      string
	PresignExpiry     time.Duration

	// Job record store
	StoreType       string // "memory" or "redis"
	StoreTTL        time.Duration
	StoreMaxRecords int
	RedisURL        string
	RedisPassword   string
	RedisDB         int

	// Input validation
	StrictWorkflowSchema bool

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Tracing
	TracingEnabled  bool
	OTLPEndpoint    string
	TraceSampleRate float64

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		// Server
		Port:          getEnv("PORT", "8000"),
		ReadTimeout:   getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:  getDuration("WRITE_TIMEOUT", 15*time.Minute),
		ShutdownGrace: getDuration("SHUTDOWN_GRACE", 10*time.Second),

		// Engine
		ComfyHost:     getEnv("COMFY_HOST", "127.0.0.1:8188"),
		ComfyDir:      getEnv("COMFYUI_DIR", "/comfyui"),
		PythonBin:     getEnv("COMFY_PYTHON", "python3"),
		ManagedEngine: getBool("COMFY_MANAGED", true),

		// Readiness probing
		ProbeAttempts: getInt("COMFY_API_AVAILABLE_MAX_RETRIES", 500),
		ProbeInterval: time.Duration(getInt("COMFY_API_AVAILABLE_INTERVAL_MS", 50)) * time.Millisecond,

		// Monitoring
		MonitorMode:        getEnv("MONITOR_MODE", MonitorModeStream),
		WSReconnectTries:   getInt("WEBSOCKET_RECONNECT_ATTEMPTS", 5),
		WSReconnectDelay:   time.Duration(getInt("WEBSOCKET_RECONNECT_DELAY_S", 3)) * time.Second,
		WSHandshakeTimeout: getDuration("WEBSOCKET_HANDSHAKE_TIMEOUT", 10*time.Second),
		PollTimeout:        getDuration("POLL_TIMEOUT", 600*time.Second),
		PollInterval:       getDuration("POLL_INTERVAL", time.Second),

		// Artifact upload
		BucketEndpointURL: getEnv("BUCKET_ENDPOINT_URL", ""),
		BucketName:        getEnv("BUCKET_NAME", ""),
		BucketRegion:      getEnv("BUCKET_REGION", ""),
		BucketAccessKey:   getEnv("BUCKET_ACCESS_KEY_ID", ""),
		BucketSecretKey:   getEnv("BUCKET_SECRET_ACCESS_KEY", ""),
		BucketUseSSL:      getBool("BUCKET_USE_SSL", false),
		BucketPrefix:      getEnv("BUCKET_PREFIX", ""),
		PresignExpiry:     getDuration("BUCKET_PRESIGN_EXPIRY", 24*time.Hour),

		// Job record store
		StoreType:       getEnv("JOBSTORE", "memory"),
		StoreTTL:        getDuration("JOBSTORE_TTL", 24*time.Hour),
		StoreMaxRecords: getInt("JOBSTORE_MAX_RECORDS", 1000),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getInt("REDIS_DB", 0),

		// Input validation
		StrictWorkflowSchema: getBool("WORKFLOW_SCHEMA_STRICT", false),

		// Rate limiting
		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 10.0),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 20),

		// Tracing
		TracingEnabled:  getBool("TRACING_ENABLED", false),
		OTLPEndpoint:    getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TraceSampleRate: getFloat("TRACE_SAMPLE_RATE", 1.0),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
