package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogFormat       string
	CORSAllowOrigin []string
	StartPath       string

	BackendBaseURL    string
	BackendUpdatePath string
	BackendTimeout    time.Duration
	BreakerEnabled    bool
	BreakerMinCalls   uint32
	BreakerFailRatio  float64
	BreakerOpenFor    time.Duration

	SessionDBPath string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "json")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		StartPath:       getEnv("START_PATH", "/"),

		BackendBaseURL:    strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:8000/api"), "/"),
		BackendUpdatePath: normalizeUpdatePath(getEnv("BACKEND_UPDATE_PATH", "/update")),
		BackendTimeout:    time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 120)) * time.Second,
		BreakerEnabled:    getEnvBool("BACKEND_BREAKER_ENABLED", true),
		BreakerMinCalls:   uint32(getEnvInt("BACKEND_BREAKER_MIN_REQUESTS", 5)),
		BreakerFailRatio:  getEnvFloat("BACKEND_BREAKER_FAILURE_RATIO", 0.8),
		BreakerOpenFor:    time.Duration(getEnvInt("BACKEND_BREAKER_OPEN_SECONDS", 30)) * time.Second,

		SessionDBPath: getEnv("SESSION_DB_PATH", "./data/session.db"),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data/exports"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		RateLimitPerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND", 2),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		// Load never overrides variables already present in the environment.
		if err := godotenv.Load(path); err != nil {
			log.Printf("config: ignoring %s: %v", path, err)
		}
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val < 0 {
		log.Printf("config: %s invalid float %q, using %v", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// normalizeUpdatePath accepts both endpoint names seen in the wild.
// Whichever is configured is used as-is; there is no fallback between them.
func normalizeUpdatePath(raw string) string {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "/update"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}
