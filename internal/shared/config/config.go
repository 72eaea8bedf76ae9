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
	CORSAllowOrigin []string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	AnalyzerEndpoint     string
	AnalyzerKey          string
	AnalyzerAPIVersion   string
	AnalyzerTimeout      time.Duration
	AnalyzerPollInterval time.Duration

	QueueURL      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MaxUploadBytes   int64
	ProcessingMaxAge time.Duration
	SweepInterval    time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience. godotenv never
	// overrides variables already present in the environment.
	_ = godotenv.Load(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	redisDB, _ := strconv.Atoi(strings.TrimSpace(getEnv("REDIS_DB", "0")))

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		AnalyzerEndpoint:     strings.TrimRight(getEnv("AZURE_DI_ENDPOINT", ""), "/"),
		AnalyzerKey:          getEnv("AZURE_DI_KEY", ""),
		AnalyzerAPIVersion:   getEnv("AZURE_DI_API_VERSION", "2023-07-31"),
		AnalyzerTimeout:      time.Duration(getEnvInt("AZURE_DI_TIMEOUT_SECONDS", 120)) * time.Second,
		AnalyzerPollInterval: time.Duration(getEnvInt("ANALYZER_POLL_INTERVAL_MS", 1500)) * time.Millisecond,

		QueueURL:      getEnv("IV_SQS_QUEUE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 15)) << 20,
		ProcessingMaxAge: time.Duration(getEnvInt("PROCESSING_MAX_AGE_MINUTES", 15)) * time.Minute,
		SweepInterval:    time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 5)) * time.Minute,
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || val <= 0 {
		log.Printf("ignoring invalid %s=%q", key, raw)
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
