package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	EmbedProvider  string
	GeminiAPIKey   string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	EmbedModel     string
	EmbedDim       int
	EmbedCacheSize int
	GenModel       string

	EmbeddingBatchSize int
	VectorBatchSize    int
	BatchesPerCall     int
	EmbedParallelism   int
	EmbedMaxChars      int
	RetryAttempts      int
	RetryInitialDelay  time.Duration
	UnitTimeout        time.Duration
	InvocationTimeout  time.Duration
	IngestWorkers      int

	JWTSecret   string
	CORSOrigins []string
	Port        string
	LogLevel    string
	LogJSON     bool
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	return &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "contexta-docs"),

		EmbedProvider:  getEnv("EMBED_PROVIDER", "gemini"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		EmbedModel:     getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:       getEnvInt("EMBED_DIM", 768),
		EmbedCacheSize: getEnvInt("EMBED_CACHE_SIZE", 4096),
		GenModel:       getEnv("GEN_MODEL", "gemini-1.5-flash"),

		EmbeddingBatchSize: getEnvInt("EMBEDDING_BATCH_SIZE", 50),
		VectorBatchSize:    getEnvInt("VECTOR_BATCH_SIZE", 50),
		BatchesPerCall:     getEnvInt("BATCHES_PER_CALL", 10),
		EmbedParallelism:   getEnvInt("EMBED_PARALLELISM", 4),
		EmbedMaxChars:      getEnvInt("EMBED_MAX_CHARS", 8000),
		RetryAttempts:      getEnvInt("RETRY_ATTEMPTS", 3),
		RetryInitialDelay:  getEnvDuration("RETRY_INITIAL_DELAY", time.Second),
		UnitTimeout:        getEnvDuration("UNIT_TIMEOUT", 90*time.Second),
		InvocationTimeout:  getEnvDuration("INVOCATION_TIMEOUT", 120*time.Second),
		IngestWorkers:      getEnvInt("INGEST_WORKERS", 2),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogJSON:     getEnvBool("LOG_JSON", false),
	}
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Default().Warn("env value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Default().Warn("env value is not a bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Default().Warn("env value is not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
