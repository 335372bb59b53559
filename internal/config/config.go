package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	MigrationsDir string
	CORSOrigin    string
	LogLevel      string
	DevLog        bool
	// Redis - empty disables the snapshot cache
	RedisURL string
	CacheTTL time.Duration
	// Meilisearch - empty disables the index, search falls back to SQL
	MeiliURL       string
	MeiliMasterKey string
	// Answer provider
	GeminiModel   string
	AnswerTimeout time.Duration
	// Object archive - empty endpoint disables it
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	// PublicBaseURL prefixes share links printed on exported pages
	PublicBaseURL string
}

func Load() Config {
	return Config{
		Addr:           getenv("API_ADDR", ":8787"),
		DatabaseURL:    getenv("DATABASE_URL", "sqlite:./data/scholars.db"),
		MigrationsDir:  getenv("SCHOLARS_MIGRATIONS_DIR", "./db/migrations"),
		CORSOrigin:     getenv("SCHOLARS_CORS_ORIGIN", "*"),
		LogLevel:       getenv("SCHOLARS_LOG_LEVEL", "info"),
		DevLog:         getenvBool("SCHOLARS_DEV_LOG", false),
		RedisURL:       getenv("REDIS_URL", ""),
		CacheTTL:       getenvSeconds("SCHOLARS_CACHE_TTL_SECONDS", 86400),
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		GeminiModel:    getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		AnswerTimeout:  getenvSeconds("SCHOLARS_ANSWER_TIMEOUT_SECONDS", 20),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "scholars-shares"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
		PublicBaseURL:  strings.TrimRight(getenv("SCHOLARS_PUBLIC_BASE_URL", ""), "/"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvSeconds(key string, fallback int) time.Duration {
	seconds := getenvInt(key, fallback)
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

func getenvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
