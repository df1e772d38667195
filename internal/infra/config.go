package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DefaultLocale string
	CORSOrigins   []string
	JWTSecret     string
	GeoIPDBPath   string

	ReplicateBaseURL     string
	ReplicateAPIToken    string
	ReplicateReadToken   string
	RestoreModelVersion  string
	ColorizeModelVersion string
	UpstreamTimeout      time.Duration

	StorageBackend   string
	StoragePath      string
	StorageBaseURL   string
	S3Bucket         string
	S3Region         string
	S3Prefix         string
	S3PresignTTL     time.Duration
	MaxUploadBytes   int64
	MaxImageEdge     int
	QuotaBackend     string
	QuotaLimit       int
	QuotaPeriod      string
	QuotaRequireAuth bool
	QuotaRetention   time.Duration
	DatabaseURL      string
	RedisAddr        string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

const (
	defaultRestoreVersion  = "85ae46551612b8f778348846b6ce1ce1b340e384fe2062399c0c412be29e107d"
	defaultColorizeVersion = "0da600fab0c45a66211339f1c16b71345d22f26ef5fea3dca1bb90bb5711e950"
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 port,
		DefaultLocale:        getEnv("DEFAULT_LOCALE", "en"),
		CORSOrigins:          splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		GeoIPDBPath:          os.Getenv("GEOIP_DB_PATH"),
		ReplicateBaseURL:     getEnv("REPLICATE_API_BASE", "https://api.replicate.com/v1"),
		ReplicateAPIToken:    os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateReadToken:   os.Getenv("REPLICATE_READ_TOKEN"),
		RestoreModelVersion:  getEnv("REPLICATE_RESTORE_VERSION", defaultRestoreVersion),
		ColorizeModelVersion: getEnv("REPLICATE_COLORIZE_VERSION", defaultColorizeVersion),
		UpstreamTimeout:      time.Second * time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 60)),
		StorageBackend:       strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		StoragePath:          getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:       getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		S3Bucket:             os.Getenv("S3_BUCKET"),
		S3Region:             os.Getenv("S3_REGION"),
		S3Prefix:             os.Getenv("S3_PREFIX"),
		S3PresignTTL:         time.Minute * time.Duration(getEnvInt("S3_PRESIGN_TTL_MINUTES", 60)),
		MaxUploadBytes:       int64(getEnvInt("MAX_UPLOAD_BYTES", 8<<20)),
		MaxImageEdge:         getEnvInt("MAX_IMAGE_DIMENSION", 2048),
		QuotaBackend:         strings.ToLower(getEnv("QUOTA_BACKEND", "memory")),
		QuotaLimit:           getEnvInt("QUOTA_LIMIT", 5),
		QuotaPeriod:          strings.ToLower(getEnv("QUOTA_PERIOD", "day")),
		QuotaRequireAuth:     getEnvBool("QUOTA_REQUIRE_AUTH", false),
		QuotaRetention:       24 * time.Hour * time.Duration(getEnvInt("QUOTA_RETENTION_DAYS", 7)),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:      getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	switch cfg.StorageBackend {
	case "local", "none":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	switch cfg.QuotaBackend {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when QUOTA_BACKEND=postgres")
		}
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when QUOTA_BACKEND=redis")
		}
	default:
		return nil, fmt.Errorf("unsupported QUOTA_BACKEND %q", cfg.QuotaBackend)
	}

	if cfg.QuotaPeriod != "day" && cfg.QuotaPeriod != "month" {
		return nil, fmt.Errorf("QUOTA_PERIOD must be day or month, got %q", cfg.QuotaPeriod)
	}
	if cfg.QuotaLimit < 0 {
		return nil, fmt.Errorf("QUOTA_LIMIT must not be negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
