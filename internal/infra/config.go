package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment
// variables. It is built once at startup and injected; nothing reads the
// environment after LoadConfig returns.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// PublicBaseURL is the externally reachable base of this service, used to
	// build shopper try-on links embedded in QR codes.
	PublicBaseURL string

	YouCamAPIKey  string
	YouCamBaseURL string

	VisionAPIKey  string
	VisionBaseURL string
	VisionModel   string

	// StorageBackend selects the blob store: "minio" or "filesystem".
	StorageBackend     string
	StoragePath        string
	StorageBaseURL     string
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioUseSSL        bool
	MinioPublicBaseURL string

	CORSAllowedOrigins []string

	ProviderTimeout  time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),

		YouCamAPIKey:  os.Getenv("YOUCAM_API_KEY"),
		YouCamBaseURL: getEnv("YOUCAM_BASE_URL", "https://yce-api-01.makeupar.com"),

		VisionAPIKey:  os.Getenv("VISION_API_KEY"),
		VisionBaseURL: getEnv("VISION_BASE_URL", "https://text.pollinations.ai/openai"),
		VisionModel:   getEnv("VISION_MODEL", "openai"),

		StorageBackend:     getEnv("STORAGE_BACKEND", "filesystem"),
		StoragePath:        getEnv("STORAGE_PATH", "./data/blobs"),
		MinioEndpoint:      os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:        getEnv("MINIO_BUCKET", "tryon-assets"),
		MinioUseSSL:        getEnvBool("MINIO_USE_SSL", true),
		MinioPublicBaseURL: os.Getenv("MINIO_PUBLIC_BASE_URL"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		ProviderTimeout:  time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 30)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	cfg.StorageBaseURL = getEnv("STORAGE_BASE_URL", "http://localhost:"+cfg.Port+"/static")

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.YouCamAPIKey == "" {
		return nil, fmt.Errorf("YOUCAM_API_KEY is required")
	}
	if cfg.StorageBackend == "minio" && cfg.MinioEndpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_BACKEND=minio")
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
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
