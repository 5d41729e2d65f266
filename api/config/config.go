package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Application
	AppName       string
	PublicBaseURL string
	Port          string
	Environment   string

	// Database
	DatabaseURL string

	// AI gateway (OpenAI-compatible chat completions)
	AIAPIKey    string
	AIBaseURL   string
	AIModel     string
	AITimeoutMS int

	// Identity provider
	JWTSecret string

	// Storage
	StorageBackend string // local, minio
	UploadDir      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSecure    bool
	MaxImageMB     int

	// Geocoding
	Geocoder       string
	GeocoderAPIKey string

	// Escalation sweep
	RedisURL              string
	EscalationCronEnabled bool
	EscalationCron        string
	EscalationLockTTLSec  int

	// AI endpoint rate limiting (per caller, per IP when anonymous)
	AIRatePerSec float64
	AIRateBurst  int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppName:       getEnv("APP_NAME", "RevoCity"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		Port:          getEnv("PORT", "8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AIAPIKey:    getEnv("AI_API_KEY", ""),
		AIBaseURL:   getEnv("AI_BASE_URL", ""),
		AIModel:     getEnv("AI_MODEL", "google/gemini-2.5-flash"),
		AITimeoutMS: getEnvInt("AI_TIMEOUT_MS", 30000),

		JWTSecret: getEnv("JWT_SECRET", ""),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		UploadDir:      getEnv("UPLOAD_DIR", "/data/uploads"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "revocity-images"),
		MinioSecure:    getEnvBool("MINIO_SECURE", false),
		MaxImageMB:     getEnvInt("MAX_IMAGE_MB", 12),

		Geocoder:       getEnv("GEOCODER", "mapbox"),
		GeocoderAPIKey: getEnv("GEOCODER_API_KEY", ""),

		RedisURL:              getEnv("REDIS_URL", ""),
		EscalationCronEnabled: getEnvBool("ESCALATION_CRON_ENABLED", true),
		EscalationCron:        getEnv("ESCALATION_CRON", "*/15 * * * *"),
		EscalationLockTTLSec:  getEnvInt("ESCALATION_LOCK_TTL_SEC", 300),

		AIRatePerSec: getEnvFloat("AI_RATE_PER_SEC", 0.5),
		AIRateBurst:  getEnvInt("AI_RATE_BURST", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	required := map[string]string{
		"DATABASE_URL": c.DatabaseURL,
		"JWT_SECRET":   c.JWTSecret,
	}

	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("required environment variable %s is not set", name)
		}
	}

	switch c.StorageBackend {
	case "local":
	case "minio":
		if c.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_BACKEND=minio")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND: %s", c.StorageBackend)
	}

	if c.MaxImageMB <= 0 {
		return fmt.Errorf("MAX_IMAGE_MB must be positive")
	}

	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MaxImageBytes is the decoded size limit for uploaded images.
func (c *Config) MaxImageBytes() int {
	return c.MaxImageMB * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
