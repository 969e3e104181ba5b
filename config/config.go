package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultServiceKey is the development fallback for SERVICE_API_KEY.
// It MUST be overridden in production deployments.
const DefaultServiceKey = "spatial-studio-internal-2025"

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Vision   VisionConfig
	Upload   UploadConfig
	App      AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint  string // S3-compatible API endpoint
	PublicURL string // base URL public object links are composed from
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

type AuthConfig struct {
	ServiceKey      string
	CredentialsPath string // Firebase service account JSON
}

type VisionConfig struct {
	AnthropicAPIKey string
}

type UploadConfig struct {
	RateRPS   float64
	RateBurst int
}

type AppConfig struct {
	Environment   string
	LogLevel      string
	Version       string
	SweepSchedule string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "spatial_studio"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			PublicURL: getEnv("STORAGE_PUBLIC_URL", ""),
			Bucket:    getEnv("STORAGE_BUCKET", "spatial-floorplans"),
			AccessKey: getEnv("STORAGE_ACCESS_KEY_ID", ""),
			SecretKey: getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
		},
		Auth: AuthConfig{
			ServiceKey:      getEnv("SERVICE_API_KEY", DefaultServiceKey),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Vision: VisionConfig{
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		},
		Upload: UploadConfig{
			RateRPS:   getEnvAsFloat("UPLOAD_RATE_RPS", 5),
			RateBurst: getEnvAsInt("UPLOAD_RATE_BURST", 10),
		},
		App: AppConfig{
			Environment:   getEnv("APP_ENV", "development"),
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			Version:       getEnv("APP_VERSION", "1.0.0"),
			SweepSchedule: getEnv("SWEEP_SCHEDULE", "0 */5 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.App.Environment == "production" && c.Auth.ServiceKey == DefaultServiceKey {
		return fmt.Errorf("SERVICE_API_KEY must be overridden in production")
	}

	return nil
}

// StorageConfigured reports whether the blob store has enough configuration
// to be reachable. The health payload exposes this so operators see
// misconfiguration early.
func (c *Config) StorageConfigured() bool {
	return c.Storage.Endpoint != "" && c.Storage.AccessKey != ""
}

// VisionConfigured reports whether an AI provider credential is present.
func (c *Config) VisionConfigured() bool {
	return c.Vision.AnthropicAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}
