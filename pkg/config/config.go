package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Recommender RecommenderConfig
	Assignment  AssignmentConfig
	Manifests   ManifestsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RecommenderConfig points at the external seat recommender service.
type RecommenderConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AssignmentConfig tunes the seat assignment engine.
type AssignmentConfig struct {
	SeatMapCacheTTL time.Duration
}

// ManifestsConfig controls voyage manifest export jobs.
type ManifestsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	Retention         time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Recommender = RecommenderConfig{
		Enabled: v.GetBool("ENABLE_RECOMMENDER"),
		BaseURL: v.GetString("RECOMMENDER_BASE_URL"),
		APIKey:  v.GetString("RECOMMENDER_API_KEY"),
		Timeout: parseDuration(v.GetString("RECOMMENDER_TIMEOUT"), 10*time.Second),
	}

	cfg.Assignment = AssignmentConfig{
		SeatMapCacheTTL: parseDuration(v.GetString("SEATMAP_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Manifests = ManifestsConfig{
		Enabled:           v.GetBool("ENABLE_MANIFESTS"),
		StorageDir:        v.GetString("MANIFESTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("MANIFESTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("MANIFESTS_SIGNED_URL_TTL"), 24*time.Hour),
		WorkerConcurrency: v.GetInt("MANIFESTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("MANIFESTS_WORKER_RETRIES"),
		Retention:         parseDuration(v.GetString("MANIFESTS_RETENTION"), 7*24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "oka_transport")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "oka-transport-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_RECOMMENDER", false)
	v.SetDefault("RECOMMENDER_BASE_URL", "http://localhost:9200")
	v.SetDefault("RECOMMENDER_API_KEY", "")
	v.SetDefault("RECOMMENDER_TIMEOUT", "10s")

	v.SetDefault("SEATMAP_CACHE_TTL", "2m")

	v.SetDefault("ENABLE_MANIFESTS", false)
	v.SetDefault("MANIFESTS_STORAGE_DIR", "./manifests")
	v.SetDefault("MANIFESTS_SIGNED_URL_SECRET", "dev_manifests_secret")
	v.SetDefault("MANIFESTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("MANIFESTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("MANIFESTS_WORKER_RETRIES", 3)
	v.SetDefault("MANIFESTS_RETENTION", "168h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
