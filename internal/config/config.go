package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	DatastorePostgres = "postgres"
	DatastoreMongo    = "mongo"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env
	AppEnv  string
	Version string

	// Datastore
	Datastore     string
	DatabaseURL   string
	DBAutoMigrate bool
	MongoURI      string
	MongoDbName   string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Auth
	JwtSecret        string
	JwtTTL           time.Duration
	RefreshTTL       time.Duration
	ResetPasswordTTL time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string
	FrontendURL    string

	// Rate limiting
	RateLimitWindow         time.Duration
	RateLimitMax            int
	ChatRateLimitPerMinute  int
	ChatRateLimitBucketSize int

	// Chat
	OpenAIAPIKey  string
	ChatModel     string
	ChatMaxTokens int64

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	AppName         string

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	UploadURLTTL       time.Duration

	// Analytics
	AnalyticsLocation *time.Location

	// Logging
	LogLevel string
	LogJSON  bool

	// Development
	MockServices bool
	LogEmails    string // file path; empty disables
}

// IsProduction reports whether error details must be withheld from clients.
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.AppEnv = getEnv("APP_ENV", EnvDevelopment)
	if cfg.AppEnv != EnvProduction && cfg.AppEnv != EnvDevelopment {
		return nil, fmt.Errorf("invalid APP_ENV: %q", cfg.AppEnv)
	}
	cfg.Version = getEnv("APP_VERSION", "1.0.0")

	cfg.Datastore = getEnv("DATASTORE", DatastorePostgres)
	switch cfg.Datastore {
	case DatastorePostgres:
		cfg.DatabaseURL, err = getRequiredEnv("DATABASE_URL")
		if err != nil {
			return nil, err
		}
	case DatastoreMongo:
		cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
		if err != nil {
			return nil, err
		}
		cfg.MongoDbName = getEnv("MONGO_DB_NAME", "propflow")
	default:
		return nil, fmt.Errorf("invalid DATASTORE: %q", cfg.Datastore)
	}
	cfg.DBAutoMigrate, err = strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	refreshTTLHours, err := strconv.ParseInt(getEnv("REFRESH_TTL_HOURS", "720"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TTL_HOURS: %w", err)
	}
	cfg.RefreshTTL = time.Duration(refreshTTLHours) * time.Hour

	resetTTLMinutes, err := strconv.ParseInt(getEnv("RESET_PASSWORD_TTL_MINUTES", "20"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RESET_PASSWORD_TTL_MINUTES: %w", err)
	}
	cfg.ResetPasswordTTL = time.Duration(resetTTLMinutes) * time.Minute

	cfg.ApiPort = getEnv("API_PORT", "5000")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:3000")

	windowMs, err := strconv.ParseInt(getEnv("RATE_LIMIT_WINDOW_MS", "900000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW_MS: %w", err)
	}
	cfg.RateLimitWindow = time.Duration(windowMs) * time.Millisecond
	cfg.RateLimitMax, err = strconv.Atoi(getEnv("RATE_LIMIT_MAX", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MAX: %w", err)
	}
	cfg.ChatRateLimitPerMinute, err = strconv.Atoi(getEnv("CHAT_RATE_LIMIT_PER_MINUTE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHAT_RATE_LIMIT_PER_MINUTE: %w", err)
	}
	cfg.ChatRateLimitBucketSize, err = strconv.Atoi(getEnv("CHAT_RATE_LIMIT_BUCKET_SIZE", strconv.Itoa(cfg.ChatRateLimitPerMinute)))
	if err != nil {
		return nil, fmt.Errorf("invalid CHAT_RATE_LIMIT_BUCKET_SIZE: %w", err)
	}

	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	cfg.ChatModel = getEnv("CHAT_MODEL", "gpt-4o-mini")
	cfg.ChatMaxTokens, err = strconv.ParseInt(getEnv("CHAT_MAX_TOKENS", "1024"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAT_MAX_TOKENS: %w", err)
	}

	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@propflow.example.com")
	cfg.AppName = getEnv("APP_NAME", "PropFlow")

	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	uploadTTLSeconds, err := strconv.ParseInt(getEnv("UPLOAD_URL_TTL_SECONDS", "300"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_URL_TTL_SECONDS: %w", err)
	}
	cfg.UploadURLTTL = time.Duration(uploadTTLSeconds) * time.Second

	cfg.AnalyticsLocation, err = time.LoadLocation(getEnv("ANALYTICS_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYTICS_TIMEZONE: %w", err)
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogJSON, err = strconv.ParseBool(getEnv("LOG_JSON", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_JSON: %w", err)
	}

	cfg.MockServices, err = strconv.ParseBool(getEnv("MOCK_SERVICES", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid MOCK_SERVICES: %w", err)
	}
	cfg.LogEmails = getEnv("LOG_EMAILS", "")

	return cfg, nil
}
