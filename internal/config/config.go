package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabaseURL     string
	DatabasePath    string
	MigrationsPath  string
	SessionDuration time.Duration
	UploadMaxSize   int64
	LogMode         string

	JWTSecret  string
	CSRFSecret string

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string
	EmailDebug   bool

	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	// SubFamilyStalePolicy is "keep" or "deactivate"
	SubFamilyStalePolicy  string
	ResolverSweepSchedule string
	LoginRateLimit        int
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DATABASE_TYPE", "sqlite"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DatabasePath:    getEnv("DB_PATH", "./familytree.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", ""),
		SessionDuration: getDuration("SESSION_DURATION", 24*time.Hour),
		UploadMaxSize:   5 * 1024 * 1024, // 5MB
		LogMode:         getEnv("LOG_MODE", "development"),

		JWTSecret:  getEnv("JWT_SECRET", "change-me"),
		CSRFSecret: getEnv("CSRF_SECRET", "change-me-too"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Family Tree"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),
		EmailDebug:   getBool("EMAIL_DEBUG", false),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080"),

		SubFamilyStalePolicy:  getEnv("SUBFAMILY_STALE_POLICY", "keep"),
		ResolverSweepSchedule: getEnv("RESOLVER_SWEEP_SCHEDULE", "0 3 * * *"),
		LoginRateLimit:        getInt("LOGIN_RATE_LIMIT", 10),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
