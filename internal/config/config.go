package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every runtime setting the server needs. It is built once in
// main and passed into the database, middleware and handlers so that request
// paths never reach for the environment directly.
type Config struct {
	Port string
	Env  string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisURL string

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	BcryptCost int

	// When true the admin status update must follow the forward delivery
	// flow; when false any known status is accepted.
	StrictStatusFlow bool

	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
	S3Bucket     string
	BaseURL      string
	UploadDir    string

	FrontendURL string
}

// Load reads the configuration from the environment, applying the same
// defaults the original deployment used.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("APP_ENV", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "parcel_delivery"),
		DBPort:     getEnv("DB_PORT", "5432"),

		RedisURL: getEnv("REDIS_URL", "redis://redis:6379"),

		JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", "access-secret"),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", "refresh-secret"),
		AccessTokenTTL:   getDuration("JWT_ACCESS_EXPIRES", 7*24*time.Hour),
		RefreshTokenTTL:  getDuration("JWT_REFRESH_EXPIRES", 30*24*time.Hour),

		BcryptCost: getInt("BCRYPT_COST", 10),

		StrictStatusFlow: getBool("STRICT_STATUS_FLOW", false),

		AWSRegion:    os.Getenv("AWS_REGION"),
		AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),

		FrontendURL: getEnv("FRONTEND_URL", "*"),
	}
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
