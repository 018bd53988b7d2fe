package config

import (
	"fmt"     // DSN formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing
	"time"    // Token lifetimes

	"github.com/joho/godotenv" // For loading .env files
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config holds the application configuration
type Config struct {
	AppPort          string        // Application port
	DBDriver         string        // Database driver: sqlite, mysql or postgres
	DBUser           string        // Database user
	DBPassword       string        // Database password
	DBHost           string        // Database host
	DBPort           string        // Database port
	DBName           string        // Database name
	DBPath           string        // SQLite database file
	JWTSecret        string        // Access token signing key
	JWTRefreshSecret string        // Refresh token signing key
	AccessTokenTTL   time.Duration // Access token lifetime
	RefreshTokenTTL  time.Duration // Refresh token lifetime
	BcryptCost       int           // bcrypt work factor
	RedisAddr        string        // Redis server address, empty disables caching
	RedisPass        string        // Redis password
	RedisDB          int           // Redis database number
	CacheTTL         time.Duration // Lifetime of cached listings
	CORSOrigins      []string      // Allowed CORS origins
	LogLevel         string        // logrus level name
	IsProd           bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:          getEnv("APP_PORT", "8000"),
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           os.Getenv("DB_PORT"),
		DBName:           getEnv("DB_NAME", "calculator"),
		DBPath:           getEnv("DB_PATH", "calculator.db"),
		JWTSecret:        getEnv("JWT_SECRET", "super-secret-key-for-jwt-min-32-chars"),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", "super-secret-refresh-key-min-32-chars"),
		AccessTokenTTL:   time.Duration(getInt("ACCESS_TOKEN_TTL", 30)) * time.Minute,
		RefreshTokenTTL:  time.Duration(getInt("REFRESH_TOKEN_TTL", 7)) * 24 * time.Hour,
		BcryptCost:       getInt("BCRYPT_COST", 10),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPass:        os.Getenv("REDIS_PASS"),
		RedisDB:          getInt("REDIS_DB", 0),
		CacheTTL:         time.Duration(getInt("CACHE_TTL", 60)) * time.Second,
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		IsProd:           os.Getenv("IS_PROD") == "true",
	}
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() (string, error) {
	switch c.DBDriver {
	case DriverSQLite:
		return c.DBPath, nil
	case DriverMySQL:
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?parseTime=true", nil
	case DriverPostgres:
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, port), nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
