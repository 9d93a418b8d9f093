package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port           int
	Mode           string // gin mode: debug, release or test
	AllowedOrigins []string
	PublicURL      string
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Driver        string // postgres, mongo or memory
	Host          string
	Port          int
	Username      string
	Password      string
	DBName        string
	SSLMode       string
	TestDBName    string // Separate database for testing
	MongoURI      string
	MongoDatabase string
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret     string
	TokenTTLHours int // 0 issues tokens without expiry
	AdminEmail    string
	AdminPassword string
	AdminName     string
	AdminPhone    string
	RoleSource    string // credentials or stored
}

// StorageConfig holds the media storage configuration
type StorageConfig struct {
	Driver            string // disk or cloudinary
	UploadDir         string
	PublicBaseURL     string
	CloudinaryURL     string
	MaxUploadBytes    int64
	MaxFilesPerUpload int
}

// MailConfig holds the email relay configuration
type MailConfig struct {
	Driver       string // resend or log
	ResendAPIKey string
	From         string
	TeamName     string
}

// RateLimitConfig holds the public endpoint rate limit
type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

const (
	RoleSourceCredentials = "credentials"
	RoleSourceStored      = "stored"
)

// DefaultJWTSecret is only accepted in debug mode
const DefaultJWTSecret = "dev-only-jwt-secret"

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// LoadConfig loads the configuration from a .env file, if any, and environment variables
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	port := getEnvAsInt("SERVER_PORT", 8080)
	mailKey := getEnv("RESEND_API_KEY", "")
	mailDriver := "log"
	if mailKey != "" {
		mailDriver = "resend"
	}

	return &Config{
		Server: ServerConfig{
			Port:           port,
			Mode:           getEnv("GIN_MODE", "debug"),
			AllowedOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
			PublicURL:      getEnv("PUBLIC_URL", fmt.Sprintf("http://localhost:%d", port)),
		},
		Database: DatabaseConfig{
			Driver:        getEnv("DB_DRIVER", "postgres"),
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnvAsInt("DB_PORT", 5432),
			Username:      getEnv("DB_USERNAME", "postgres"),
			Password:      getEnv("DB_PASSWORD", "password"),
			DBName:        getEnv("DB_NAME", "buildtrue"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			TestDBName:    getEnv("TEST_DB_NAME", "buildtrue_test"),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGO_DATABASE", "buildtrue"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", DefaultJWTSecret),
			TokenTTLHours: getEnvAsInt("JWT_TTL_HOURS", 0),
			AdminEmail:    strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			AdminName:     getEnv("ADMIN_NAME", "Administrator"),
			AdminPhone:    getEnv("ADMIN_PHONE", "0000000000"),
			RoleSource:    getEnv("AUTH_ROLE_SOURCE", RoleSourceCredentials),
		},
		Storage: StorageConfig{
			Driver:            getEnv("STORAGE_DRIVER", "disk"),
			UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
			PublicBaseURL:     getEnv("MEDIA_BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
			CloudinaryURL:     getEnv("CLOUDINARY_URL", ""),
			MaxUploadBytes:    int64(getEnvAsInt("MAX_UPLOAD_MB", 50)) * 1024 * 1024,
			MaxFilesPerUpload: getEnvAsInt("MAX_FILES_PER_UPLOAD", 10),
		},
		Mail: MailConfig{
			Driver:       getEnv("MAIL_DRIVER", mailDriver),
			ResendAPIKey: mailKey,
			From:         getEnv("MAIL_FROM", "BuildTrue <no-reply@buildtrue.app>"),
			TeamName:     getEnv("MAIL_TEAM_NAME", "The BuildTrue Team"),
		},
		RateLimit: RateLimitConfig{
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
	}
}

// Validate rejects settings that are only acceptable on a developer machine
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.Server.Mode != gin.DebugMode && c.Auth.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set when GIN_MODE=%s", c.Server.Mode)
	}
	return nil
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimRight(strings.TrimSpace(part), "/"); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
