package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is the development signing key. Production refuses it.
const DefaultJWTSecret = "change_me_sales_crm_secret"

// ErrInsecureSecret is returned by Validate for a production config still on the default key.
var ErrInsecureSecret = errors.New("JWT_SECRET must be set to a private value in production")

// Config holds everything the server reads from the environment.
type Config struct {
	Port        string
	BaseURL     string
	Env         string
	CompanyName string

	DBDriver       string
	DBDSN          string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBLogLevel     string

	JWTSecret         string
	JWTExpiration     time.Duration
	AllowRegistration bool
	AdminUsername     string
	AdminPassword     string
	AllowedOrigins    []string

	QuoteNumberStrategy string
	SnowflakeNode       int64

	GeminiAPIKey string
	GeminiModel  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load reads the .env file (if any) and then the process environment.
// Precedence: explicit env var > .env file > default.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() Config {
	cfg := Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.BaseURL = getEnv("BASE_URL", "http://localhost:"+cfg.Port)
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.CompanyName = getEnv("COMPANY_NAME", "Sales CRM")

	// Database
	cfg.DBDriver = strings.ToLower(getEnv("DB_DRIVER", "mysql"))
	cfg.DBDSN = getEnv("DB_DSN", "")
	cfg.DBMaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", 50)
	cfg.DBMaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", 10)
	cfg.DBLogLevel = strings.ToLower(getEnv("DB_LOG_LEVEL", "warn"))

	// Auth
	cfg.JWTSecret = getEnv("JWT_SECRET", DefaultJWTSecret)
	cfg.JWTExpiration = time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour
	cfg.AllowRegistration = getEnvAsBool("ALLOW_REGISTRATION", false)
	cfg.AdminUsername = getEnv("ADMIN_USERNAME", "")
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", "")
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"))

	// Quotes
	cfg.QuoteNumberStrategy = strings.ToLower(getEnv("QUOTE_NUMBER_STRATEGY", "sequence"))
	cfg.SnowflakeNode = int64(getEnvAsInt("SNOWFLAKE_NODE", 1))

	// Assistant
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", "")
	cfg.GeminiModel = getEnv("GEMINI_MODEL", "gemini-2.0-flash-001")

	// Mail
	cfg.SMTPHost = getEnv("SMTP_HOST", "")
	cfg.SMTPPort = getEnvAsInt("SMTP_PORT", 587)
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SMTPFrom = getEnv("SMTP_FROM", cfg.SMTPUsername)

	return cfg
}

// IsProduction reports whether APP_ENV is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings the server must not start with.
func (c Config) Validate() error {
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return ErrInsecureSecret
	}
	return nil
}

// MailEnabled reports whether enough SMTP settings exist to send mail.
func (c Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("invalid integer for %s: %s", key, valueStr)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("invalid boolean for %s: %s", key, valueStr)
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
