package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Supported STORE_DRIVER values.
const (
	DriverSQLite  = "sqlite"
	DriverMongoDB = "mongodb"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	AutoEntry AutoEntryConfig
	LogLevel  string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port               string
	AllowedOrigins     []string
	TrustedProxies     []string
	RateLimitPerMinute int
}

// AuthConfig holds the shared secrets guarding the API.
type AuthConfig struct {
	AppPIN     string
	CronSecret string
}

// StoreConfig selects the persistence driver.
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// Export is disabled when either field is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether month export is configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// AutoEntryConfig holds the daily job settings.
type AutoEntryConfig struct {
	// CronSchedule runs the job in-process when set. Empty leaves scheduling to the external trigger.
	CronSchedule string
	Timezone     string
	Location     *time.Location
	SeedQuantity decimal.Decimal
	SeedRate     decimal.Decimal
}

// TriggerConfig is used by cmd/trigger to reach the server.
type TriggerConfig struct {
	BaseURL    string
	CronSecret string
	LogLevel   string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	rateLimit, err := getenvInt("RATE_LIMIT_PER_MINUTE", 20)
	if err != nil {
		return nil, err
	}
	seedQuantity, err := getenvDecimal("MILK_SEED_QUANTITY", "1")
	if err != nil {
		return nil, err
	}
	seedRate, err := getenvDecimal("MILK_SEED_RATE", "0")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getenvWithDefault("APP_PORT", "8080"),
			AllowedOrigins:     splitList(getenvWithDefault("ALLOWED_ORIGINS", "http://localhost:3000")),
			TrustedProxies:     splitList(os.Getenv("TRUSTED_PROXIES")),
			RateLimitPerMinute: rateLimit,
		},
		Auth: AuthConfig{
			AppPIN:     os.Getenv("APP_PIN"),
			CronSecret: os.Getenv("CRON_SECRET"),
		},
		Store: StoreConfig{
			Driver:     getenvWithDefault("STORE_DRIVER", DriverSQLite),
			SQLitePath: getenvWithDefault("SQLITE_PATH", "data/milktracker.db"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "milktracker"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		AutoEntry: AutoEntryConfig{
			CronSchedule: os.Getenv("AUTO_ENTRY_CRON"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Kolkata"),
			SeedQuantity: seedQuantity,
			SeedRate:     seedRate,
		},
		LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadTrigger reads only what cmd/trigger needs.
func LoadTrigger(envFile string) (*TriggerConfig, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg := &TriggerConfig{
		BaseURL:    getenvWithDefault("TRIGGER_BASE_URL", "http://localhost:8080"),
		CronSecret: os.Getenv("CRON_SECRET"),
		LogLevel:   getenvWithDefault("LOG_LEVEL", "info"),
	}
	switch {
	case cfg.BaseURL == "":
		return nil, errors.New("TRIGGER_BASE_URL must be provided")
	case cfg.CronSecret == "":
		return nil, errors.New("CRON_SECRET must be provided")
	}
	return cfg, nil
}

func loadEnvFile(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
		return nil
	}
	// Missing .env files are fine when the environment is set directly.
	_ = godotenv.Load()
	return nil
}

// Validate ensures that required configuration fields are populated and
// resolves the timezone.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}
	if c.Server.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}

	switch {
	case c.Auth.AppPIN == "":
		return errors.New("APP_PIN must be provided")
	case c.Auth.CronSecret == "":
		return errors.New("CRON_SECRET must be provided")
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH must be provided")
		}
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverMongoDB, c.Store.Driver)
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be set together")
	}

	if c.AutoEntry.SeedQuantity.IsNegative() || c.AutoEntry.SeedRate.IsNegative() {
		return errors.New("MILK_SEED_QUANTITY and MILK_SEED_RATE must not be negative")
	}

	if c.AutoEntry.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	loc, err := time.LoadLocation(c.AutoEntry.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.AutoEntry.Timezone, err)
	}
	c.AutoEntry.Location = loc

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getenvDecimal(key, fallback string) (decimal.Decimal, error) {
	raw := getenvWithDefault(key, fallback)
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal number: %w", key, err)
	}
	return v, nil
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
