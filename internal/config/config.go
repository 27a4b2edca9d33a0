package config

import (
	"fmt"
	"strings"
	"time"

	"sacco-hub/internal/pkg/logger"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode        string `env:"APP_MODE" envDefault:"dev"`
	Port           string `env:"PORT" envDefault:"3000"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	// RateLimitEnabled toggles the per-IP request limiters
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// Database, JWT and Cookie are read with the DEV_ or PROD_ prefix
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig

	Sacco SaccoConfig
	MPesa MPesaConfig
	Mail  MailConfig
	Seed  SeedConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"mysql"`
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"3306"`
	User       string `env:"DB_USER" envDefault:"root"`
	Password   string `env:"DB_PASS"`
	DBName     string `env:"DB_NAME" envDefault:"sacco"`
	SQLitePath string `env:"DB_SQLITE_PATH" envDefault:"sacco.db"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string `env:"JWT_SECRET" envDefault:"default_secret"`
	RefreshSecret    string `env:"JWT_REFRESH_SECRET" envDefault:"default_refresh_secret"`
	AccessTokenMins  int    `env:"ACCESS_TOKEN_MINUTES" envDefault:"15"`
	RefreshTokenDays int    `env:"REFRESH_TOKEN_DAYS" envDefault:"7"`
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	SameSite string `env:"COOKIE_SAMESITE" envDefault:"lax"`
	Domain   string `env:"COOKIE_DOMAIN"`
}

// SaccoConfig holds cooperative business rules
type SaccoConfig struct {
	// LoanInterestRate is a percentage, 5 means 5%
	LoanInterestRate      float64 `env:"LOAN_INTEREST_RATE" envDefault:"5.0"`
	DefaultRepaymentMonth int     `env:"LOAN_REPAYMENT_MONTHS" envDefault:"12"`
	PageSize              int     `env:"POSTS_PER_PAGE" envDefault:"20"`
	ChatHistoryLimit      int     `env:"CHAT_HISTORY_LIMIT" envDefault:"100"`
}

// MPesaConfig holds mobile-money gateway configuration
type MPesaConfig struct {
	BaseURL        string        `env:"MPESA_BASE_URL" envDefault:"https://sandbox.safaricom.co.ke"`
	ConsumerKey    string        `env:"MPESA_CONSUMER_KEY"`
	ConsumerSecret string        `env:"MPESA_CONSUMER_SECRET"`
	ShortCode      string        `env:"MPESA_SHORTCODE" envDefault:"174379"`
	PassKey        string        `env:"MPESA_PASSKEY"`
	CallbackURL    string        `env:"MPESA_CALLBACK_URL"`
	CallbackToken  string        `env:"MPESA_CALLBACK_TOKEN"`
	Timeout        time.Duration `env:"MPESA_TIMEOUT" envDefault:"15s"`
	RetryMax       int           `env:"MPESA_RETRY_MAX" envDefault:"2"`
	PendingTTL     time.Duration `env:"MPESA_PENDING_TTL" envDefault:"15m"`
}

// MailConfig holds SMTP configuration
type MailConfig struct {
	Enabled  bool   `env:"MAIL_ENABLED" envDefault:"false"`
	Host     string `env:"MAIL_SERVER" envDefault:"smtp.gmail.com"`
	Port     int    `env:"MAIL_PORT" envDefault:"587"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	Sender   string `env:"MAIL_DEFAULT_SENDER" envDefault:"noreply@sacco.local"`
}

// SeedConfig holds the bootstrap admin account
type SeedConfig struct {
	AdminUsername string `env:"SEED_ADMIN_USERNAME" envDefault:"admin"`
	AdminEmail    string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@sacco.local"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD"`
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// .env is optional; production injects real environment variables
	if err := godotenv.Load(); err != nil {
		logger.L().Warn("⚠️ .env file not found, using environment variables")
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	AppConfig = cfg

	logger.L().Infow("✅ Configuration loaded successfully", "mode", cfg.AppMode)
	return cfg, nil
}

// Parse builds a Config from the current environment
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// trim spaces for Windows compatibility
	cfg.AppMode = strings.TrimSpace(cfg.AppMode)
	if cfg.AppMode != "dev" && cfg.AppMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", cfg.AppMode)
	}

	prefix := "DEV_"
	if cfg.IsProd() {
		prefix = "PROD_"
	}
	opts := env.Options{Prefix: prefix}

	if err := env.ParseWithOptions(&cfg.Database, opts); err != nil {
		return nil, fmt.Errorf("parse database env: %w", err)
	}
	if err := env.ParseWithOptions(&cfg.JWT, opts); err != nil {
		return nil, fmt.Errorf("parse jwt env: %w", err)
	}
	if err := env.ParseWithOptions(&cfg.Cookie, opts); err != nil {
		return nil, fmt.Errorf("parse cookie env: %w", err)
	}

	if cfg.Database.Driver != "mysql" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("invalid %sDB_DRIVER: '%s' (must be 'mysql' or 'sqlite')", prefix, cfg.Database.Driver)
	}
	if cfg.Sacco.LoanInterestRate < 0 {
		return nil, fmt.Errorf("invalid LOAN_INTEREST_RATE: %v", cfg.Sacco.LoanInterestRate)
	}
	if cfg.IsProd() && cfg.MPesa.CallbackToken == "" {
		return nil, fmt.Errorf("MPESA_CALLBACK_TOKEN is required in prod")
	}
	if cfg.Sacco.PageSize < 1 {
		cfg.Sacco.PageSize = 20
	}

	return cfg, nil
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	if c.AllowedOrigins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://sacco.local"
	}
	return c.AllowedOrigins
}
