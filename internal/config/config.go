package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the quoting portal server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	CRM      CRMConfig
	Quote    QuoteConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// CatalogConfig configures the external quoting catalog (token endpoint,
// person/vehicle lookups, per-insurer quotes).
type CatalogConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// CRMConfig configures the Bitrix24 tenant the portal mirrors deals into.
type CRMConfig struct {
	Domain       string
	WebhookToken string
	Timeout      time.Duration
}

// QuoteConfig configures the fan-out round: which insurers to call, how long
// each call may take, and how long cached rounds live.
type QuoteConfig struct {
	Insurers      []string
	FanOutTimeout time.Duration
	CacheTTL      time.Duration
}

// StorageConfig configures the S3 bucket that receives uploaded PDF exports.
// An empty bucket disables uploads.
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PORTAL_PORT", 8080),
			Env:  envString("PORTAL_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Catalog: CatalogConfig{
			BaseURL:      os.Getenv("CATALOG_BASE_URL"),
			ClientID:     os.Getenv("CATALOG_CLIENT_ID"),
			ClientSecret: os.Getenv("CATALOG_CLIENT_SECRET"),
			Timeout:      envDuration("CATALOG_TIMEOUT", 30*time.Second),
		},
		CRM: CRMConfig{
			Domain:       os.Getenv("CRM_DOMAIN"),
			WebhookToken: os.Getenv("CRM_WEBHOOK_TOKEN"),
			Timeout:      envDuration("CRM_TIMEOUT", 30*time.Second),
		},
		Quote: QuoteConfig{
			Insurers:      envList("INSURERS", []string{"zurich", "chubb"}),
			FanOutTimeout: envDuration("FANOUT_TIMEOUT", 30*time.Second),
			CacheTTL:      envDuration("FANOUT_CACHE_TTL", 30*time.Minute),
		},
		Storage: StorageConfig{
			Bucket:          os.Getenv("EXPORTS_BUCKET"),
			Region:          envString("AWS_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("CATALOG_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Catalog.BaseURL, "http://") && !strings.HasPrefix(c.Catalog.BaseURL, "https://") {
		return fmt.Errorf("CATALOG_BASE_URL must start with http:// or https://, got %q", c.Catalog.BaseURL)
	}
	if c.Catalog.ClientID == "" || c.Catalog.ClientSecret == "" {
		return fmt.Errorf("CATALOG_CLIENT_ID and CATALOG_CLIENT_SECRET are required")
	}

	if c.CRM.Domain == "" {
		return fmt.Errorf("CRM_DOMAIN is required")
	}

	if len(c.Quote.Insurers) == 0 {
		return fmt.Errorf("INSURERS must list at least one insurer key")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
