package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`
	Billing     BillingConfig     `yaml:"billing"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Seed        SeedConfig        `yaml:"seed"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	HTTPPort int    `yaml:"http_port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig selects the storage backend and holds PostgreSQL connection settings
type DatabaseConfig struct {
	Driver        string `yaml:"driver"` // "postgres" or "memory"
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	Database      string `yaml:"database"`
	SSLMode       string `yaml:"ssl_mode"`
	RunMigrations bool   `yaml:"run_migrations"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// BillingConfig contains settlement settings
type BillingConfig struct {
	// TaxPercent is the flat tax applied to order summaries, e.g. "18" for 18%.
	TaxPercent string `yaml:"tax_percent"`
}

// KafkaConfig contains event publishing settings
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type IdempotencyConfig struct {
	RetentionHours int `yaml:"retention_hours"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	PurgeIdempotencyKeys string `yaml:"purge_idempotency_keys"`
	ReportOpenOrders     string `yaml:"report_open_orders"`
}

// SeedConfig lists products loaded into the memory store at start
type SeedConfig struct {
	Products []SeedProduct `yaml:"products"`
}

type SeedProduct struct {
	Name           string `yaml:"name"`
	Size           string `yaml:"size"`
	PricePerUnit   string `yaml:"price_per_unit"`
	Weight         string `yaml:"weight"`
	AvailableCount int32  `yaml:"available_count"`
}

// LoadEnvFile loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}
	if val := os.Getenv("DB_RUN_MIGRATIONS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Database.RunMigrations = b
		}
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("HTTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.HTTPPort)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Billing
	if val := os.Getenv("BILLING_TAX_PERCENT"); val != "" {
		c.Billing.TaxPercent = val
	}

	// Kafka
	if val := os.Getenv("KAFKA_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Kafka.Enabled = b
		}
	}
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		c.Kafka.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("KAFKA_TOPIC"); val != "" {
		c.Kafka.Topic = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}
	if c.Server.HTTPPort == c.Server.GRPCPort {
		return fmt.Errorf("HTTP and gRPC ports must differ")
	}

	// Database validation
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	// Billing validation
	if c.Billing.TaxPercent == "" {
		c.Billing.TaxPercent = "0"
	}
	tax, err := decimal.NewFromString(c.Billing.TaxPercent)
	if err != nil {
		return fmt.Errorf("invalid tax percent %q: %w", c.Billing.TaxPercent, err)
	}
	if tax.IsNegative() || tax.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("tax percent must be between 0 and 100: %s", c.Billing.TaxPercent)
	}

	// Kafka validation
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			c.Kafka.Topic = "rentdesk.events"
		}
	}

	// Idempotency defaults
	if c.Idempotency.RetentionHours <= 0 {
		c.Idempotency.RetentionHours = 72
	}

	// Seed validation
	for i, p := range c.Seed.Products {
		if p.Name == "" {
			return fmt.Errorf("seed product %d: name is required", i)
		}
		if _, err := decimal.NewFromString(p.PricePerUnit); err != nil {
			return fmt.Errorf("seed product %q: invalid price: %w", p.Name, err)
		}
		if p.AvailableCount < 0 {
			return fmt.Errorf("seed product %q: available count must not be negative", p.Name)
		}
	}

	// Scheduler defaults
	if c.Scheduler.PurgeIdempotencyKeys == "" {
		c.Scheduler.PurgeIdempotencyKeys = "0 15 * * * *" // every hour at :15
	}
	if c.Scheduler.ReportOpenOrders == "" {
		c.Scheduler.ReportOpenOrders = "0 0 6 * * *" // 6 AM UTC
	}

	return nil
}

// TaxPercent returns the validated billing tax percentage.
func (c *Config) TaxPercent() decimal.Decimal {
	tax, err := decimal.NewFromString(c.Billing.TaxPercent)
	if err != nil {
		return decimal.Zero
	}
	return tax
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetHTTPAddress returns the HTTP server address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// GetGRPCAddress returns the gRPC server address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
