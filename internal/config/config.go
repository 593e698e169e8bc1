package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"loyaltytracker/internal/models"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	RabbitMQ  RabbitMQConfig
	SMS       SMSConfig
	Shop      ShopConfig
	CheckIn   CheckInConfig
	Telemetry TelemetryConfig
	Env       string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// StorageConfig selects where the loyalty document and campaigns live
type StorageConfig struct {
	Driver     string
	QuotaBytes int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RabbitMQConfig holds RabbitMQ configuration
type RabbitMQConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	ConnectAttempts int
}

// SMSConfig holds campaign delivery settings
type SMSConfig struct {
	Provider    string        `yaml:"provider"`
	BatchSize   int           `yaml:"batchSize"`
	BatchDelay  time.Duration `yaml:"batchDelay"`
	SendTimeout time.Duration `yaml:"sendTimeout"`

	// SchedulePoll is how often the worker looks for due scheduled campaigns
	SchedulePoll time.Duration                 `yaml:"schedulePoll"`
	Providers    map[string]models.SMSProvider `yaml:"providers"`
}

// ShopConfig holds the shop details used in campaign messages
type ShopConfig struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

// CheckInConfig holds check-in settings
type CheckInConfig struct {
	ScanDelay time.Duration `yaml:"scanDelay"`
}

// TelemetryConfig holds tracing settings. An empty endpoint disables export.
// The service name comes from OTEL_SERVICE_NAME, read by the SDK itself.
type TelemetryConfig struct {
	Endpoint string
}

// fileConfig is the optional YAML overlay
type fileConfig struct {
	Shop    *ShopConfig    `yaml:"shop"`
	SMS     *SMSConfig     `yaml:"sms"`
	CheckIn *CheckInConfig `yaml:"checkin"`
}

// Load reads configuration from environment variables, then applies the
// YAML file named by LOYALTY_CONFIG_FILE when set
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Storage: StorageConfig{
			Driver:     getEnv("STORAGE_DRIVER", DriverMemory),
			QuotaBytes: getEnvAsInt("STORAGE_QUOTA_BYTES", 5*1024*1024),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "loyalty"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "loyalty_db"),
		},
		RabbitMQ: RabbitMQConfig{
			Enabled:         getEnvAsBool("RABBITMQ_ENABLED", false),
			Host:            getEnv("RABBITMQ_HOST", "localhost"),
			Port:            getEnv("RABBITMQ_PORT", "5672"),
			User:            getEnv("RABBITMQ_DEFAULT_USER", "guest"),
			Password:        getEnv("RABBITMQ_DEFAULT_PASS", "guest"),
			ConnectAttempts: getEnvAsInt("RABBITMQ_CONNECT_ATTEMPTS", 5),
		},
		SMS: SMSConfig{
			Provider:     getEnv("SMS_PROVIDER", models.DefaultProviderKey),
			BatchSize:    getEnvAsInt("SMS_BATCH_SIZE", 10),
			BatchDelay:   getEnvAsDuration("SMS_BATCH_DELAY", time.Second),
			SendTimeout:  getEnvAsDuration("SMS_SEND_TIMEOUT", 10*time.Second),
			SchedulePoll: getEnvAsDuration("SCHEDULE_POLL_INTERVAL", 30*time.Second),
		},
		Shop: ShopConfig{
			Name:  getEnv("SHOP_NAME", "Our Salon"),
			Phone: getEnv("SHOP_PHONE", ""),
		},
		CheckIn: CheckInConfig{
			ScanDelay: getEnvAsDuration("SCAN_DELAY", 2*time.Second),
		},
		Telemetry: TelemetryConfig{
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
		Env: getEnv("ENV", "development"),
	}

	if path := os.Getenv("LOYALTY_CONFIG_FILE"); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyFile overlays values from a YAML file onto c
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Shop != nil {
		if fc.Shop.Name != "" {
			c.Shop.Name = fc.Shop.Name
		}
		if fc.Shop.Phone != "" {
			c.Shop.Phone = fc.Shop.Phone
		}
	}

	if fc.SMS != nil {
		if fc.SMS.Provider != "" {
			c.SMS.Provider = fc.SMS.Provider
		}
		if fc.SMS.BatchSize > 0 {
			c.SMS.BatchSize = fc.SMS.BatchSize
		}
		if fc.SMS.BatchDelay > 0 {
			c.SMS.BatchDelay = fc.SMS.BatchDelay
		}
		if fc.SMS.SendTimeout > 0 {
			c.SMS.SendTimeout = fc.SMS.SendTimeout
		}
		if fc.SMS.SchedulePoll > 0 {
			c.SMS.SchedulePoll = fc.SMS.SchedulePoll
		}
		if len(fc.SMS.Providers) > 0 {
			c.SMS.Providers = fc.SMS.Providers
		}
	}

	if fc.CheckIn != nil && fc.CheckIn.ScanDelay > 0 {
		c.CheckIn.ScanDelay = fc.CheckIn.ScanDelay
	}

	return nil
}

// Validate checks required fields and combinations
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("POSTGRES_PASSWORD is required when STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q: must be %s or %s", c.Storage.Driver, DriverMemory, DriverPostgres)
	}

	if c.SMS.BatchSize <= 0 {
		return fmt.Errorf("SMS_BATCH_SIZE must be positive")
	}

	if c.SMS.Providers != nil {
		if _, ok := c.SMS.Providers[c.SMS.Provider]; !ok {
			return fmt.Errorf("SMS provider %q is not in the configured provider table", c.SMS.Provider)
		}
	} else if _, ok := models.DefaultProviders()[c.SMS.Provider]; !ok {
		return fmt.Errorf("unknown SMS provider %q", c.SMS.Provider)
	}

	return nil
}

// GetDatabaseDSN returns PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// GetRabbitMQURL returns RabbitMQ connection URL, or "" when the queue is disabled
func (c *Config) GetRabbitMQURL() string {
	if !c.RabbitMQ.Enabled {
		return ""
	}
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		c.RabbitMQ.User,
		c.RabbitMQ.Password,
		c.RabbitMQ.Host,
		c.RabbitMQ.Port,
	)
}

// UsesPostgres reports whether data is kept in PostgreSQL
func (c *Config) UsesPostgres() bool {
	return c.Storage.Driver == DriverPostgres
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// getEnv gets environment variable or returns default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer or returns default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("1s", "500ms")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
