package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig
	PostgreSQL PostgreSQLConfig
	Redis      RedisConfig
	Ledger     LedgerConfig
	Lock       LockConfig
	Events     EventsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// PostgreSQLConfig holds database configuration
type PostgreSQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string.
func (c PostgreSQLConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisConfig enables the shared trip lock. Leave Addr empty to lock in
// process only.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LedgerConfig holds the settlement engine settings
type LedgerConfig struct {
	// Tolerance is the slack in minor units between a split and its total.
	Tolerance int64
	// Currency is the ISO 4217 code used when formatting amounts.
	Currency string
	// WriteTimeout bounds each write while the trip lock is held.
	WriteTimeout time.Duration
}

// LockConfig tunes the Redis trip lock
type LockConfig struct {
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

// EventsConfig sizes the audit event buffer
type EventsConfig struct {
	BufferSize int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "5000")

	v.SetDefault("PostgreSQL.Host", "localhost")
	v.SetDefault("PostgreSQL.Port", 5432)
	v.SetDefault("PostgreSQL.User", "postgres")
	v.SetDefault("PostgreSQL.Password", "postgres")
	v.SetDefault("PostgreSQL.DBName", "expenses")
	v.SetDefault("PostgreSQL.SSLMode", "disable")

	v.SetDefault("Redis.Addr", "")
	v.SetDefault("Redis.Password", "")
	v.SetDefault("Redis.DB", 0)

	v.SetDefault("Ledger.Tolerance", 1)
	v.SetDefault("Ledger.Currency", "EUR")
	v.SetDefault("Ledger.WriteTimeout", 5*time.Second)

	v.SetDefault("Lock.Expiry", 10*time.Second)
	v.SetDefault("Lock.Tries", 32)
	v.SetDefault("Lock.RetryDelay", 100*time.Millisecond)

	v.SetDefault("Events.BufferSize", 100)
}

// Load reads configuration from the given YAML file, if any, and from
// TRIPLEDGER_* environment variables (e.g. TRIPLEDGER_POSTGRESQL_HOST).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("tripledger")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the required fields.
func (c *Config) Validate() error {
	if c.PostgreSQL.Host == "" || c.PostgreSQL.DBName == "" {
		return errors.New("database configuration is incomplete")
	}
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Ledger.Tolerance < 0 {
		return fmt.Errorf("ledger tolerance can't be negative, got %d", c.Ledger.Tolerance)
	}
	if len(c.Ledger.Currency) != 3 {
		return fmt.Errorf("ledger currency must be an ISO 4217 code, got %q", c.Ledger.Currency)
	}
	if c.Ledger.WriteTimeout <= 0 {
		return errors.New("ledger write timeout must be positive")
	}
	// The redis lock is never extended, so it has to outlive any write.
	if c.Lock.Expiry <= c.Ledger.WriteTimeout {
		return fmt.Errorf("lock expiry %s must be longer than the ledger write timeout %s", c.Lock.Expiry, c.Ledger.WriteTimeout)
	}
	return nil
}
