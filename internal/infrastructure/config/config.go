package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Operating modes for actuator dispatch.
const (
	// ModeRemote publishes actuation commands to the pumps.
	ModeRemote = "remote"

	// ModeLocal computes commands but only logs them.
	ModeLocal = "local"
)

// State provider types.
const (
	ProviderSQLite = "sqlite"
	ProviderHTTP   = "http"
)

// Config is the root configuration structure for the irrigation controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site          SiteConfig          `yaml:"site"`
	Database      DatabaseConfig      `yaml:"database"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
	Irrigation    IrrigationConfig    `yaml:"irrigation"`
	StateProvider StateProviderConfig `yaml:"state_provider"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains admin HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// IrrigationConfig controls the decision loop and actuator dispatch.
type IrrigationConfig struct {
	// Mode is "remote" (publish commands) or "local" (log only).
	Mode string `yaml:"mode"`

	// Interval is the cadence of scheduled decision cycles.
	Interval time.Duration `yaml:"interval"`

	// StrategyFile is the watering strategy document. When empty, the
	// bundled default document is used and changes are not persisted.
	StrategyFile string `yaml:"strategy_file"`

	// DispatchTimeout bounds a single pump's send attempt.
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`

	// MaxParallelDispatch caps concurrent send attempts within one cycle.
	MaxParallelDispatch int `yaml:"max_parallel_dispatch"`

	// CommandQoS is the MQTT QoS for actuator commands (0, 1 or 2).
	CommandQoS int `yaml:"command_qos"`

	// HistoryRetention is how long cycle reports are kept. Zero keeps all.
	HistoryRetention time.Duration `yaml:"history_retention"`
}

// StateProviderConfig selects where the plant snapshot comes from.
type StateProviderConfig struct {
	// Type is "sqlite" (local database) or "http" (remote reasoning engine).
	Type    string               `yaml:"type"`
	URL     string               `yaml:"url"`
	Timeout time.Duration        `yaml:"timeout"`
	Breaker CircuitBreakerConfig `yaml:"breaker"`
}

// CircuitBreakerConfig tunes the breaker in front of the remote provider.
type CircuitBreakerConfig struct {
	MaxFailures int           `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: IRRIGATION_SECTION_KEY
// For example: IRRIGATION_DATABASE_PATH, IRRIGATION_MQTT_HOST.
// IRRIGATION_MODE selects the operating mode.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Greenhouse",
		},
		Database: DatabaseConfig{
			Path:        "./data/irrigation.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "irrigation-controller",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  5,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Irrigation: IrrigationConfig{
			Mode:                ModeRemote,
			Interval:            5 * time.Second,
			DispatchTimeout:     3 * time.Second,
			MaxParallelDispatch: 8,
			CommandQoS:          0,
			HistoryRetention:    30 * 24 * time.Hour,
		},
		StateProvider: StateProviderConfig{
			Type:    ProviderSQLite,
			Timeout: 5 * time.Second,
			Breaker: CircuitBreakerConfig{
				MaxFailures: 3,
				OpenTimeout: 30 * time.Second,
				Interval:    time.Minute,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: IRRIGATION_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IRRIGATION_MODE"); v != "" {
		cfg.Irrigation.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("IRRIGATION_STRATEGY_FILE"); v != "" {
		cfg.Irrigation.StrategyFile = v
	}

	// Database
	if v := os.Getenv("IRRIGATION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("IRRIGATION_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("IRRIGATION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// State provider
	if v := os.Getenv("IRRIGATION_STATE_PROVIDER_URL"); v != "" {
		cfg.StateProvider.URL = v
	}

	// InfluxDB
	if v := os.Getenv("IRRIGATION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	switch c.Irrigation.Mode {
	case ModeRemote, ModeLocal:
	default:
		errs = append(errs, fmt.Sprintf("irrigation.mode must be %q or %q", ModeRemote, ModeLocal))
	}
	if c.Irrigation.Interval <= 0 {
		errs = append(errs, "irrigation.interval must be positive")
	}
	if c.Irrigation.DispatchTimeout <= 0 {
		errs = append(errs, "irrigation.dispatch_timeout must be positive")
	}
	if c.Irrigation.MaxParallelDispatch < 1 {
		errs = append(errs, "irrigation.max_parallel_dispatch must be at least 1")
	}
	if c.Irrigation.CommandQoS < 0 || c.Irrigation.CommandQoS > 2 {
		errs = append(errs, "irrigation.command_qos must be 0, 1, or 2")
	}
	if c.Irrigation.HistoryRetention < 0 {
		errs = append(errs, "irrigation.history_retention must not be negative")
	}

	switch c.StateProvider.Type {
	case ProviderSQLite:
	case ProviderHTTP:
		if c.StateProvider.URL == "" {
			errs = append(errs, "state_provider.url is required for the http provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("state_provider.type must be %q or %q", ProviderSQLite, ProviderHTTP))
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsRemote reports whether actuation commands should actually be sent.
func (c IrrigationConfig) IsRemote() bool {
	return c.Mode == ModeRemote
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
