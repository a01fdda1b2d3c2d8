// Package config provides configuration management for the inventory
// service and its command-line client.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultAuthMode        = "none"
	DefaultStorageBackend  = "memory"
	DefaultRedisAddr       = "localhost:6379"
	DefaultKafkaTopic      = "inventory.changes"
	DefaultRemoteURL       = "http://localhost:8080"
	DefaultRemoteTimeout   = 10 * time.Second
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvOTLPEndpoint    = "APP_OTLP_ENDPOINT"
	EnvAuthMode        = "APP_AUTH_MODE"
	EnvBasicAuthUsers  = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys         = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
	EnvStorageBackend  = "APP_STORAGE_BACKEND"
	EnvRedisAddr       = "APP_REDIS_ADDR"
	EnvRedisPassword   = "APP_REDIS_PASSWORD" //nolint:gosec // env var name, not a credential
	EnvRedisDB         = "APP_REDIS_DB"
	EnvMySQLDSN        = "APP_MYSQL_DSN"
	EnvKafkaBrokers    = "APP_KAFKA_BROKERS"
	EnvKafkaTopic      = "APP_KAFKA_TOPIC"

	EnvRemoteURL       = "APP_REMOTE_URL"
	EnvRemoteTimeout   = "APP_REMOTE_TIMEOUT"
	EnvRemoteAPIKey    = "APP_REMOTE_API_KEY" //nolint:gosec // env var name, not a credential
	EnvRemoteBasicUser = "APP_REMOTE_BASIC_USER"
	EnvRemoteBasicPass = "APP_REMOTE_BASIC_PASS" //nolint:gosec // env var name, not a credential
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMySQL  = "mysql"
)

// Config holds the inventory service configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	OTLPEndpoint    string

	// Authentication mode: none, basic, apikey, multi.
	AuthMode string

	// Basic auth settings (format: "user1:bcrypt_hash,user2:bcrypt_hash").
	BasicAuthUsers string

	// API key settings (format: "key1:name1,key2:name2").
	APIKeys string

	// Storage settings.
	StorageBackend string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	MySQLDSN       string

	// Change feed settings. Kafka publishing is off when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string
}

// ClientConfig holds the command-line client configuration.
type ClientConfig struct {
	LogLevel     string
	OTLPEndpoint string

	RemoteURL       string
	RemoteTimeout   time.Duration
	RemoteAPIKey    string
	RemoteBasicUser string
	RemoteBasicPass string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidAuthMode        = errors.New(
		"auth mode must be one of: none, basic, apikey, multi",
	)
	ErrInvalidBasicAuthConfig = errors.New(
		"basic auth users must be set when auth mode is basic",
	)
	ErrInvalidAPIKeyConfig = errors.New(
		"API keys must be set when auth mode is apikey",
	)
	ErrInvalidMultiAuthConfig = errors.New(
		"at least one auth config must be provided when auth mode is multi",
	)
	ErrInvalidStorageBackend = errors.New(
		"storage backend must be one of: memory, redis, mysql",
	)
	ErrInvalidRedisConfig = errors.New(
		"redis address must be set and redis DB must not be negative when storage backend is redis",
	)
	ErrInvalidMySQLConfig = errors.New(
		"MySQL DSN must be set when storage backend is mysql",
	)
	ErrInvalidRemoteURL = errors.New(
		"remote URL must start with http:// or https://",
	)
	ErrInvalidRemoteTimeout = errors.New("remote timeout must be positive")
)

// LoadEnvFiles loads variables from .env style files into the process
// environment. Variables already set are not overridden and missing
// files are skipped.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}

	return nil
}

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:      DefaultServerPort,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		AuthMode:        DefaultAuthMode,
		StorageBackend:  DefaultStorageBackend,
		RedisAddr:       DefaultRedisAddr,
		KafkaTopic:      DefaultKafkaTopic,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	c.loadAuthEnv()

	if err := c.loadStorageEnv(); err != nil {
		return err
	}

	c.loadKafkaEnv()

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	if val := os.Getenv(EnvOTLPEndpoint); val != "" {
		c.OTLPEndpoint = val
	}

	return nil
}

// loadAuthEnv loads authentication environment variables.
func (c *Config) loadAuthEnv() {
	if val := os.Getenv(EnvAuthMode); val != "" {
		c.AuthMode = val
	}

	if val := os.Getenv(EnvBasicAuthUsers); val != "" {
		c.BasicAuthUsers = val
	}

	if val := os.Getenv(EnvAPIKeys); val != "" {
		c.APIKeys = val
	}
}

// loadStorageEnv loads storage backend environment variables.
func (c *Config) loadStorageEnv() error {
	if val := os.Getenv(EnvStorageBackend); val != "" {
		c.StorageBackend = strings.ToLower(val)
	}

	if val := os.Getenv(EnvRedisAddr); val != "" {
		c.RedisAddr = val
	}

	if val := os.Getenv(EnvRedisPassword); val != "" {
		c.RedisPassword = val
	}

	if val := os.Getenv(EnvRedisDB); val != "" {
		db, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRedisDB, err)
		}
		c.RedisDB = db
	}

	if val := os.Getenv(EnvMySQLDSN); val != "" {
		c.MySQLDSN = val
	}

	return nil
}

// loadKafkaEnv loads change feed environment variables.
func (c *Config) loadKafkaEnv() {
	if val := os.Getenv(EnvKafkaBrokers); val != "" {
		c.KafkaBrokers = splitList(val)
	}

	if val := os.Getenv(EnvKafkaTopic); val != "" {
		c.KafkaTopic = val
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateAuth validates authentication configuration.
func (c *Config) validateAuth() error {
	authMode := c.authModeOrDefault()

	validAuthModes := map[string]bool{
		"none":   true,
		"basic":  true,
		"apikey": true,
		"multi":  true,
	}
	if !validAuthModes[authMode] {
		return ErrInvalidAuthMode
	}

	switch authMode {
	case "basic":
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case "apikey":
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case "multi":
		if c.BasicAuthUsers == "" && c.APIKeys == "" {
			return ErrInvalidMultiAuthConfig
		}
	}

	return nil
}

// validateStorage validates the storage backend selection.
func (c *Config) validateStorage() error {
	switch c.storageBackendOrDefault() {
	case StorageMemory:
	case StorageRedis:
		if c.RedisAddr == "" || c.RedisDB < 0 {
			return ErrInvalidRedisConfig
		}
	case StorageMySQL:
		if c.MySQLDSN == "" {
			return ErrInvalidMySQLConfig
		}
	default:
		return ErrInvalidStorageBackend
	}

	return nil
}

// authModeOrDefault returns the auth mode, defaulting to "none" if empty.
func (c *Config) authModeOrDefault() string {
	if c.AuthMode == "" {
		return DefaultAuthMode
	}
	return c.AuthMode
}

// storageBackendOrDefault returns the storage backend, defaulting to memory.
func (c *Config) storageBackendOrDefault() string {
	if c.StorageBackend == "" {
		return DefaultStorageBackend
	}
	return c.StorageBackend
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// KafkaEnabled reports whether change events are also written to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// LoadClient reads the command-line client configuration from
// environment variables with defaults.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		LogLevel:      DefaultLogLevel,
		RemoteURL:     DefaultRemoteURL,
		RemoteTimeout: DefaultRemoteTimeout,
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		cfg.LogLevel = val
	}

	if val := os.Getenv(EnvOTLPEndpoint); val != "" {
		cfg.OTLPEndpoint = val
	}

	if val := os.Getenv(EnvRemoteURL); val != "" {
		cfg.RemoteURL = val
	}

	if val := os.Getenv(EnvRemoteTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("loading config from environment: parsing %s: %w", EnvRemoteTimeout, err)
		}
		cfg.RemoteTimeout = timeout
	}

	cfg.RemoteAPIKey = os.Getenv(EnvRemoteAPIKey)
	cfg.RemoteBasicUser = os.Getenv(EnvRemoteBasicUser)
	cfg.RemoteBasicPass = os.Getenv(EnvRemoteBasicPass)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the client configuration values are valid.
func (c *ClientConfig) Validate() error {
	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}

	if !strings.HasPrefix(c.RemoteURL, "http://") && !strings.HasPrefix(c.RemoteURL, "https://") {
		return ErrInvalidRemoteURL
	}

	if c.RemoteTimeout <= 0 {
		return ErrInvalidRemoteTimeout
	}

	return nil
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return ErrInvalidLogLevel
}

// splitList splits a comma separated value, dropping blanks.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
