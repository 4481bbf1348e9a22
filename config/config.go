package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/benson/survivor/logging"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Authentication configuration
	Auth AuthConfig `json:"auth"`

	// Application configuration
	App AppConfig `json:"app"`

	// Roster sync configuration
	Sync SyncConfig `json:"sync"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string `json:"port"`
	Host        string `json:"host"`
	UseTLS      bool   `json:"use_tls"`
	BehindProxy bool   `json:"behind_proxy"`
	CertFile    string `json:"cert_file"`
	KeyFile     string `json:"key_file"`
	Environment string `json:"environment"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URI      string        `json:"uri"`
	Host     string        `json:"host"`
	Port     string        `json:"port"`
	Username string        `json:"username"`
	Password string        `json:"password"`
	Database string        `json:"database"`
	Timeout  time.Duration `json:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Prefix      string `json:"prefix"`
	EnableColor bool   `json:"enable_color"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret     string        `json:"jwt_secret"`
	TokenExpiry   time.Duration `json:"token_expiry"`
	AdminUsername string        `json:"admin_username"`
	AdminPassword string        `json:"admin_password"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	DefaultSeason string `json:"default_season"`
	IsDevelopment bool   `json:"is_development"`
	SeedFile      string `json:"seed_file"`
}

// SyncConfig holds wiki roster sync configuration
type SyncConfig struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
	WikiURL  string        `json:"wiki_url"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Don't treat missing .env as an error
		logging.Warnf("Could not load .env file: %v", err)
	}

	// Determine if we're in development mode first
	environment := getEnv("ENVIRONMENT", "development")
	isDevelopment := strings.ToLower(environment) == "development"

	// Get server port with development override
	serverPort := getEnv("SERVER_PORT", "8080")
	if isDevelopment {
		if develPort := getEnv("DEVEL_SERVER_PORT", ""); develPort != "" {
			serverPort = develPort
		}
	}

	// Get database port with development override
	dbPort := getEnv("DB_PORT", "27017")
	if isDevelopment {
		if develPort := getEnv("DEVEL_DB_PORT", ""); develPort != "" {
			dbPort = develPort
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:        serverPort,
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			UseTLS:      getBoolEnv("USE_TLS", false),
			BehindProxy: getBoolEnv("BEHIND_PROXY", false),
			CertFile:    getEnv("TLS_CERT_FILE", "server.crt"),
			KeyFile:     getEnv("TLS_KEY_FILE", "server.key"),
			Environment: environment,
		},
		Database: DatabaseConfig{
			URI:      getEnv("MONGO_URI", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			Username: getEnv("DB_USERNAME", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "survivor_pool"),
			Timeout:  getDurationEnv("DB_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "debug"),
			Prefix:      getEnv("LOG_PREFIX", "survivor"),
			EnableColor: getBoolEnv("LOG_COLOR", true),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			TokenExpiry:   getDurationEnv("TOKEN_EXPIRY", 24*time.Hour),
			AdminUsername: getEnv("ADMIN_USERNAME", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		App: AppConfig{
			DefaultSeason: getEnv("DEFAULT_SEASON", ""),
			IsDevelopment: isDevelopment,
			SeedFile:      getEnv("SEED_FILE", ""),
		},
		Sync: SyncConfig{
			Enabled:  getBoolEnv("SYNC_ENABLED", true),
			Interval: getDurationEnv("SYNC_INTERVAL", 6*time.Hour),
			WikiURL:  getEnv("SYNC_WIKI_URL", "https://survivor.fandom.com"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration for required fields and sensible values
func (c *Config) Validate() error {
	// Validate server configuration
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Server.UseTLS && !c.Server.BehindProxy {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS certificate and key files are required when USE_TLS=true")
		}

		// Check if certificate files exist
		if _, err := os.Stat(c.Server.CertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", c.Server.CertFile)
		}
		if _, err := os.Stat(c.Server.KeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", c.Server.KeyFile)
		}
	}

	// Validate database configuration. An explicit URI overrides the
	// host/port fields, so only require them when it is absent.
	if c.Database.URI == "" {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port == "" {
			return fmt.Errorf("database port is required")
		}
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	// Validate authentication
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Auth.JWTSecret == "your-secret-key-change-in-production" && !c.App.IsDevelopment {
		return fmt.Errorf("JWT secret must be changed in production")
	}
	if c.Auth.TokenExpiry < time.Minute {
		return fmt.Errorf("token expiry must be at least one minute, got: %s", c.Auth.TokenExpiry)
	}

	// Validate sync configuration
	if c.Sync.Enabled && c.Sync.Interval < time.Minute {
		return fmt.Errorf("sync interval must be at least one minute, got: %s", c.Sync.Interval)
	}
	if c.Sync.Enabled && c.Sync.WikiURL == "" {
		return fmt.Errorf("wiki URL is required while sync is enabled")
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// IsSyncEnabled returns true if the background roster sync should run
func (c *Config) IsSyncEnabled() bool {
	return c.Sync.Enabled
}

// LogConfiguration logs the current configuration (without sensitive data)
func (c *Config) LogConfiguration() {
	logging.Info("=== Application Configuration ===")
	logging.Infof("Server: %s (TLS: %t, Behind Proxy: %t, Environment: %s)",
		c.GetServerAddress(), c.Server.UseTLS, c.Server.BehindProxy, c.Server.Environment)
	logging.Infof("Database: %s:%s/%s (Username: %s, Auth: %t, URI override: %t)",
		c.Database.Host, c.Database.Port, c.Database.Database,
		c.Database.Username, c.Database.Password != "", c.Database.URI != "")
	logging.Infof("Logging: Level=%s, Prefix=%s, Color=%t",
		c.Logging.Level, c.Logging.Prefix, c.Logging.EnableColor)
	logging.Infof("Auth: TokenExpiry=%s, AdminBootstrap=%t",
		c.Auth.TokenExpiry, c.Auth.AdminUsername != "")
	logging.Infof("App: DefaultSeason=%q, Development=%t, SeedFile=%q",
		c.App.DefaultSeason, c.App.IsDevelopment, c.App.SeedFile)
	logging.Infof("Sync: Enabled=%t, Interval=%s, WikiURL=%s", c.Sync.Enabled, c.Sync.Interval, c.Sync.WikiURL)
	logging.Info("================================")
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
