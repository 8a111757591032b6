package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// AuthConfig holds session token and login lockout configuration
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	LockoutWindow time.Duration `mapstructure:"lockout_window"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// BatchConfig holds background sweep configuration
type BatchConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/jobpal.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Auth defaults
	viper.SetDefault("auth.token_ttl", 8*time.Hour)
	viper.SetDefault("auth.max_attempts", 3)
	viper.SetDefault("auth.lockout_window", 15*time.Minute)

	// OpenAI defaults
	viper.SetDefault("openai.model", "gpt-4")
	viper.SetDefault("openai.temperature", 0.0)
	viper.SetDefault("openai.timeout", 60*time.Second)

	// Batch defaults
	viper.SetDefault("batch.sweep_interval", 1*time.Hour)
	viper.SetDefault("batch.stale_after", 72*time.Hour)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.MaxAttempts <= 0 {
		return fmt.Errorf("auth.max_attempts must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port number")
	}
	return nil
}
