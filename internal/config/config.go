package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Geocode  GeocodeConfig  `mapstructure:"geocode"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	RateLimitRPS   int `mapstructure:"rate_limit_rps"`
	RateLimitBurst int `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	RefreshSecret      string `mapstructure:"refresh_secret"`
	ExpiryHours        int    `mapstructure:"expiry_hours"`
	RefreshExpiryHours int    `mapstructure:"refresh_expiry_hours"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type GeocodeConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// secrets is overlaid on top of the file-based config so credentials
// never need to live in config.yaml.
type secrets struct {
	DBPassword    string `envconfig:"DB_PASSWORD"`
	JWTSecret     string `envconfig:"JWT_SECRET"`
	RefreshSecret string `envconfig:"JWT_REFRESH_SECRET"`
	SMTPPassword  string `envconfig:"SMTP_PASSWORD"`
	GeocodeAPIKey string `envconfig:"GEOCODE_API_KEY"`
	RedisURL      string `envconfig:"REDIS_URL"`
	DatabaseHost  string `envconfig:"DB_HOST"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var sec secrets
	if err := envconfig.Process("raktseva", &sec); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}
	applySecrets(&cfg, sec)

	if cfg.JWT.Secret == "" || cfg.JWT.RefreshSecret == "" {
		return nil, fmt.Errorf("jwt secrets are not configured")
	}
	return &cfg, nil
}

func applySecrets(cfg *Config, sec secrets) {
	if sec.DBPassword != "" {
		cfg.Database.Password = sec.DBPassword
	}
	if sec.DatabaseHost != "" {
		cfg.Database.Host = sec.DatabaseHost
	}
	if sec.JWTSecret != "" {
		cfg.JWT.Secret = sec.JWTSecret
	}
	if sec.RefreshSecret != "" {
		cfg.JWT.RefreshSecret = sec.RefreshSecret
	}
	if sec.SMTPPassword != "" {
		cfg.SMTP.Password = sec.SMTPPassword
	}
	if sec.GeocodeAPIKey != "" {
		cfg.Geocode.APIKey = sec.GeocodeAPIKey
	}
	if sec.RedisURL != "" {
		cfg.Redis.URL = sec.RedisURL
	}
}

func (c ServerConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c JWTConfig) Expiry() time.Duration {
	if c.ExpiryHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.ExpiryHours) * time.Hour
}

func (c JWTConfig) RefreshExpiry() time.Duration {
	if c.RefreshExpiryHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.RefreshExpiryHours) * time.Hour
}

func (c GeocodeConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
