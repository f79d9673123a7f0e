package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	Queue     QueueConfig     `mapstructure:"queue"`
	App       AppConfig       `mapstructure:"app"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Email     EmailConfig     `mapstructure:"email"`
	WebPush   WebPushConfig   `mapstructure:"webpush"`
	FCM       FCMConfig       `mapstructure:"fcm"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig selects the slog handler. Format is "json" or "text".
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig holds API key authentication settings.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// CORSConfig holds CORS policy settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// RateLimitConfig holds API rate limiting settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SupabaseConfig holds Supabase project settings.
type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
}

// QueueConfig holds async queue settings.
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// AppConfig describes the product the notifications link back to.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url"`
}

// DispatchConfig tunes the dispatcher.
type DispatchConfig struct {
	BatchSize       int `mapstructure:"batch_size"`
	SendTimeoutSec  int `mapstructure:"send_timeout_sec"`
	UserCacheTTLSec int `mapstructure:"user_cache_ttl_sec"`
}

// SendTimeout returns the per-provider-call timeout.
func (d DispatchConfig) SendTimeout() time.Duration {
	return time.Duration(d.SendTimeoutSec) * time.Second
}

// UserCacheTTL returns how long recipient lookups stay cached.
func (d DispatchConfig) UserCacheTTL() time.Duration {
	return time.Duration(d.UserCacheTTLSec) * time.Second
}

// EmailConfig holds email provider settings.
// AccountToken is only used by Postmark.
type EmailConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	AccountToken string `mapstructure:"account_token"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
}

// WebPushConfig holds the VAPID identity used for browser push.
type WebPushConfig struct {
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	Subject         string `mapstructure:"subject"`
}

// FCMConfig holds the Firebase service account used for mobile push.
type FCMConfig struct {
	ProjectID   string `mapstructure:"project_id"`
	ClientEmail string `mapstructure:"client_email"`
	PrivateKey  string `mapstructure:"private_key"`
}

// defaults lists every key with its default. Registering each key lets
// AutomaticEnv populate it during Unmarshal even without a config file.
var defaults = map[string]any{
	"server.port":                    8081,
	"server.mode":                    "debug",
	"log.level":                      "info",
	"log.format":                     "json",
	"auth.api_keys":                  "",
	"cors.allowed_origins":           []string{},
	"cors.allowed_methods":           []string{},
	"cors.allowed_headers":           []string{},
	"rate_limit.requests_per_second": 50,
	"rate_limit.burst":               100,
	"redis.address":                  "localhost:6379",
	"redis.password":                 "",
	"redis.db":                       0,
	"supabase.url":                   "",
	"supabase.service_key":           "",
	"queue.concurrency":              10,
	"app.name":                       "NotifyHub",
	"app.base_url":                   "http://localhost:3000",
	"dispatch.batch_size":            10,
	"dispatch.send_timeout_sec":      10,
	"dispatch.user_cache_ttl_sec":    60,
	"email.provider":                 "resend",
	"email.api_key":                  "",
	"email.account_token":            "",
	"email.from_address":             "",
	"email.from_name":                "",
	"webpush.vapid_public_key":       "",
	"webpush.vapid_private_key":      "",
	"webpush.subject":                "",
	"fcm.project_id":                 "",
	"fcm.client_email":               "",
	"fcm.private_key":                "",
}

// Load reads configuration from config.yaml and environment variables.
// Environment variables use the NOTIFYHUB_ prefix and underscore separators.
// Example: NOTIFYHUB_SERVER_PORT overrides server.port in config.yaml.
func Load() (*Config, error) {
	v := viper.New()

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Load .env file if it exists
	_ = godotenv.Load()

	// Environment variable settings
	v.SetEnvPrefix("NOTIFYHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Read config file (optional, env vars can provide everything)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Comma-separated env vars are split by viper's decode hook
	cfg.Auth.APIKeys = cleanList(cfg.Auth.APIKeys)
	cfg.CORS.AllowedOrigins = cleanList(cfg.CORS.AllowedOrigins)

	// PEM keys arrive with literal \n when passed through env vars
	cfg.FCM.PrivateKey = strings.ReplaceAll(cfg.FCM.PrivateKey, `\n`, "\n")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Dispatch.BatchSize < 1 {
		return fmt.Errorf("dispatch.batch_size must be positive, got %d", c.Dispatch.BatchSize)
	}
	if c.Dispatch.SendTimeoutSec < 1 {
		return fmt.Errorf("dispatch.send_timeout_sec must be positive, got %d", c.Dispatch.SendTimeoutSec)
	}
	switch c.Email.Provider {
	case "resend", "postmark":
	default:
		return fmt.Errorf("email.provider must be resend or postmark, got %q", c.Email.Provider)
	}
	return nil
}

// cleanList trims entries and drops empty ones left by comma-separated env vars.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
