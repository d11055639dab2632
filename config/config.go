package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the storefront
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Stripe  StripeConfig  `mapstructure:"stripe"`
	Email   EmailConfig   `mapstructure:"email"`
	Orders  OrdersConfig  `mapstructure:"orders"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	BaseURL         string        `mapstructure:"base_url"`
	AllowedHosts    string        `mapstructure:"allowed_hosts"`
	Debug           bool          `mapstructure:"debug"`
	SecretKey       string        `mapstructure:"secret_key"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ExternalTimeout time.Duration `mapstructure:"external_timeout"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SessionConfig struct {
	Name   string `mapstructure:"name"`
	MaxAge int    `mapstructure:"max_age"`
}

type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	GoogleClientID string `mapstructure:"google_client_id"`
	GoogleSecret   string `mapstructure:"google_secret"`
}

type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StripeConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	PublishableKey string `mapstructure:"publishable_key"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	Currency       string `mapstructure:"currency"`
}

type EmailConfig struct {
	PostmarkToken  string `mapstructure:"postmark_token"`
	SendGridKey    string `mapstructure:"sendgrid_key"`
	Sender         string `mapstructure:"sender"`
	ContactAddress string `mapstructure:"contact_address"`
}

type OrdersConfig struct {
	DecrementStock bool `mapstructure:"decrement_stock"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// binding maps a config key to its environment variable and default value
type binding struct {
	key string
	env string
	def interface{}
}

var bindings = []binding{
	{"server.port", "PORT", "8000"},
	{"server.base_url", "BASE_URL", "http://127.0.0.1:8000"},
	{"server.allowed_hosts", "ALLOWED_HOSTS", "localhost,127.0.0.1"},
	{"server.debug", "DEBUG", false},
	{"server.secret_key", "SECRET_KEY", ""},
	{"server.shutdown_timeout", "SHUTDOWN_TIMEOUT", 10 * time.Second},
	{"server.external_timeout", "EXTERNAL_CALL_TIMEOUT", 15 * time.Second},
	{"mongodb.uri", "DATABASE_URL", "mongodb://localhost:27017"},
	{"mongodb.database", "DATABASE_NAME", "masivotech"},
	{"redis.addr", "REDIS_ADDR", ""},
	{"redis.password", "REDIS_PASSWORD", ""},
	{"redis.db", "REDIS_DB", 0},
	{"session.name", "SESSION_NAME", "masivotech_session"},
	{"session.max_age", "SESSION_MAX_AGE", 1209600},
	{"auth.jwt_secret", "JWT_SECRET", ""},
	{"auth.google_client_id", "GOOGLE_CLIENT_ID", ""},
	{"auth.google_secret", "GOOGLE_SECRET", ""},
	{"gemini.api_key", "GEMINI_API_KEY", ""},
	{"gemini.timeout", "GEMINI_TIMEOUT", 20 * time.Second},
	{"stripe.secret_key", "STRIPE_SECRET_KEY", ""},
	{"stripe.publishable_key", "STRIPE_PUBLISHABLE_KEY", ""},
	{"stripe.webhook_secret", "STRIPE_WEBHOOK_SECRET", ""},
	{"stripe.currency", "PAYMENT_CURRENCY", "ars"},
	{"email.postmark_token", "POSTMARK_API_TOKEN", ""},
	{"email.sendgrid_key", "SENDGRID_API_KEY", ""},
	{"email.sender", "EMAIL_SENDER", "info@masivotech.com"},
	{"email.contact_address", "CONTACT_EMAIL", "info@masivotech.com"},
	{"orders.decrement_stock", "DECREMENT_STOCK_ON_ORDER", false},
	{"log.level", "LOG_LEVEL", "info"},
}

// Load reads configuration from a .env file, the environment and an optional
// YAML file named by CONFIG_FILE. Environment variables take precedence.
func Load() (*Config, error) {
	// A missing .env file is not an error
	_ = godotenv.Load()

	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", b.env, err)
		}
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
	cfg.Stripe.Currency = strings.ToLower(cfg.Stripe.Currency)

	return &cfg, nil
}

// Hosts returns the allow-listed host names. An empty list or "*" allows any host.
func (s ServerConfig) Hosts() []string {
	var hosts []string
	for _, h := range strings.Split(s.AllowedHosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Secure reports whether cookies should carry the Secure flag
func (s ServerConfig) Secure() bool {
	return strings.HasPrefix(s.BaseURL, "https://")
}

// GoogleEnabled reports whether social login credentials are present
func (a AuthConfig) GoogleEnabled() bool {
	return a.GoogleClientID != "" && a.GoogleSecret != ""
}
