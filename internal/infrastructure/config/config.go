// Package config loads the service configuration from defaults, an optional
// YAML file and CHECKOUT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const envPrefix = "CHECKOUT"

type ServiceConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

func (s ServerConfig) Addr() string {
	host := s.Host
	if host == "" {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", host, s.Port)
}

type StoreConfig struct {
	// Driver is memory or mysql.
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// RedisConfig enables the distributed payment lock when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RabbitMQConfig enables the event relay when URL is set.
type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	// RatePerMinute bounds order and preference creation per user.
	RatePerMinute int `mapstructure:"rate_per_minute"`
	RateBurst     int `mapstructure:"rate_burst"`
}

type OrderConfig struct {
	TaxRate      string `mapstructure:"tax_rate"`
	NumberPrefix string `mapstructure:"number_prefix"`
	Currency     string `mapstructure:"currency"`
}

type PaymentConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	AccessToken   string        `mapstructure:"access_token"`
	Sandbox       bool          `mapstructure:"sandbox"`
	FrontendURL   string        `mapstructure:"frontend_url"`
	APIURL        string        `mapstructure:"api_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	PreferenceTTL time.Duration `mapstructure:"preference_ttl"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryInitial  time.Duration `mapstructure:"retry_initial"`
}

type WebhookConfig struct {
	Secret        string `mapstructure:"secret"`
	AllowUnsigned bool   `mapstructure:"allow_unsigned"`
}

type ParcelConfig struct {
	WeightGrams int `mapstructure:"weight_grams"`
	LengthCM    int `mapstructure:"length_cm"`
	WidthCM     int `mapstructure:"width_cm"`
	HeightCM    int `mapstructure:"height_cm"`
}

type ShippingConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	Secret    string        `mapstructure:"secret"`
	AccountID string        `mapstructure:"account_id"`
	OriginID  string        `mapstructure:"origin_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Parcel    ParcelConfig  `mapstructure:"parcel"`
}

type NotificationConfig struct {
	TeamEmail string `mapstructure:"team_email"`
}

type Config struct {
	Service      ServiceConfig      `mapstructure:"service"`
	Server       ServerConfig       `mapstructure:"server"`
	Store        StoreConfig        `mapstructure:"store"`
	Redis        RedisConfig        `mapstructure:"redis"`
	RabbitMQ     RabbitMQConfig     `mapstructure:"rabbitmq"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Order        OrderConfig        `mapstructure:"order"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Webhook      WebhookConfig      `mapstructure:"webhook"`
	Shipping     ShippingConfig     `mapstructure:"shipping"`
	Notification NotificationConfig `mapstructure:"notification"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "checkout")
	v.SetDefault("service.env", "dev")
	v.SetDefault("service.log_level", "info")
	v.SetDefault("service.log_file", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "checkout:checkout@tcp(127.0.0.1:3306)/checkout?charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("store.max_open_conns", 20)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("store.migrate", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "checkout:lock:")

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "checkout.events")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.rate_per_minute", 30)
	v.SetDefault("auth.rate_burst", 5)

	v.SetDefault("order.tax_rate", "0.21")
	v.SetDefault("order.number_prefix", "ORD")
	v.SetDefault("order.currency", "ARS")

	v.SetDefault("payment.base_url", "https://api.mercadopago.com")
	v.SetDefault("payment.access_token", "")
	v.SetDefault("payment.sandbox", true)
	v.SetDefault("payment.frontend_url", "http://localhost:3000")
	v.SetDefault("payment.api_url", "http://localhost:8080")
	v.SetDefault("payment.timeout", 15*time.Second)
	v.SetDefault("payment.preference_ttl", 24*time.Hour)
	v.SetDefault("payment.lock_ttl", 30*time.Second)
	v.SetDefault("payment.retry_attempts", 3)
	v.SetDefault("payment.retry_initial", time.Second)

	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.allow_unsigned", false)

	v.SetDefault("shipping.base_url", "https://api.zipnova.com.ar/v2")
	v.SetDefault("shipping.token", "")
	v.SetDefault("shipping.secret", "")
	v.SetDefault("shipping.account_id", "")
	v.SetDefault("shipping.origin_id", "")
	v.SetDefault("shipping.timeout", 15*time.Second)
	v.SetDefault("shipping.parcel.weight_grams", 100)
	v.SetDefault("shipping.parcel.length_cm", 10)
	v.SetDefault("shipping.parcel.width_cm", 10)
	v.SetDefault("shipping.parcel.height_cm", 10)

	v.SetDefault("notification.team_email", "")
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE or path,
// then CHECKOUT_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		path = file
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "memory":
	case "mysql":
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the mysql driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Webhook.Secret == "" && !c.Webhook.AllowUnsigned {
		errs = append(errs, errors.New("webhook.secret is required unless webhook.allow_unsigned is set"))
	}
	rate, err := decimal.NewFromString(c.Order.TaxRate)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("order.tax_rate %q is not a number", c.Order.TaxRate))
	case rate.IsNegative():
		errs = append(errs, errors.New("order.tax_rate must not be negative"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// TaxRate returns the parsed order tax rate. Validate guarantees it parses.
func (c *Config) TaxRate() decimal.Decimal {
	return decimal.RequireFromString(c.Order.TaxRate)
}
