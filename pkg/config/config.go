package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	API           APIConfig
	Redis         RedisConfig
	Directory     DirectoryConfig
	Notifications NotificationsConfig
	Invoices      InvoiceServiceConfig
	Billing       BillingConfig
	PaymentRetry  PaymentRetryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BILLIFY_APP_ENV" required:"true"`
	Port         string `envconfig:"BILLIFY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BILLIFY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BILLIFY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BILLIFY_SERVICE_KIND" default:"api"`
}

// APIConfig carries the opaque bearer token that guards mutating API routes.
type APIConfig struct {
	Token string `envconfig:"BILLIFY_API_TOKEN" required:"true"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BILLIFY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BILLIFY_REDIS_ADDR"`
	Password     string        `envconfig:"BILLIFY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BILLIFY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BILLIFY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BILLIFY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BILLIFY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BILLIFY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BILLIFY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// DirectoryConfig points at the customer/subscription directory service.
type DirectoryConfig struct {
	BaseURL  string        `envconfig:"BILLIFY_DIRECTORY_BASE_URL" required:"true"`
	APIToken string        `envconfig:"BILLIFY_DIRECTORY_API_TOKEN" required:"true"`
	Timeout  time.Duration `envconfig:"BILLIFY_DIRECTORY_TIMEOUT" default:"10s"`
}

// NotificationsConfig points at the email gateway.
type NotificationsConfig struct {
	BaseURL  string        `envconfig:"BILLIFY_NOTIFICATIONS_BASE_URL" required:"true"`
	APIToken string        `envconfig:"BILLIFY_NOTIFICATIONS_API_TOKEN" required:"true"`
	Timeout  time.Duration `envconfig:"BILLIFY_NOTIFICATIONS_TIMEOUT" default:"10s"`
}

// InvoiceServiceConfig points at the invoice API consumed by the retry worker.
type InvoiceServiceConfig struct {
	BaseURL  string        `envconfig:"BILLIFY_INVOICES_BASE_URL" required:"true"`
	APIToken string        `envconfig:"BILLIFY_INVOICES_API_TOKEN" required:"true"`
	Timeout  time.Duration `envconfig:"BILLIFY_INVOICES_TIMEOUT" default:"10s"`
}

type BillingConfig struct {
	Interval        time.Duration `envconfig:"BILLIFY_BILLING_INTERVAL" default:"24h"`
	Workers         int           `envconfig:"BILLIFY_BILLING_WORKERS" default:"8"`
	CustomerLockTTL time.Duration `envconfig:"BILLIFY_BILLING_CUSTOMER_LOCK_TTL" default:"5m"`
}

type PaymentRetryConfig struct {
	Interval time.Duration `envconfig:"BILLIFY_PAYMENT_RETRY_INTERVAL" default:"1h"`
	Workers  int           `envconfig:"BILLIFY_PAYMENT_RETRY_WORKERS" default:"4"`
}
