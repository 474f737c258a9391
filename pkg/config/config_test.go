package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("BILLIFY_APP_ENV", "dev")
	t.Setenv("BILLIFY_APP_PORT", "8080")
	t.Setenv("BILLIFY_API_TOKEN", "api-token")
	t.Setenv("BILLIFY_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("BILLIFY_DIRECTORY_BASE_URL", "http://directory.local")
	t.Setenv("BILLIFY_DIRECTORY_API_TOKEN", "dir-token")
	t.Setenv("BILLIFY_NOTIFICATIONS_BASE_URL", "http://notify.local")
	t.Setenv("BILLIFY_NOTIFICATIONS_API_TOKEN", "notify-token")
	t.Setenv("BILLIFY_INVOICES_BASE_URL", "http://invoices.local")
	t.Setenv("BILLIFY_INVOICES_API_TOKEN", "inv-token")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.True(t, cfg.App.IsDev())
	assert.False(t, cfg.App.IsProd())
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.Billing.Interval)
	assert.Equal(t, 8, cfg.Billing.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Billing.CustomerLockTTL)
	assert.Equal(t, time.Hour, cfg.PaymentRetry.Interval)
	assert.Equal(t, 4, cfg.PaymentRetry.Workers)
}

func TestLoadRequiresAPIToken(t *testing.T) {
	setRequiredEnv(t)
	// t.Setenv registers the restore; the lookup must then fail entirely.
	os.Unsetenv("BILLIFY_API_TOKEN")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BILLIFY_BILLING_INTERVAL", "6h")
	t.Setenv("BILLIFY_PAYMENT_RETRY_WORKERS", "16")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, cfg.Billing.Interval)
	assert.Equal(t, 16, cfg.PaymentRetry.Workers)
}
