package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnvOverrides(t *testing.T) {
	t.Setenv("CHECKOUT_WEBHOOK_SECRET", "whsec")
	t.Setenv("CHECKOUT_AUTH_JWT_SECRET", "jwt")
	t.Setenv("CHECKOUT_SERVER_PORT", "9090")
	t.Setenv("CHECKOUT_PAYMENT_RETRY_INITIAL", "250ms")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, "whsec", cfg.Webhook.Secret)
	assert.Equal(t, 250*time.Millisecond, cfg.Payment.RetryInitial)
	assert.Equal(t, 3, cfg.Payment.RetryAttempts)
	assert.True(t, decimal.RequireFromString("0.21").Equal(cfg.TaxRate()))
	assert.Equal(t, 100, cfg.Shipping.Parcel.WeightGrams)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: mysql
  dsn: "u:p@tcp(db:3306)/checkout"
webhook:
  allow_unsigned: true
auth:
  jwt_secret: s3cret
order:
  tax_rate: "0.105"
  number_prefix: MAA
`), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Store.Driver)
	assert.True(t, cfg.Webhook.AllowUnsigned)
	assert.Equal(t, "MAA", cfg.Order.NumberPrefix)
	assert.True(t, decimal.RequireFromString("0.105").Equal(cfg.TaxRate()))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Store:   StoreConfig{Driver: "memory"},
			Webhook: WebhookConfig{Secret: "s"},
			Order:   OrderConfig{TaxRate: "0.21"},
			Auth:    AuthConfig{JWTSecret: "j"},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Webhook.Secret = ""
	assert.ErrorContains(t, cfg.Validate(), "webhook.secret")

	cfg.Webhook.AllowUnsigned = true
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Order.TaxRate = "-0.1"
	assert.ErrorContains(t, cfg.Validate(), "must not be negative")

	cfg = valid()
	cfg.Store.Driver = "mongo"
	assert.ErrorContains(t, cfg.Validate(), `"mongo" is not supported`)

	cfg = valid()
	cfg.Store.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "store.dsn")
}
