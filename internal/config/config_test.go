package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "billing.db", cfg.DBPath)
	assert.Equal(t, time.Hour, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.StopTimeout)
	assert.Equal(t, 30, cfg.PaymentTermsDays)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Zero(t, cfg.DefaultTaxRate)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BILLING_DB_PATH", "/tmp/x.db")
	t.Setenv("SCHEDULER_POLL_INTERVAL", "15m")
	t.Setenv("PAYMENT_TERMS_DAYS", "14")
	t.Setenv("DEFAULT_CURRENCY", "EUR")
	t.Setenv("DEFAULT_TAX_RATE", "19")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, 15*time.Minute, cfg.PollInterval)
	assert.Equal(t, 14, cfg.PaymentTermsDays)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, 19.0, cfg.DefaultTaxRate)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SCHEDULER_POLL_INTERVAL", "not-a-duration")
	t.Setenv("PAYMENT_TERMS_DAYS", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.PollInterval)
	assert.Equal(t, 30, cfg.PaymentTermsDays)
}

func TestValidate(t *testing.T) {
	t.Run("negative payment terms rejected", func(t *testing.T) {
		t.Setenv("PAYMENT_TERMS_DAYS", "-5")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative tax rate rejected", func(t *testing.T) {
		t.Setenv("DEFAULT_TAX_RATE", "-1")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestGetLoggerConfig(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	lc := cfg.GetLoggerConfig()
	assert.Equal(t, cfg.LogLevel, lc.Level)
	assert.Equal(t, cfg.LogFormat, lc.Format)
	assert.Equal(t, cfg.LogOutput, lc.Output)
}
