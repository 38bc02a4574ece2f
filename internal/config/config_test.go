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

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "portal.query_events", cfg.Kafka.QueryEventsTopic)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "@every 1h", cfg.Scheduler.ResetExpiredCredits)
	require.Len(t, cfg.Vendors.Signzy.Endpoints, 1)
	assert.Equal(t, "/v1/authorize", cfg.Vendors.Deepvue.TokenPath)
	assert.True(t, cfg.Lookup.DefaultCharge().Equal(decimal.NewFromInt(5)))
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":9090\"\nlookup:\n  default_credit_charge: \"7.50\"\n"), 0o600))

	t.Setenv("PORTAL_AUTH_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "7.5", cfg.Lookup.DefaultCharge().String())
}

func TestDefaultChargeFallback(t *testing.T) {
	assert.Equal(t, "5", LookupConfig{DefaultCreditCharge: "oops"}.DefaultCharge().String())
	assert.Equal(t, "5", LookupConfig{DefaultCreditCharge: "-1"}.DefaultCharge().String())
}
