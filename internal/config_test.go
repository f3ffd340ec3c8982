package internal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("SESSION_STORE", "memory")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, uint16(3000), cfg.Port)
	assert.Equal(t, "saga", cfg.Checkout.BuyNowMode)
	assert.Equal(t, 5*time.Minute, cfg.Checkout.WalletQRTTL)
	assert.True(t, decimal.NewFromInt(500000).Equal(cfg.Checkout.FreeShippingThreshold))
	assert.Equal(t, "atelier_session", cfg.Session.CookieName)
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("CHECKOUT_BUY_NOW_MODE", "teleport")
	t.Setenv("WALLET_VERIFY_DELAY", "1500ms")
	t.Setenv("FLAT_SHIPPING_FEE", "25000")
	t.Setenv("API_BASE_URL", "https://shop.example.com/api/")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "saga", cfg.Checkout.BuyNowMode)
	assert.Equal(t, 1500*time.Millisecond, cfg.Checkout.WalletVerifyDelay)
	assert.True(t, decimal.NewFromInt(25000).Equal(cfg.Checkout.FlatShippingFee))
}

func TestNewConfig_RedisNeedsURL(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("REDIS_URL", "")

	_, err := NewConfig()
	assert.Error(t, err)
}

func TestNewConfig_ProdNeedsAPI(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("API_BASE_URL", "")

	_, err := NewConfig()
	assert.Error(t, err)
}
