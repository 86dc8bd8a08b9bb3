package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 336*time.Hour, cfg.Auth.RememberTTL)
	assert.True(t, cfg.Checkout.ConfirmStep)
	assert.Equal(t, 30*time.Minute, cfg.Checkout.PendingTTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CHECKOUT_CONFIRM_STEP", "false")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("AUTH_GUEST_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Checkout.ConfirmStep)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, time.Hour, cfg.Auth.GuestTTL)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)
}
