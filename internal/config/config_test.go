package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CHAT_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "vegbox.db", cfg.Database.URL)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "http://localhost:11434/api/generate", cfg.Chat.Endpoint)
	assert.Equal(t, "llama3.2:1b", cfg.Chat.Model)
	assert.Zero(t, cfg.Chat.Timeout)
	assert.False(t, cfg.Checkout.StrictStock)
	assert.Equal(t, "images", cfg.Images.Dir)
}

func TestLoadPostgresDefaultURL(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Contains(t, cfg.Database.URL, "postgres://")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHAT_TIMEOUT", "15s")
	t.Setenv("CHECKOUT_STRICT_STOCK", "true")
	t.Setenv("SESSION_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Chat.Timeout)
	assert.True(t, cfg.Checkout.StrictStock)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("IMAGES_DRIVER", "s3")
	t.Setenv("IMAGES_S3_BUCKET", "")
	_, err = Load()
	assert.Error(t, err)
}
