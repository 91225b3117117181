package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "SYNC_INTERVAL", "JWT_TTL", "FIELD3_TITLE", "THINGSPEAK_CHANNEL"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, "202842", cfg.ThingSpeakChannel)
	require.Equal(t, time.Duration(0), cfg.SyncInterval)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.Equal(t, "BH luminosity", cfg.Fields.Titles()[2])
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SYNC_INTERVAL", "5m")
	t.Setenv("STORE_QUERY_LIMIT", "50")
	t.Setenv("FIELD3_TITLE", "Light")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, 5*time.Minute, cfg.SyncInterval)
	require.Equal(t, 50, cfg.StoreQueryLimit)
	require.Equal(t, "Light", cfg.Fields.Titles()[2])
	require.Equal(t, "BH luminosity", DefaultFields[2].Title)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")
	_, err = FromEnv()
	require.Error(t, err)

	t.Setenv("DB_DRIVER", "memory")
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.DBDriver)

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("HTTP_TIMEOUT", "soon")
	_, err = FromEnv()
	require.Error(t, err)
}

func TestFieldsBySlug(t *testing.T) {
	fields := Fields(DefaultFields)

	f, ok := fields.BySlug("bmp", "temp")
	require.True(t, ok)
	require.Equal(t, 8, int(f.Key))
	require.Equal(t, "bmp/temp", f.Slug())

	f, ok = fields.BySlug("DS", "heater-temp")
	require.True(t, ok)
	require.Equal(t, 5, int(f.Key))

	_, ok = fields.BySlug("dht", "pressure")
	require.False(t, ok)
}
