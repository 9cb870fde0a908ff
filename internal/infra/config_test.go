package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigPoolDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, int32(20), cfg.PGMaxConns)
	assert.Equal(t, int32(2), cfg.PGMinConns)
	assert.Equal(t, 30, cfg.PGConnLifetimeMin)
	assert.Equal(t, 5, cfg.PGConnIdleMin)
}

func TestLoadConfigPoolOverrides(t *testing.T) {
	t.Setenv("PG_MAX_CONNS", "50")
	t.Setenv("PG_MIN_CONNS", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, int32(50), cfg.PGMaxConns)
	assert.Equal(t, int32(10), cfg.PGMinConns)
}

func TestDSNPrefersDatabaseURL(t *testing.T) {
	cfg := &Config{
		DatabaseURL: "postgres://app:secret@db:5432/app",
		PGHost:      "ignored",
	}
	assert.Equal(t, "postgres://app:secret@db:5432/app", cfg.DSN())
}
