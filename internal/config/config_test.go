package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SNOWFLAKE_NODE", "7")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("BLOB_BACKEND", "s3")
	t.Setenv("GEO_LOOKUP_TIMEOUT_MS", "1500")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, int64(7), cfg.NodeID)
	assert.Equal(t, BackendRedis, cfg.LockBackend)
	assert.Equal(t, BackendDB, cfg.BlobBackend)
	assert.Equal(t, 1500*time.Millisecond, cfg.GeoLookupTimeout)
	assert.False(t, cfg.Bootstrap.SeedDefaults)
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("SNOWFLAKE_NODE", "not-a-number")

	cfg := Load()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, int64(1), cfg.NodeID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.Bootstrap.SeedDefaults)
}
