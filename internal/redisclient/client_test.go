package redisclient

import (
	"testing"

	"github.com/smallbiznis/constructtrack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNewWithoutAddressReturnsNil(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	assert.Nil(t, New(lc, config.Config{RedisAddr: "  "}, zap.NewNop()))
}

func TestNewUsesConfiguredAddress(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	client := New(lc, config.Config{RedisAddr: "127.0.0.1:6390", RedisDB: 2}, zap.NewNop())
	require.NotNil(t, client)
	assert.Equal(t, "127.0.0.1:6390", client.Options().Addr)
	assert.Equal(t, 2, client.Options().DB)
	require.NoError(t, client.Close())
}
