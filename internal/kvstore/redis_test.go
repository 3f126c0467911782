package kvstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/smallbiznis/constructtrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorePutGetDelete(t *testing.T) {
	client, prefix := testutil.OpenRedis(t)
	store := NewRedis(client, prefix)
	ctx := context.Background()

	_, err := store.Get(ctx, "proj-1-10")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "proj-1-10", []byte("first")))
	require.NoError(t, store.Put(ctx, "proj-1-10", []byte("second")))
	value, err := store.Get(ctx, "proj-1-10")
	require.NoError(t, err)
	assert.Equal(t, "second", string(value))
	assert.Equal(t, int64(1), client.Exists(ctx, prefix+"proj-1-10").Val())

	require.NoError(t, store.Delete(ctx, "proj-1-10"))
	_, err = store.Get(ctx, "proj-1-10")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Put(ctx, " ", []byte("x")), ErrInvalidKey)
}

func TestRedisStoreDeletePrefix(t *testing.T) {
	client, prefix := testutil.OpenRedis(t)
	store := NewRedis(client, prefix)
	other := NewRedis(client, prefix+"other:")
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, store.Put(ctx, fmt.Sprintf("proj-1-%d", i), []byte("a")))
	}
	require.NoError(t, store.Put(ctx, "proj-2-12", []byte("c")))
	require.NoError(t, other.Put(ctx, "proj-1-5", []byte("d")))

	n, err := store.DeletePrefix(ctx, "proj-1-")
	require.NoError(t, err)
	assert.Equal(t, int64(250), n)

	_, err = store.Get(ctx, "proj-1-7")
	assert.ErrorIs(t, err, ErrNotFound)
	value, err := store.Get(ctx, "proj-2-12")
	require.NoError(t, err)
	assert.Equal(t, "c", string(value))
	value, err = other.Get(ctx, "proj-1-5")
	require.NoError(t, err)
	assert.Equal(t, "d", string(value))

	_, err = store.DeletePrefix(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
