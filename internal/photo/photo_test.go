package photo

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/constructtrack/internal/kvstore"
	"github.com/smallbiznis/constructtrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "proj-1-10", ProjectPhotoKey(1, 10))
	assert.Equal(t, "punch-1-5-10", PunchListPhotoKey(1, 5, 10))
	assert.Equal(t, "receipt-abc", ReceiptKey("abc"))
	assert.Len(t, NewReceiptID(), 26)
}

func TestParseDataURL(t *testing.T) {
	img, err := ParseDataURL("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, "hello", string(img.Data))
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", img.DataURL())

	for _, raw := range []string{
		"",
		"image/png;base64,aGVsbG8=",
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png,aGVsbG8=",
		"data:image/png;base64,!!!",
	} {
		_, err := ParseDataURL(raw)
		assert.ErrorIs(t, err, ErrInvalidImage, raw)
	}
}

func TestStoreRoundTripAndProjectDelete(t *testing.T) {
	store := NewStore(kvstore.NewGorm(testutil.OpenDB(t, &kvstore.Entry{})))
	ctx := context.Background()
	img := Image{ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}

	project := snowflake.ID(7)
	require.NoError(t, store.Put(ctx, ProjectPhotoKey(project, 1), img))
	require.NoError(t, store.Put(ctx, PunchListPhotoKey(project, 2, 3), img))
	require.NoError(t, store.Put(ctx, ProjectPhotoKey(70, 1), img))

	got, err := store.Get(ctx, ProjectPhotoKey(project, 1))
	require.NoError(t, err)
	assert.Equal(t, img, got)

	n, err := store.DeleteProject(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = store.Get(ctx, PunchListPhotoKey(project, 2, 3))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, ProjectPhotoKey(70, 1))
	assert.NoError(t, err)
}
