package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct{ id string }

func TestLimitClamps(t *testing.T) {
	assert.Equal(t, 50, Pagination{}.Limit(50, 250))
	assert.Equal(t, 250, Pagination{PageSize: 1000}.Limit(50, 250))
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit(50, 250))
}

func TestPageTrimsAndEncodesNextToken(t *testing.T) {
	rows := []*row{{id: "1"}, {id: "2"}, {id: "3"}}

	kept, info, err := Page(rows, 2, func(r *row) Cursor { return Cursor{ID: r.id} })
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.ID)
}

func TestPageFinalPageHasNoToken(t *testing.T) {
	rows := []*row{{id: "1"}}
	kept, info, err := Page(rows, 2, func(r *row) Cursor { return Cursor{ID: r.id} })
	require.NoError(t, err)
	assert.Len(t, kept, 1)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidCursor)
	_, err = DecodeCursor("")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
