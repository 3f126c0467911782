package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFixed(t *testing.T) {
	loc, err := Resolve(context.Background(), Fixed(40.7, -74.0, 5), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 40.7, loc.Latitude)
}

func TestResolveNilLocator(t *testing.T) {
	loc, err := Resolve(context.Background(), nil, time.Second)
	assert.NoError(t, err)
	assert.Nil(t, loc)
}

func TestResolveTimesOut(t *testing.T) {
	slow := LocatorFunc(func(ctx context.Context) (*Location, error) {
		time.Sleep(200 * time.Millisecond)
		return &Location{}, nil
	})

	start := time.Now()
	loc, err := Resolve(context.Background(), slow, 20*time.Millisecond)
	assert.Nil(t, loc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestResolvePropagatesFailure(t *testing.T) {
	denied := errors.New("permission denied")
	loc, err := Resolve(context.Background(), LocatorFunc(func(ctx context.Context) (*Location, error) {
		return nil, denied
	}), time.Second)
	assert.Nil(t, loc)
	assert.ErrorIs(t, err, denied)
}

func TestFixedRejectsOutOfRange(t *testing.T) {
	_, err := Resolve(context.Background(), Fixed(120, 0, 0), time.Second)
	assert.ErrorIs(t, err, ErrInvalidLocation)
}
