package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeClosure(t *testing.T) {
	t0 := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

	c := computeClosure(t0, t0.Add(2*time.Hour), 2500)
	assert.Equal(t, int64(7_200_000), c.DurationMs)
	assert.Equal(t, int64(5000), c.Cost)
	assert.False(t, c.Skewed)

	c = computeClosure(t0, t0.Add(20*time.Minute), 2500)
	assert.Equal(t, int64(833), c.Cost)

	c = computeClosure(t0, t0.Add(-time.Minute), 2500)
	assert.Equal(t, int64(0), c.DurationMs)
	assert.Equal(t, int64(0), c.Cost)
	assert.True(t, c.Skewed)
	assert.Equal(t, t0, c.ClockOut)
}
