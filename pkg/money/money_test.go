package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaborCost(t *testing.T) {
	// 2h at 25.00/h
	assert.Equal(t, int64(5000), LaborCost(7_200_000, 2500))
	// 90 minutes at 33.33/h = 49.995 -> 50.00
	assert.Equal(t, int64(5000), LaborCost(5_400_000, 3333))
	assert.Equal(t, int64(0), LaborCost(0, 2500))
	assert.Equal(t, int64(0), LaborCost(-10, 2500))
}

func TestHours(t *testing.T) {
	assert.Equal(t, "2", Hours(7_200_000).String())
	assert.Equal(t, "1.33", Hours(4_800_000).String())
}

func TestExtend(t *testing.T) {
	// 10 x 3.50
	assert.Equal(t, int64(3500), Extend(decimal.NewFromInt(10), 350))
	assert.Equal(t, int64(88), Extend(decimal.RequireFromString("2.5"), 35))
}

func TestPercent(t *testing.T) {
	// 85.00 + 20%
	assert.Equal(t, int64(1700), Percent(8500, decimal.NewFromInt(20)))
	assert.Equal(t, int64(0), Percent(8500, decimal.Zero))
}

func TestParseAndFormat(t *testing.T) {
	cents, err := ParseAmount(" 25.00 ")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), cents)

	_, err = ParseAmount("abc")
	assert.Error(t, err)

	assert.Equal(t, "USD 1,234.50", Format(123450, "USD"))
	assert.Equal(t, "-0.05", Format(-5, ""))
	assert.Equal(t, "102.00", Format(10200, ""))
	assert.Equal(t, "25.00", ToDecimal(2500).StringFixed(2))
	assert.Equal(t, int64(2500), FromDecimal(decimal.RequireFromString("24.999")))
}
