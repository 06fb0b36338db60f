package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateEMA(t *testing.T) {
	service := NewService()

	t.Run("uptrend reads bullish", func(t *testing.T) {
		result, err := service.CalculateEMA(risingPrices(30, 100, 1), 10)
		require.NoError(t, err)
		assert.Equal(t, "bullish", result.Trend)
		assert.Greater(t, result.Value, 0.0)
	})

	t.Run("downtrend reads bearish", func(t *testing.T) {
		result, err := service.CalculateEMA(risingPrices(30, 100, -1), 10)
		require.NoError(t, err)
		assert.Equal(t, "bearish", result.Trend)
	})

	t.Run("EMA lags price in an uptrend", func(t *testing.T) {
		prices := risingPrices(30, 100, 1)
		result, err := service.CalculateEMA(prices, 10)
		require.NoError(t, err)
		assert.Less(t, result.Value, prices[len(prices)-1])
	})

	t.Run("empty prices", func(t *testing.T) {
		_, err := service.CalculateEMA(nil, 10)
		assert.Error(t, err)
	})

	t.Run("zero period", func(t *testing.T) {
		_, err := service.CalculateEMA(risingPrices(30, 100, 1), 0)
		assert.Error(t, err)
	})

	t.Run("period longer than series", func(t *testing.T) {
		_, err := service.CalculateEMA(risingPrices(10, 100, 1), 20)
		assert.Error(t, err)
	})
}
