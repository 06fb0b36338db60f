package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func risingPrices(n int, start, step float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = start + float64(i)*step
	}
	return prices
}

func TestCalculateRSI(t *testing.T) {
	service := NewService()
	prices := risingPrices(20, 44, 0.5)

	t.Run("default period", func(t *testing.T) {
		result, err := service.CalculateRSI(prices, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Value, 0.0)
		assert.LessOrEqual(t, result.Value, 100.0)
	})

	t.Run("uptrend reads overbought", func(t *testing.T) {
		result, err := service.CalculateRSI(prices, 14)
		require.NoError(t, err)
		assert.Greater(t, result.Value, 70.0)
		assert.Equal(t, "overbought", result.Signal)
	})

	t.Run("downtrend reads oversold", func(t *testing.T) {
		result, err := service.CalculateRSI(risingPrices(20, 100, -0.5), 14)
		require.NoError(t, err)
		assert.Less(t, result.Value, 30.0)
		assert.Equal(t, "oversold", result.Signal)
	})

	t.Run("empty prices", func(t *testing.T) {
		_, err := service.CalculateRSI(nil, 14)
		assert.Error(t, err)
	})

	t.Run("period longer than series", func(t *testing.T) {
		_, err := service.CalculateRSI(prices, len(prices)+1)
		assert.Error(t, err)
	})
}
