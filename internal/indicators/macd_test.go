package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateMACD(t *testing.T) {
	service := NewService()

	t.Run("default periods", func(t *testing.T) {
		result, err := service.CalculateMACD(risingPrices(60, 100, 1), 0, 0, 0)
		require.NoError(t, err)
		assert.InDelta(t, result.MACD-result.Signal, result.Histogram, 1e-9)
	})

	t.Run("uptrend gives positive MACD", func(t *testing.T) {
		result, err := service.CalculateMACD(risingPrices(60, 100, 1), 12, 26, 9)
		require.NoError(t, err)
		assert.Greater(t, result.MACD, 0.0)
	})

	t.Run("fast period must be below slow", func(t *testing.T) {
		_, err := service.CalculateMACD(risingPrices(60, 100, 1), 26, 12, 9)
		assert.Error(t, err)
	})

	t.Run("insufficient data", func(t *testing.T) {
		_, err := service.CalculateMACD(risingPrices(20, 100, 1), 12, 26, 9)
		assert.Error(t, err)
	})

	t.Run("crossover is one of the known labels", func(t *testing.T) {
		result, err := service.CalculateMACD(risingPrices(60, 100, 1), 12, 26, 9)
		require.NoError(t, err)
		assert.Contains(t, []string{"bullish", "bearish", "none"}, result.Crossover)
	})
}
