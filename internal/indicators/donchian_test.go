package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDonchian(t *testing.T) {
	service := NewService()

	flatBars := func(n int) (high, low []float64) {
		high = make([]float64, n)
		low = make([]float64, n)
		for i := range high {
			high[i] = 101
			low[i] = 99
		}
		return high, low
	}

	t.Run("channel bounds from prior window", func(t *testing.T) {
		high, low := flatBars(40)
		// A new extreme on the current bar must not widen the channel.
		high[len(high)-1] = 150
		low[len(low)-1] = 50

		result, err := service.CalculateDonchian(high, low, 20)
		require.NoError(t, err)
		assert.Equal(t, 101.0, result.Upper)
		assert.Equal(t, 99.0, result.Lower)
		assert.Equal(t, 100.0, result.Middle)
		assert.Equal(t, 2.0, result.Width)
	})

	t.Run("default period", func(t *testing.T) {
		high, low := flatBars(40)
		result, err := service.CalculateDonchian(high, low, 0)
		require.NoError(t, err)
		assert.Equal(t, 101.0, result.Upper)
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		high, low := flatBars(40)
		_, err := service.CalculateDonchian(high[:30], low, 20)
		assert.Error(t, err)
	})

	t.Run("insufficient data", func(t *testing.T) {
		high, low := flatBars(20)
		_, err := service.CalculateDonchian(high, low, 20)
		assert.Error(t, err)
	})
}
