package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertPositionSide(t *testing.T) {
	tests := []struct {
		input    string
		expected PositionSide
	}{
		{"LONG", PositionSideLong},
		{"long", PositionSideLong},
		{"BUY", PositionSideLong},
		{"buy", PositionSideLong},
		{"SHORT", PositionSideShort},
		{"short", PositionSideShort},
		{"SELL", PositionSideShort},
		{"sell", PositionSideShort},
		{"", PositionSideLong},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConvertPositionSide(tt.input))
		})
	}
}
