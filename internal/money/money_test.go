package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFloorPercent(t *testing.T) {
	tests := []struct {
		name     string
		amount   Money
		pct      int
		expected Money
		wantErr  bool
	}{
		{"exact division", 1000, 5, 50, false},
		{"floors down", 999, 5, 49, false},
		{"zero percent", 1000, 0, 0, false},
		{"full percent", 1000, 100, 1000, false},
		{"zero amount", 0, 5, 0, false},
		{"negative amount", -100, 5, 0, true},
		{"percent over range", 1000, 101, 0, true},
		{"negative percent", 1000, -1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.amount.FloorPercent(tt.pct)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestFloorPercentProperty: the fee never exceeds the amount, is never
// negative, and equals the mathematical floor.
func TestFloorPercentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := Money(rapid.Int64Range(0, 1_000_000_000).Draw(t, "amount"))
		pct := rapid.IntRange(0, 100).Draw(t, "pct")

		fee, err := amount.FloorPercent(pct)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, fee, Money(0))
		assert.LessOrEqual(t, fee, amount)
		assert.Equal(t, amount*Money(pct)/100, fee)
	})
}

func TestClamp(t *testing.T) {
	assert.Equal(t, Money(100), Clamp(50, 100))
	assert.Equal(t, Money(100), Clamp(100, 100))
	assert.Equal(t, Money(150), Clamp(150, 100))
}
