package budget

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestUtilization(t *testing.T) {
	tests := []struct {
		name      string
		committed string
		allocated string
		want      string
	}{
		{"half used", "500", "1000", "0.5"},
		{"fully used", "1000", "1000", "1"},
		{"over", "1100", "1000", "1.1"},
		{"zero allocation reads as consumed", "0", "0", "1"},
		{"negative allocation reads as consumed", "10", "-5", "1"},
		{"rounded to four places", "1", "3", "0.3333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Utilization(d(tt.committed), d(tt.allocated))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestIsOverBudget(t *testing.T) {
	assert.True(t, IsOverBudget(d("1100"), d("1000")))
	assert.False(t, IsOverBudget(d("1000"), d("1000")), "exactly at budget is allowed")
	assert.False(t, IsOverBudget(d("999.99"), d("1000")))
	assert.True(t, IsOverBudget(d("0.01"), d("0")))
}

func TestIsThresholdBreached(t *testing.T) {
	tests := []struct {
		name      string
		committed string
		allocated string
		threshold string
		want      bool
	}{
		{"threshold is inclusive", "800", "1000", "0.8", true},
		{"just below", "799.99", "1000", "0.8", false},
		{"below even when the rounded ratio reaches it", "79995", "100000", "0.80", false},
		{"zero threshold uses the default", "800", "1000", "0", true},
		{"half of a 0.6 alert", "500", "1000", "0.6", false},
		{"zero allocation reads as consumed", "0", "0", "0.8", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsThresholdBreached(d(tt.committed), d(tt.allocated), d(tt.threshold)))
		})
	}
}

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot(d("850"), d("1000"), decimal.Zero)

	assert.True(t, s.Utilization.Equal(d("0.85")))
	assert.True(t, s.Threshold.Equal(DefaultThreshold))
	assert.True(t, s.IsThreshold)
}

func TestNewSnapshot_FlagUsesExactRatio(t *testing.T) {
	s := NewSnapshot(d("79995"), d("100000"), d("0.80"))

	assert.True(t, s.Utilization.Equal(d("0.8")), "display value is rounded")
	assert.False(t, s.IsThreshold, "0.79995 is under the 0.80 alert ratio")
}
