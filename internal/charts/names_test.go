package charts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameMatcher_Resolve(t *testing.T) {
	m := DefaultNameMatcher()
	firstYear := map[string]float64{"ebitda": 12}

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"revenue", "revenue", true},
		{"Net Profit", "net_profit", true},
		{"TOTAL_ASSETS", "total_assets", true},
		{"assets", "total_assets", true},
		{"Liabilities", "total_liabilities", true},
		{"profit", "net_profit", true},
		{"total revenue", "revenue", true},
		{"ebitda", "ebitda", true},
		{"headcount", "", false},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Resolve(tt.name, firstYear)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNameMatcher_SubstringDisabled(t *testing.T) {
	m := DefaultNameMatcher()
	m.Substring = false

	_, ok := m.Resolve("profit", nil)
	assert.False(t, ok)

	got, ok := m.Resolve("Net Profit", nil)
	assert.True(t, ok)
	assert.Equal(t, "net_profit", got)
}

func TestNameMatcher_Normalize(t *testing.T) {
	m := DefaultNameMatcher()

	assert.Equal(t, []string{"net_profit", "total_assets"},
		m.Normalize([]string{"Net Profit", "assets"}, nil))

	assert.Equal(t, []string{"revenue", "net_profit"},
		m.Normalize([]string{"revenue", "", "Revenue", "net profit", "net_profit", "headcount"}, nil))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Revenue", Label("revenue"))
	assert.Equal(t, "Net Profit", Label("net_profit"))
	assert.Equal(t, "Total Liabilities", Label("total_liabilities"))
}
