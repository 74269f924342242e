package charts

import (
	"testing"

	"balance-sheet-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoYears() models.MetricsByYear {
	return models.MetricsByYear{
		2023: {"revenue": 150, "net_profit": 20},
		2022: {"revenue": 100, "net_profit": 10},
	}
}

func TestBuild_Line(t *testing.T) {
	plan := models.ChartPlan{WantsChart: true, ChartType: models.ChartLine, XAxis: "year", Metrics: []string{"Revenue"}}

	data := NewBuilder().Build(plan, twoYears())
	require.NotNil(t, data)
	assert.Equal(t, &models.ChartData{
		ChartType: models.ChartLine,
		Years:     []int{2022, 2023},
		Series:    []models.ChartSeries{{Label: "Revenue", Values: []float64{100, 150}}},
	}, data)
}

func TestBuild_BarFillsGapsAndDropsEmptySeries(t *testing.T) {
	metrics := models.MetricsByYear{
		2021: {"revenue": 90},
		2022: {"revenue": 100, "net_profit": 5},
	}
	plan := models.ChartPlan{ChartType: models.ChartBar, Metrics: []string{"revenue", "net profit", "liabilities"}}

	data := NewBuilder().Build(plan, metrics)
	require.NotNil(t, data)
	assert.Equal(t, []int{2021, 2022}, data.Years)
	require.Len(t, data.Series, 2)
	assert.Equal(t, models.ChartSeries{Label: "Revenue", Values: []float64{90, 100}}, data.Series[0])
	assert.Equal(t, models.ChartSeries{Label: "Net Profit", Values: []float64{0, 5}}, data.Series[1])
	for _, s := range data.Series {
		assert.Len(t, s.Values, len(data.Years))
	}
}

func TestBuild_PieUsesLatestYear(t *testing.T) {
	plan := models.ChartPlan{ChartType: models.ChartPie, Metrics: []string{"revenue", "net_profit", "assets"}}

	data := NewBuilder().Build(plan, twoYears())
	require.NotNil(t, data)
	assert.Equal(t, models.ChartPie, data.ChartType)
	assert.Equal(t, []int{2023}, data.Years)
	assert.Equal(t, []models.ChartSeries{
		{Label: "Revenue", Values: []float64{150}},
		{Label: "Net Profit", Values: []float64{20}},
	}, data.Series)
}

func TestBuild_MetricAxisFallsBackToYears(t *testing.T) {
	plan := models.ChartPlan{ChartType: models.ChartBar, XAxis: "metric", Metrics: []string{"revenue"}}

	data := NewBuilder().Build(plan, twoYears())
	require.NotNil(t, data)
	assert.Equal(t, []int{2022, 2023}, data.Years)
}

func TestBuild_Nil(t *testing.T) {
	b := NewBuilder()

	tests := []struct {
		name    string
		plan    models.ChartPlan
		metrics models.MetricsByYear
	}{
		{"no metrics requested", models.ChartPlan{ChartType: models.ChartLine}, twoYears()},
		{"empty table", models.ChartPlan{ChartType: models.ChartLine, Metrics: []string{"revenue"}}, nil},
		{"unknown names", models.ChartPlan{ChartType: models.ChartLine, Metrics: []string{"headcount"}}, twoYears()},
		{"all zero", models.ChartPlan{ChartType: models.ChartLine, Metrics: []string{"total_assets"}}, twoYears()},
		{"none type", models.ChartPlan{ChartType: models.ChartNone, Metrics: []string{"revenue"}}, twoYears()},
		{"unsupported type", models.ChartPlan{ChartType: "scatter", Metrics: []string{"revenue"}}, twoYears()},
		{"pie without latest data", models.ChartPlan{ChartType: models.ChartPie, Metrics: []string{"total_assets"}}, twoYears()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, b.Build(tt.plan, tt.metrics))
		})
	}
}
