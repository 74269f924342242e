package charts

import (
	"sort"
	"strings"

	"balance-sheet-rag/internal/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Builder maps a validated plan onto the metric table
type Builder struct {
	Names NameMatcher
}

// NewBuilder creates a builder with the default synonym table.
func NewBuilder() *Builder {
	return &Builder{Names: DefaultNameMatcher()}
}

// Build returns renderable chart data, or nil when the plan cannot produce a
// chart with real data.
func (b *Builder) Build(plan models.ChartPlan, metrics models.MetricsByYear) *models.ChartData {
	if len(plan.Metrics) == 0 || len(metrics) == 0 {
		return nil
	}

	years := make([]int, 0, len(metrics))
	for y := range metrics {
		years = append(years, y)
	}
	if len(years) == 0 {
		return nil
	}
	sort.Ints(years)

	// Only year-based axes are produced; a metric axis falls back to years.
	names := b.Names.Normalize(plan.Metrics, metrics[years[0]])
	if len(names) == 0 {
		return nil
	}

	switch plan.ChartType {
	case models.ChartPie:
		return buildPie(names, years[len(years)-1], metrics)
	case models.ChartLine, models.ChartBar:
		return buildSeries(plan.ChartType, names, years, metrics)
	default:
		return nil
	}
}

func buildPie(names []string, year int, metrics models.MetricsByYear) *models.ChartData {
	var series []models.ChartSeries
	for _, name := range names {
		v, ok := metrics[year][name]
		if !ok {
			continue
		}
		series = append(series, models.ChartSeries{Label: Label(name), Values: []float64{v}})
	}
	if len(series) == 0 {
		return nil
	}
	return &models.ChartData{ChartType: models.ChartPie, Years: []int{year}, Series: series}
}

func buildSeries(chartType string, names []string, years []int, metrics models.MetricsByYear) *models.ChartData {
	var series []models.ChartSeries
	for _, name := range names {
		values := make([]float64, len(years))
		hasData := false
		for i, y := range years {
			values[i] = metrics[y][name]
			if values[i] != 0 {
				hasData = true
			}
		}
		if !hasData {
			continue
		}
		series = append(series, models.ChartSeries{Label: Label(name), Values: values})
	}
	if len(series) == 0 {
		return nil
	}
	return &models.ChartData{ChartType: chartType, Years: years, Series: series}
}

// Label turns a metric key into a display label: "net_profit" -> "Net Profit".
func Label(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}
