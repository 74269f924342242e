// Package charts decides whether a question deserves a chart and builds the
// chart data from the metric table.
package charts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"balance-sheet-rag/internal/llm"
	"balance-sheet-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// Generator produces a text completion. Provider errors come back as text.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) string
}

const plannerSystemPrompt = `You are a chart planning assistant for a financial dashboard.

You receive:
1) A user's question about financial performance.
2) A summary of what metrics are available by year, such as:
   2023: net_profit, revenue, total_assets, total_liabilities
   2024: net_profit, revenue, total_assets, total_liabilities

Your job is to decide IF a chart should be shown, WHAT metrics to plot, and WHAT chart type is appropriate.

Chart types you can choose:
- "line": for trends over time (e.g. revenue by year).
- "bar": for comparing values across years or across metrics.
- "pie": for showing composition of one year's metrics (e.g. assets vs liabilities).

If the user asks for a "flow chart" or "flowchart", you MUST set chart_type to "none".
Flowchart visuals are not supported; the main assistant answers with text steps instead.

Rules:
- If the question does not explicitly ask to show/plot/visualize/graph/chart/draw something, set "wants_chart" to false.
- Only use metrics that actually exist in the metrics summary.
- If the user mentions a specific chart type (bar, line, pie), prefer that type.
- If the question is about trends over years, a line chart is usually best.
- If the question is about comparing a few values in specific years, a bar chart is good.
- If the question is about showing share or distribution for a single year, a pie chart is good.
- If a chart would add no value, set "wants_chart" to false.

Return ONLY valid JSON with keys:
  "wants_chart": boolean,
  "chart_type": string, one of "line", "bar", "pie", "none"
  "x_axis": string, either "year" or "metric"
  "metrics": array of metric names (like ["revenue", "net_profit"])
  "aggregation": string, e.g. "none" or "latest_year"
`

// Planner asks the language model for a chart plan and validates it
type Planner struct {
	gen Generator
}

// NewPlanner creates a planner backed by gen.
func NewPlanner(gen Generator) *Planner {
	return &Planner{gen: gen}
}

// MetricsSummary lists the metric names available per year, oldest first.
func MetricsSummary(metrics models.MetricsByYear) string {
	if len(metrics) == 0 {
		return "No metrics available."
	}

	years := make([]int, 0, len(metrics))
	for y := range metrics {
		years = append(years, y)
	}
	sort.Ints(years)

	var lines []string
	for _, y := range years {
		names := make([]string, 0, len(metrics[y]))
		for name := range metrics[y] {
			names = append(names, name)
		}
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		lines = append(lines, fmt.Sprintf("%d: %s", y, strings.Join(names, ", ")))
	}
	if len(lines) == 0 {
		return "No metrics available."
	}
	return strings.Join(lines, "\n")
}

// Plan returns a validated chart plan for the question. Any failure yields NoChartPlan.
func (p *Planner) Plan(ctx context.Context, question string, metrics models.MetricsByYear) (plan models.ChartPlan) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("chart planner failed")
			plan = models.NoChartPlan()
		}
	}()

	userPrompt := fmt.Sprintf("User's question:\n\"\"\"%s\"\"\"\n\nAvailable metrics by year:\n%s\n\nReturn JSON only.\n",
		question, MetricsSummary(metrics))

	raw := p.gen.Generate(ctx, plannerSystemPrompt, userPrompt)

	var decoded map[string]any
	if err := llm.ExtractJSON(raw, &decoded); err != nil {
		log.Warn().Err(err).Str("response", llm.Excerpt(raw, 200)).Msg("failed to parse chart planner JSON")
		return models.NoChartPlan()
	}

	plan = Validate(decoded)
	if asksForFlowchart(question) {
		plan = models.NoChartPlan()
	}
	return plan
}

// Validate turns a decoded planner response into a plan, forcing the
// no-chart plan when the chart type is not supported.
func Validate(config map[string]any) models.ChartPlan {
	plan := models.ChartPlan{
		WantsChart:  truthy(config["wants_chart"]),
		ChartType:   stringOr(config["chart_type"], models.ChartNone),
		XAxis:       stringOr(config["x_axis"], models.AxisYear),
		Metrics:     stringList(config["metrics"]),
		Aggregation: stringOr(config["aggregation"], "none"),
	}

	switch plan.ChartType {
	case models.ChartLine, models.ChartBar, models.ChartPie:
	default:
		plan.ChartType = models.ChartNone
		plan.WantsChart = false
	}
	return plan
}

func asksForFlowchart(question string) bool {
	q := strings.ToLower(question)
	return strings.Contains(q, "flowchart") || strings.Contains(q, "flow chart")
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
