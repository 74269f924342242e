package classifier

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"balance-sheet-rag/internal/models"
)

var metricLabels = map[string]string{
	models.MetricRevenue:          "Revenue",
	models.MetricNetProfit:        "Net profit",
	models.MetricTotalAssets:      "Total assets",
	models.MetricTotalLiabilities: "Total liabilities",
}

// Trend is the computed movement of one metric across the available years.
type Trend struct {
	Metric      string
	LatestYear  int
	Latest      float64
	PrevYear    int
	YoY         float64 // percent
	HasYoY      bool
	FirstYear   int
	CAGR        float64 // percent
	HasCAGR     bool
	YearsOfData int
}

// ComputeTrends derives year-over-year change and compound growth per metric,
// in the fixed metric order. Metrics with no data are omitted.
func ComputeTrends(metrics models.MetricsByYear) []Trend {
	years := make([]int, 0, len(metrics))
	for y := range metrics {
		years = append(years, y)
	}
	sort.Ints(years)

	var trends []Trend
	for _, name := range models.MetricNames {
		var ys []int
		for _, y := range years {
			if _, ok := metrics[y][name]; ok {
				ys = append(ys, y)
			}
		}
		if len(ys) == 0 {
			continue
		}

		last := ys[len(ys)-1]
		t := Trend{
			Metric:      name,
			LatestYear:  last,
			Latest:      metrics[last][name],
			FirstYear:   ys[0],
			YearsOfData: len(ys),
		}

		if len(ys) >= 2 {
			prev := ys[len(ys)-2]
			pv := metrics[prev][name]
			t.PrevYear = prev
			if pv != 0 {
				t.YoY = (t.Latest - pv) / math.Abs(pv) * 100
				t.HasYoY = true
			}

			first := metrics[ys[0]][name]
			span := last - ys[0]
			if first > 0 && t.Latest > 0 && span >= 1 {
				t.CAGR = (math.Pow(t.Latest/first, 1/float64(span)) - 1) * 100
				t.HasCAGR = true
			}
		}

		trends = append(trends, t)
	}
	return trends
}

// GreetingAnswer is the templated identity and capability reply.
func GreetingAnswer(company string) string {
	subject := "this company"
	if company != "" {
		subject = company
	}
	return fmt.Sprintf("Hi! I'm your financial copilot for %s. "+
		"You can ask me about revenue, profit, assets, liabilities, trends, "+
		"or ratios based on the company's published balance sheet.", subject)
}

// Summarize renders a deterministic metric overview phrased for the asker's role.
func Summarize(role, company string, metrics models.MetricsByYear) string {
	trends := ComputeTrends(metrics)
	if len(trends) == 0 {
		return "I don't have structured financial metrics for this report yet. " +
			"Try asking a specific question about the document instead."
	}

	subject := "the company"
	if company != "" {
		subject = company
	}

	rl := strings.ToLower(role)
	var b strings.Builder
	switch {
	case strings.Contains(rl, "ceo"):
		fmt.Fprintf(&b, "Headline numbers for %s:\n", subject)
		for _, t := range trends {
			fmt.Fprintf(&b, "- %s: %s in FY%d", metricLabels[t.Metric], formatValue(t.Latest), t.LatestYear)
			if t.HasYoY {
				fmt.Fprintf(&b, " (%s YoY)", formatPercent(t.YoY))
			}
			b.WriteString("\n")
		}
	case strings.Contains(rl, "analyst"):
		fmt.Fprintf(&b, "Metric overview for %s:\n", subject)
		for _, t := range trends {
			fmt.Fprintf(&b, "- %s: %s in FY%d", metricLabels[t.Metric], formatValue(t.Latest), t.LatestYear)
			if t.HasYoY {
				fmt.Fprintf(&b, "; %s vs FY%d", formatPercent(t.YoY), t.PrevYear)
			}
			if t.HasCAGR {
				fmt.Fprintf(&b, "; CAGR %s over FY%d-FY%d", formatPercent(t.CAGR), t.FirstYear, t.LatestYear)
			}
			fmt.Fprintf(&b, " (%d years of data)\n", t.YearsOfData)
		}
	default:
		fmt.Fprintf(&b, "Executive summary for %s:\n", subject)
		for _, t := range trends {
			fmt.Fprintf(&b, "- %s stood at %s in FY%d", metricLabels[t.Metric], formatValue(t.Latest), t.LatestYear)
			if t.HasYoY {
				fmt.Fprintf(&b, ", %s from the prior year", direction(t.YoY))
			}
			if t.HasCAGR {
				fmt.Fprintf(&b, ", compounding at %s a year since FY%d", formatPercent(t.CAGR), t.FirstYear)
			}
			b.WriteString(".\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%+.1f%%", p)
}

func direction(p float64) string {
	switch {
	case p > 0:
		return fmt.Sprintf("up %.1f%%", p)
	case p < 0:
		return fmt.Sprintf("down %.1f%%", -p)
	default:
		return "flat"
	}
}
