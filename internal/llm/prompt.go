package llm

import (
	"fmt"
	"sort"
	"strings"

	"balance-sheet-rag/internal/models"
)

const baseSystemPrompt = "You are a financial analyst assistant for balance sheet and P&L analysis. " +
	"You MUST base your answer ONLY on the data and report excerpts provided in the context. " +
	"If a specific number or year is not provided, say you don't have that information."

// SystemPrompt returns the answer instruction tuned to the asker's role.
func SystemPrompt(role string) string {
	rl := strings.ToLower(role)
	switch {
	case strings.Contains(rl, "ceo"):
		return baseSystemPrompt + " The user is a CEO. Be concise, focus on key trends, risks, and actions, " +
			"not too much raw detail."
	case strings.Contains(rl, "analyst"):
		return baseSystemPrompt + " The user is an analyst. Be detailed, mention actual figures and explain the trends."
	default:
		return baseSystemPrompt + " The user is senior management. Provide an executive summary with some key numbers."
	}
}

// DataContext renders the metric table one fiscal year per line.
func DataContext(metrics models.MetricsByYear) string {
	if len(metrics) == 0 {
		return "No financial data available."
	}

	years := make([]int, 0, len(metrics))
	for y := range metrics {
		years = append(years, y)
	}
	sort.Ints(years)

	lines := make([]string, 0, len(years))
	for _, y := range years {
		var parts []string
		for _, name := range models.MetricNames {
			if v, ok := metrics[y][name]; ok {
				parts = append(parts, fmt.Sprintf("%s=%g", name, v))
			}
		}
		if len(parts) > 0 {
			lines = append(lines, fmt.Sprintf("FY %d: %s", y, strings.Join(parts, ", ")))
		}
	}
	if len(lines) == 0 {
		return "No financial data available."
	}
	return strings.Join(lines, "\n")
}

// AnswerPrompt builds the user prompt for a substantive question
func AnswerPrompt(company, role, question string, metrics models.MetricsByYear, passages []string) string {
	var promptBuilder strings.Builder

	if company != "" {
		promptBuilder.WriteString("Company: " + company + "\n")
	}
	if role != "" {
		promptBuilder.WriteString("Role: " + role + "\n")
	}

	promptBuilder.WriteString("\nAvailable financial data:\n")
	promptBuilder.WriteString(DataContext(metrics))
	promptBuilder.WriteString("\n\n")

	if len(passages) > 0 {
		promptBuilder.WriteString("Relevant excerpts from the annual report:\n")
		for i, p := range passages {
			fmt.Fprintf(&promptBuilder, "Excerpt %d:\n%s\n\n", i+1, p)
		}
	}

	promptBuilder.WriteString("User question:\n" + question + "\n\n")
	promptBuilder.WriteString("Using ONLY the data and excerpts above, answer the question. " +
		"Do not invent years or numbers you do not see.\n")

	return promptBuilder.String()
}
