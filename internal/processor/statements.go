package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"balance-sheet-rag/internal/llm"
	"balance-sheet-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultUnit is the currency recorded for extracted metrics.
const DefaultUnit = "INR"

const (
	metaPages     = 3
	fallbackPages = 10
)

var (
	profitLossKeywords   = []string{"statement of profit and loss", "profit and loss", "statement of profit"}
	balanceSheetKeywords = []string{"balance sheet", "statement of financial position"}
)

// Generator produces a text completion. Provider errors come back as text.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) string
}

// Meta is the cover-page metadata of a report.
type Meta struct {
	CompanyName   string `json:"company_name"`
	FinancialYear string `json:"financial_year"`
}

// StatementExtractor pulls structured metrics out of report pages with a
// language model.
type StatementExtractor struct {
	Gen  Generator
	Unit string
}

// NewStatementExtractor creates a new statement extractor
func NewStatementExtractor(gen Generator) *StatementExtractor {
	return &StatementExtractor{Gen: gen, Unit: DefaultUnit}
}

// ExtractMeta reads company name and financial year from the first pages.
// ok is false when the model response could not be parsed.
func (e *StatementExtractor) ExtractMeta(ctx context.Context, pages PageSource) (meta Meta, ok bool) {
	var parts []string
	for i := 0; i < min(metaPages, pages.NumPages()); i++ {
		parts = append(parts, pages.PageText(i))
	}

	system := "You are reading the cover/intro pages of an annual report or balance sheet. " +
		"Extract structured metadata."
	user := fmt.Sprintf(`Here is the text from the first pages of an annual report:

"""%s"""

Return ONLY valid JSON with the following keys:
- company_name: string
- financial_year: string (e.g. "FY 2023-24" or "Year ended 31 March 2024")

Example:
{
  "company_name": "Example Corp Ltd",
  "financial_year": "Year ended 31 March 2024"
}
`, strings.Join(parts, "\n\n"))

	raw := e.Gen.Generate(ctx, system, user)
	if err := llm.ExtractJSON(raw, &meta); err != nil {
		log.Warn().Err(err).Str("raw", llm.Excerpt(raw, 500)).Msg("could not parse report metadata")
		return Meta{}, false
	}
	meta.CompanyName = strings.TrimSpace(meta.CompanyName)
	meta.FinancialYear = strings.TrimSpace(meta.FinancialYear)
	return meta, true
}

// ExtractMetrics locates the profit and loss statement and the balance sheet
// and asks the model for per-year revenue, net profit, total assets and total
// liabilities. Statements that cannot be parsed contribute nothing.
func (e *StatementExtractor) ExtractMetrics(ctx context.Context, pages PageSource) []models.Metric {
	var metrics []models.Metric

	pnlText := statementText(pages, profitLossKeywords, "profit and loss")
	pnlSystem := "You are extracting structured financial metrics from a company's consolidated " +
		"statement of profit and loss."
	pnlUser := fmt.Sprintf(`You are given text/tables from a company's consolidated statement of profit and loss:

"""%s"""

From this text, identify for each financial year where data is clearly reported:
- total revenue (or 'Revenue from operations' / 'Total income')
- net profit (PAT) (profit for the year attributable to owners, or consolidated profit)

Return ONLY valid JSON of the form:
{
  "metrics": [
    {"year": 2022, "revenue": 123456.0, "net_profit": 7890.0},
    {"year": 2023, "revenue": ..., "net_profit": ...}
  ]
}

Use integer years (e.g., 2022). If a value is not clearly available, omit that year.
Values should be numeric (floats), no commas or currency symbols.
`, pnlText)
	metrics = append(metrics, e.extract(ctx, "profit and loss", pnlSystem, pnlUser,
		models.MetricRevenue, models.MetricNetProfit)...)

	bsText := statementText(pages, balanceSheetKeywords, "balance sheet")
	bsSystem := "You are extracting structured financial metrics from a company's consolidated balance sheet."
	bsUser := fmt.Sprintf(`You are given text/tables from a company's consolidated balance sheet:

"""%s"""

From this text, identify for each financial year where data is clearly reported:
- total assets
- total liabilities (including non-current and current, but not equity)

Return ONLY valid JSON of the form:
{
  "metrics": [
    {"year": 2022, "total_assets": 111111.0, "total_liabilities": 99999.0},
    {"year": 2023, "total_assets": ..., "total_liabilities": ...}
  ]
}

Use integer years (e.g., 2022). If a value is not clearly available, omit that year.
Values should be numeric (floats), no commas or currency symbols.
`, bsText)
	metrics = append(metrics, e.extract(ctx, "balance sheet", bsSystem, bsUser,
		models.MetricTotalAssets, models.MetricTotalLiabilities)...)

	return metrics
}

func (e *StatementExtractor) extract(ctx context.Context, statement, system, user string, names ...string) []models.Metric {
	raw := e.Gen.Generate(ctx, system, user)

	var parsed struct {
		Metrics []map[string]json.RawMessage `json:"metrics"`
	}
	if err := llm.ExtractJSON(raw, &parsed); err != nil {
		log.Warn().Err(err).Str("statement", statement).Str("raw", llm.Excerpt(raw, 500)).
			Msg("could not parse statement metrics")
		return nil
	}

	unit := e.Unit
	if unit == "" {
		unit = DefaultUnit
	}

	var metrics []models.Metric
	for _, item := range parsed.Metrics {
		year, ok := parseYear(item["year"])
		if !ok {
			continue
		}
		for _, name := range names {
			value, ok := parseValue(item[name])
			if !ok {
				continue
			}
			metrics = append(metrics, models.Metric{Year: year, Name: name, Value: value, Unit: unit})
		}
	}

	log.Info().Str("statement", statement).Int("metrics", len(metrics)).Msg("extracted statement metrics")
	return metrics
}

// statementText joins every page matching the keywords with the page after
// it, or the first pages of the report when nothing matches.
func statementText(pages PageSource, keywords []string, statement string) string {
	indices := findPagesWithKeywords(pages, keywords)
	if len(indices) == 0 {
		log.Warn().Str("statement", statement).Msg("no statement pages detected, using leading pages")
		var parts []string
		for i := 0; i < min(fallbackPages, pages.NumPages()); i++ {
			parts = append(parts, pages.PageText(i))
		}
		return strings.Join(parts, "\n\n")
	}

	var b strings.Builder
	for _, idx := range indices {
		b.WriteString(pages.PageText(idx))
		if idx+1 < pages.NumPages() {
			b.WriteString("\n\n")
			b.WriteString(pages.PageText(idx + 1))
		}
	}
	return b.String()
}

// parseYear accepts only integer JSON numbers.
func parseYear(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	year, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, false
	}
	return year, true
}

// parseValue accepts JSON numbers and numeric strings. null and anything
// else are rejected.
func parseValue(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
