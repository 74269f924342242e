package charts

import (
	"strings"

	"balance-sheet-rag/internal/models"
)

// Synonym maps a requested metric spelling to its canonical name.
type Synonym struct {
	Alias     string
	Canonical string
}

// DefaultSynonyms returns the synonym table. Order matters: substring
// matching takes the first alias that matches.
func DefaultSynonyms() []Synonym {
	return []Synonym{
		{"revenue", models.MetricRevenue},
		{"net_profit", models.MetricNetProfit},
		{"net profit", models.MetricNetProfit},
		{"total_assets", models.MetricTotalAssets},
		{"total assets", models.MetricTotalAssets},
		{"assets", models.MetricTotalAssets},
		{"total_liabilities", models.MetricTotalLiabilities},
		{"total liabilities", models.MetricTotalLiabilities},
		{"liabilities", models.MetricTotalLiabilities},
	}
}

// NameMatcher resolves free-form metric names to canonical metric keys.
type NameMatcher struct {
	Synonyms []Synonym
	// Substring enables the bidirectional substring fallback. It can over-match,
	// e.g. "profit" resolves to whichever alias containing it comes first.
	Substring bool
}

// DefaultNameMatcher returns the matcher used by the chart builder.
func DefaultNameMatcher() NameMatcher {
	return NameMatcher{Synonyms: DefaultSynonyms(), Substring: true}
}

// Resolve maps name to a canonical metric. firstYear is the metric table of
// the earliest year, used as the last resort for names outside the table.
func (m NameMatcher) Resolve(name string, firstYear map[string]float64) (string, bool) {
	if strings.TrimSpace(name) == "" {
		return "", false
	}

	for _, s := range m.Synonyms {
		if s.Alias == name {
			return s.Canonical, true
		}
	}

	lower := strings.ToLower(name)
	for _, s := range m.Synonyms {
		if s.Alias == lower {
			return s.Canonical, true
		}
	}

	if m.Substring {
		for _, s := range m.Synonyms {
			alias := strings.ToLower(s.Alias)
			if strings.Contains(alias, lower) || strings.Contains(lower, alias) {
				return s.Canonical, true
			}
		}
	}

	if _, ok := firstYear[name]; ok {
		return name, true
	}
	return "", false
}

// Normalize resolves every name, dropping unmatched ones and collapsing
// duplicates while keeping first-occurrence order.
func (m NameMatcher) Normalize(names []string, firstYear map[string]float64) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		canonical, ok := m.Resolve(n, firstYear)
		if !ok {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}
