package retrieval

import "strings"

// QuestionType is the dominant intent detected in a question.
type QuestionType int

const (
	General QuestionType = iota
	Management
	Financial
)

func (t QuestionType) String() string {
	switch t {
	case Management:
		return "management"
	case Financial:
		return "financial"
	default:
		return "general"
	}
}

// Profile records which intents a question shows. Both flags may be set.
type Profile struct {
	Management bool
	Financial  bool
}

// Type returns the dominant intent, management first.
func (p Profile) Type() QuestionType {
	switch {
	case p.Management:
		return Management
	case p.Financial:
		return Financial
	default:
		return General
	}
}

// Has reports whether the profile carries the given intent.
func (p Profile) Has(t QuestionType) bool {
	switch t {
	case Management:
		return p.Management
	case Financial:
		return p.Financial
	default:
		return true
	}
}

// Expansion appends a synonym block to questions matching any trigger.
type Expansion struct {
	Triggers []string
	Block    string
}

// BoostRule adjusts a chunk's score when the question has intent When and the
// chunk text contains any of AnyOf (if set) and all of AllOf (if set).
type BoostRule struct {
	Name   string
	When   QuestionType
	AnyOf  []string
	AllOf  []string
	Weight float64
}

// Matches reports whether the lowercased chunk text satisfies the rule's keyword sets.
func (r BoostRule) Matches(lowerText string) bool {
	if len(r.AnyOf) == 0 && len(r.AllOf) == 0 {
		return false
	}
	if len(r.AnyOf) > 0 && !containsAny(lowerText, r.AnyOf) {
		return false
	}
	for _, kw := range r.AllOf {
		if !strings.Contains(lowerText, kw) {
			return false
		}
	}
	return true
}

// Config holds the keyword tables that drive question profiling, expansion and boosting.
type Config struct {
	ManagementKeywords []string
	FinancialKeywords  []string
	// Expansions are tried in order; the first whose trigger matches is applied.
	Expansions []Expansion
	Boosts     []BoostRule
	// SnippetLen is the number of leading characters compared for deduplication.
	SnippetLen int
}

// DefaultConfig returns the keyword tables tuned for annual reports.
func DefaultConfig() Config {
	return Config{
		ManagementKeywords: []string{
			"management", "reason", "explain", "why", "cause", "factor", "discussion",
			"analysis", "outlook", "strategy", "risk", "opportunity", "challenge",
		},
		FinancialKeywords: []string{
			"revenue", "profit", "asset", "liability", "cash flow", "margin", "ratio",
		},
		Expansions: []Expansion{
			{
				Triggers: []string{"reason", "why", "explain", "management", "factor"},
				Block: "management discussion analysis MD&A explanation rationale strategy outlook risk opportunity " +
					"performance factors growth challenges initiatives",
			},
			{
				Triggers: []string{"revenue", "profit", "financial"},
				Block:    "financial statement balance sheet profit loss revenue income expense asset liability",
			},
		},
		Boosts: []BoostRule{
			{
				Name: "mdna",
				When: Management,
				AnyOf: []string{
					"management discussion", "management's discussion", "mda", "md&a",
					"management analysis", "outlook", "strategy", "risk factor",
					"key factor", "reason", "explanation", "performance", "growth",
					"challenge", "opportunity", "initiative",
				},
				Weight: 0.15,
			},
			{
				Name: "financial-statement",
				When: Financial,
				AnyOf: []string{
					"statement of profit", "balance sheet", "cash flow",
					"financial position", "revenue", "profit", "asset", "liability",
				},
				Weight: 0.10,
			},
			{
				Name:   "audit-only",
				When:   Management,
				AllOf:  []string{"auditor", "independent auditor"},
				Weight: -0.10,
			},
		},
		SnippetLen: 100,
	}
}

// ProfileQuestion detects the intents of a question by keyword membership.
func (c Config) ProfileQuestion(question string) Profile {
	q := strings.ToLower(question)
	return Profile{
		Management: containsAny(q, c.ManagementKeywords),
		Financial:  containsAny(q, c.FinancialKeywords),
	}
}

// Expand appends the first matching synonym block to the question.
func (c Config) Expand(question string) string {
	q := strings.ToLower(question)
	for _, e := range c.Expansions {
		if containsAny(q, e.Triggers) {
			return question + " " + e.Block
		}
	}
	return question
}

// Boost sums the weights of every rule that fires for the chunk text.
func (c Config) Boost(p Profile, text string) float64 {
	lower := strings.ToLower(text)
	boost := 0.0
	for _, r := range c.Boosts {
		if p.Has(r.When) && r.Matches(lower) {
			boost += r.Weight
		}
	}
	return boost
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
