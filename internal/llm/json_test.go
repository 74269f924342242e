package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	type plan struct {
		ChartType string `json:"chart_type"`
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"chart_type": "line"}`, "line"},
		{"whitespace", "\n  {\"chart_type\": \"bar\"}  \n", "bar"},
		{"markdown fence", "```json\n{\"chart_type\": \"pie\"}\n```", "pie"},
		{"surrounding prose", `Sure! Here is the plan: {"chart_type": "line"} Hope it helps.`, "line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p plan
			require.NoError(t, ExtractJSON(tt.raw, &p))
			assert.Equal(t, tt.want, p.ChartType)
		})
	}
}

func TestExtractJSON_Failures(t *testing.T) {
	for _, raw := range []string{"", "   ", "not json", "} backwards {", "{broken: json}"} {
		var v map[string]any
		err := ExtractJSON(raw, &v)
		assert.ErrorIs(t, err, ErrNoJSON, raw)
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "abc", Excerpt("abc", 5))
	assert.Equal(t, "ab", Excerpt("abc", 2))
	assert.Equal(t, "éé", Excerpt("ééé", 2))
}
