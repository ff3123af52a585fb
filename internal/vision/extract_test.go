package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		input       string
		wantOK      bool
		wantSummary string
		wantItems   int
	}{
		{
			name:        "bare object",
			input:       `{"summary":"a living room","items":[{"name":"Sofa"}]}`,
			wantOK:      true,
			wantSummary: "a living room",
			wantItems:   1,
		},
		{
			name:        "markdown fenced",
			input:       "Here you go:\n```json\n{\"summary\":\"kitchen\",\"items\":[]}\n```\nLet me know!",
			wantOK:      true,
			wantSummary: "kitchen",
		},
		{
			name:        "prose prefix and suffix",
			input:       `Sure! The result is {"summary":"bedroom","items":[{"name":"Bed"},{"name":"Dresser"}]} as requested.`,
			wantOK:      true,
			wantSummary: "bedroom",
			wantItems:   2,
		},
		{
			name:        "braces inside string values",
			input:       `{"summary":"odd {braces} and \"quotes\" inside","items":[]}`,
			wantOK:      true,
			wantSummary: `odd {braces} and "quotes" inside`,
		},
		{
			name:        "stray unbalanced brace before object",
			input:       `Note { the result is {"summary":"bedroom","items":[{"name":"Bed"}]}`,
			wantOK:      true,
			wantSummary: "bedroom",
			wantItems:   1,
		},
		{
			name:   "no object at all",
			input:  "I could not identify any items in this image.",
			wantOK: false,
		},
		{
			name:   "unbalanced object",
			input:  `{"summary":"truncated","items":[{"name":"Lamp"`,
			wantOK: false,
		},
		{
			name:   "empty input",
			input:  "",
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var analysis Analysis
			ok := extractJSONObject(tc.input, &analysis)
			require.Equal(t, tc.wantOK, ok)
			if !tc.wantOK {
				return
			}
			assert.Equal(t, tc.wantSummary, analysis.Summary)
			assert.Len(t, analysis.Items, tc.wantItems)
		})
	}
}

func TestNormalizeDefaultsAndCaps(t *testing.T) {
	t.Parallel()

	a := Analysis{
		Summary: "test",
		Items: []DetectedItem{
			{Name: "Sofa"},
			{Name: ""},
			{Name: "Lamp", Quantity: 3},
			{Name: "Rug", Quantity: -1},
			{Name: "Chair"},
		},
	}
	a.normalize(3)

	require.Len(t, a.Items, 3)
	assert.Equal(t, "Sofa", a.Items[0].Name)
	assert.Equal(t, 1, a.Items[0].Quantity)
	assert.Equal(t, 3, a.Items[1].Quantity)
	assert.Equal(t, 1, a.Items[2].Quantity)
}
