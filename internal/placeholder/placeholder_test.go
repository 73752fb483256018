package placeholder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/temirov/llm-prompter/internal/placeholder"
)

func TestSubstitute(t *testing.T) {
	testCases := []struct {
		name         string
		template     string
		replacements []placeholder.Replacement
		expected     string
	}{
		{
			name:     "empty template",
			template: "",
			replacements: []placeholder.Replacement{
				{Find: "{{code}}", Replace: "x"},
			},
			expected: "",
		},
		{
			name:     "no usable pair",
			template: "review {{code}}",
			replacements: []placeholder.Replacement{
				{Find: "", Replace: "x"},
				{Find: "{{code}}", Replace: ""},
			},
			expected: "review {{code}}",
		},
		{
			name:     "both tokens",
			template: "code: {{code}}\njson: {{json}}\nagain {{code}}",
			replacements: []placeholder.Replacement{
				{Find: "{{code}}", Replace: "SELECT 1"},
				{Find: "{{json}}", Replace: "{}"},
			},
			expected: "code: SELECT 1\njson: {}\nagain SELECT 1",
		},
		{
			name:     "payload containing the json token is not rescanned",
			template: "{{code}} / {{json}}",
			replacements: []placeholder.Replacement{
				{Find: "{{code}}", Replace: "literal {{json}} in payload"},
				{Find: "{{json}}", Replace: `{"a":1}`},
			},
			expected: `literal {{json}} in payload / {"a":1}`,
		},
		{
			name:     "regex metacharacters are literal",
			template: "a.b a*b (x|y) $1",
			replacements: []placeholder.Replacement{
				{Find: "a.b", Replace: "DOT"},
				{Find: "(x|y)", Replace: "GROUP"},
				{Find: "$1", Replace: "${2}"},
			},
			expected: "DOT a*b GROUP ${2}",
		},
		{
			name:     "prefix token does not shadow longer token",
			template: "{{c}} {{code}}",
			replacements: []placeholder.Replacement{
				{Find: "{{c}}", Replace: "short"},
				{Find: "{{code}}", Replace: "long"},
			},
			expected: "short long",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, placeholder.Substitute(testCase.template, testCase.replacements...))
		})
	}
}

func TestSubstituteOrderIndependent(t *testing.T) {
	template := "{{json}}{{code}}{{json}}"
	payload := placeholder.Replacement{Find: "{{code}}", Replace: "{{json}}"}
	previous := placeholder.Replacement{Find: "{{json}}", Replace: "{{code}}"}

	forward := placeholder.Substitute(template, payload, previous)
	backward := placeholder.Substitute(template, previous, payload)

	assert.Equal(t, "{{code}}{{json}}{{code}}", forward)
	assert.Equal(t, forward, backward)
}
