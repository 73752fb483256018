package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/llm-prompter/internal/failure"
	"github.com/temirov/llm-prompter/internal/schema"
)

const tableSchema = `{
	"type": "object",
	"properties": {
		"zeta": {"type": "string"},
		"alpha": {"type": "array", "items": {"type": "integer"}},
		"kind": {"enum": ["table", "view"]},
		"note": {"type": ["string", "null"]}
	},
	"required": ["zeta", "alpha"]
}`

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		schema  string
		wantErr bool
	}{
		{name: "object schema", schema: tableSchema},
		{name: "empty", schema: "  ", wantErr: true},
		{name: "not json", schema: "{type: object", wantErr: true},
		{name: "wrong keyword type", schema: `{"type": 5}`, wantErr: true},
		{name: "unknown type name", schema: `{"type": "record"}`, wantErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := schema.Validate(testCase.schema)
			if !testCase.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, failure.Is(err, failure.ErrSchema), "expected schema error, got %v", err)
		})
	}
}

func TestGrammarKeepsDeclaredOrder(t *testing.T) {
	grammar, err := schema.Grammar(tableSchema)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(grammar, "root ::= "), grammar)
	rootLine := strings.SplitN(grammar, "\n", 2)[0]
	zetaIndex := strings.Index(rootLine, `"\"zeta\""`)
	alphaIndex := strings.Index(rootLine, `"\"alpha\""`)
	kindIndex := strings.Index(rootLine, `"\"kind\""`)
	noteIndex := strings.Index(rootLine, `"\"note\""`)
	require.True(t, zetaIndex > 0 && alphaIndex > 0 && kindIndex > 0 && noteIndex > 0, rootLine)
	assert.Less(t, zetaIndex, alphaIndex)
	assert.Less(t, alphaIndex, kindIndex)
	assert.Less(t, kindIndex, noteIndex)
	assert.Contains(t, rootLine, `( "," ws "\"kind\""`)

	assert.Contains(t, grammar, `root-alpha ::= "[" ws ( integer ( "," ws integer )* )? "]" ws`)
	assert.Contains(t, grammar, `root-kind ::= ( "\"table\"" ws | "\"view\"" ws )`)
	assert.Contains(t, grammar, "ws ::= ")
}

func TestGrammarAllOptionalProperties(t *testing.T) {
	grammar, err := schema.Grammar(`{"type":"object","properties":{"a":{"type":"string"},"b":{"type":"number"}}}`)
	require.NoError(t, err)
	rootLine := strings.SplitN(grammar, "\n", 2)[0]
	assert.Equal(t, `root ::= "{" ws ( "\"a\"" ws ":" ws string ( "," ws "\"b\"" ws ":" ws number )? | "\"b\"" ws ":" ws number )? "}" ws`, rootLine)
}

func TestGrammarRejectsUnsupportedKeywords(t *testing.T) {
	testCases := []string{
		`{"type":"object","properties":{"a":{"$ref":"#/$defs/x"}},"$defs":{"x":{"type":"string"}}}`,
		`{"type":"string","pattern":"^a+$"}`,
		`{"allOf":[{"type":"string"}]}`,
		`false`,
	}
	for _, schemaText := range testCases {
		_, err := schema.Grammar(schemaText)
		require.Error(t, err, schemaText)
		assert.True(t, failure.Is(err, failure.ErrSchema), "schema %s: %v", schemaText, err)
	}
}

func TestGrammarConstAndAnyOf(t *testing.T) {
	grammar, err := schema.Grammar(`{"anyOf":[{"const":{"ok":true}},{"type":"array"}]}`)
	require.NoError(t, err)
	assert.Contains(t, grammar, `root-0 ::= "{\"ok\":true}" ws`)
	assert.Contains(t, grammar, "root ::= ( root-0 | array )")
}

func ruleNames(t *testing.T, grammar string) []string {
	t.Helper()
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(grammar), "\n") {
		name, _, found := strings.Cut(line, " ::= ")
		require.True(t, found, line)
		names = append(names, name)
	}
	return names
}

func TestGrammarRuleNamesAreUnique(t *testing.T) {
	testCases := []struct {
		name   string
		schema string
	}{
		{name: "non-ascii nested key", schema: `{"type":"object","properties":{"таблица":{"type":"object","properties":{"x":{"type":"string"}}}}}`},
		{name: "cjk keys", schema: `{"type":"object","properties":{"表":{"type":"array","items":{"type":"string"}},"列":{"enum":["a","b"]}}}`},
		{name: "key named like a suffix", schema: `{"type":"object","properties":{"alpha":{"anyOf":[{"type":"object","properties":{"a":{"type":"string"}}},{"type":"array","items":{"type":"string"}}]},"alpha-0":{"enum":[1,2]},"ws":{"enum":["x"]}}}`},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			grammar, err := schema.Grammar(testCase.schema)
			require.NoError(t, err)
			seen := map[string]bool{}
			for _, ruleName := range ruleNames(t, grammar) {
				assert.False(t, seen[ruleName], "rule %s defined twice in\n%s", ruleName, grammar)
				seen[ruleName] = true
			}
		})
	}
}

func TestGrammarNamesNonASCIIPropertiesByPosition(t *testing.T) {
	grammar, err := schema.Grammar(`{"type":"object","properties":{"таблица":{"type":"object","properties":{"x":{"type":"string"}}}}}`)
	require.NoError(t, err)
	rootLine := strings.SplitN(grammar, "\n", 2)[0]
	assert.Equal(t, `root ::= "{" ws ( "\"таблица\"" ws ":" ws root-prop0 )? "}" ws`, rootLine)
	assert.Contains(t, grammar, `root-prop0 ::= "{" ws ( "\"x\"" ws ":" ws string )? "}" ws`)
}
