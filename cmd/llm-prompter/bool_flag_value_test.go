package llmprompter

import "testing"

func TestParseBoolChoice(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected bool
		ok       bool
	}{
		{name: "EmptyDefaultsTrue", input: "", expected: true, ok: true},
		{name: "TrueWord", input: "true", expected: true, ok: true},
		{name: "FalseWord", input: "false", expected: false, ok: true},
		{name: "YesUpper", input: "YES", expected: true, ok: true},
		{name: "OffPadded", input: " off ", expected: false, ok: true},
		{name: "Invalid", input: "maybe", expected: false, ok: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			value, ok := parseBoolChoice(testCase.input)
			if ok != testCase.ok || value != testCase.expected {
				t.Fatalf("parseBoolChoice(%q) = %v, %v", testCase.input, value, ok)
			}
		})
	}
}

func TestVerifyHashFlagDefaultsToTrue(t *testing.T) {
	command := newRunCommand()
	flag := command.Flags().Lookup(verifyHashFlagName)
	if flag == nil || flag.DefValue != "true" || flag.NoOptDefVal != "true" {
		t.Fatalf("unexpected verify-hash flag %+v", flag)
	}
	if err := command.Flags().Set(verifyHashFlagName, "no"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if flag.Value.String() != "false" {
		t.Fatalf("expected false after setting no, got %s", flag.Value.String())
	}
}
