// Package placeholder substitutes named tokens inside prompt templates.
package placeholder

import (
	"regexp"
	"sort"
	"strings"
)

// Replacement maps one literal token to its replacement text.
type Replacement struct {
	Find    string
	Replace string
}

// Substitute replaces every occurrence of each Find token with its Replace
// text in a single left-to-right scan. Inserted text is never rescanned, so the
// order of replacements does not matter. Pairs with an empty Find or Replace are
// ignored; when no pair is usable the template is returned unchanged.
func Substitute(template string, replacements ...Replacement) string {
	if template == "" {
		return template
	}
	replacementByToken := make(map[string]string, len(replacements))
	tokens := make([]string, 0, len(replacements))
	for _, replacement := range replacements {
		if replacement.Find == "" || replacement.Replace == "" {
			continue
		}
		if _, seen := replacementByToken[replacement.Find]; seen {
			continue
		}
		replacementByToken[replacement.Find] = replacement.Replace
		tokens = append(tokens, replacement.Find)
	}
	if len(tokens) == 0 {
		return template
	}
	pattern := regexp.MustCompile(alternation(tokens))
	return pattern.ReplaceAllStringFunc(template, func(match string) string {
		return replacementByToken[match]
	})
}

// alternation builds a literal pattern. Longer tokens go first so a token that
// is a prefix of another never shadows it.
func alternation(tokens []string) string {
	ordered := append([]string(nil), tokens...)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })
	quoted := make([]string, len(ordered))
	for i, token := range ordered {
		quoted[i] = regexp.QuoteMeta(token)
	}
	return strings.Join(quoted, "|")
}
