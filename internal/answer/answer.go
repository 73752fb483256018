// Package answer post-processes raw model answers before they are parsed as JSON.
package answer

import (
	"strings"

	"github.com/temirov/llm-prompter/internal/failure"
)

// Converter names accepted in a prompt's convert segment.
const (
	ConverterTrim  = "trim"
	ConverterFence = "fence"
	ConverterJSON  = "json"
)

type converter func(string) (string, error)

var converters = map[string]converter{
	ConverterTrim:  trimConverter,
	ConverterFence: fenceConverter,
	ConverterJSON:  jsonConverter,
}

// ValidateNames rejects converter names that Convert would not recognize.
func ValidateNames(names []string) error {
	for _, name := range names {
		if _, ok := converters[name]; !ok {
			return failure.Newf(failure.ErrParse, "unknown answer converter %q", name)
		}
	}
	return nil
}

// Convert applies the named converters to raw in order. With no names the
// answer is only trimmed.
func Convert(raw string, names []string) (string, error) {
	if len(names) == 0 {
		return strings.TrimSpace(raw), nil
	}
	current := raw
	for _, name := range names {
		apply, ok := converters[name]
		if !ok {
			return "", failure.Newf(failure.ErrParse, "unknown answer converter %q", name)
		}
		converted, err := apply(current)
		if err != nil {
			return "", err
		}
		current = converted
	}
	return current, nil
}

func trimConverter(text string) (string, error) {
	return strings.TrimSpace(text), nil
}

// fenceConverter returns the body of the first ``` fenced block, or the text
// unchanged when there is none.
func fenceConverter(text string) (string, error) {
	const fence = "```"
	start := strings.Index(text, fence)
	if start < 0 {
		return strings.TrimSpace(text), nil
	}
	body := text[start+len(fence):]
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		// skip the info string, e.g. ```json
		if !strings.ContainsAny(body[:newline], "{[") {
			body = body[newline+1:]
		}
	}
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), nil
}

// jsonConverter cuts the text from the first '{' or '[' through the last
// matching closing bracket.
func jsonConverter(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", failure.Newf(failure.ErrParse, "no json object or array found in answer")
	}
	closing := byte('}')
	if text[start] == '[' {
		closing = ']'
	}
	end := strings.LastIndexByte(text, closing)
	if end <= start {
		return "", failure.Newf(failure.ErrParse, "no matching closing bracket found in answer")
	}
	return text[start : end+1], nil
}
