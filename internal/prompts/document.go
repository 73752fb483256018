package prompts

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/llm-prompter/internal/answer"
	"github.com/temirov/llm-prompter/internal/failure"
)

const (
	markerPrefix       = "$$"
	markerBegin        = "$$begin"
	markerEnd          = "$$end"
	markerOptions      = "$$options"
	markerSystem       = "$$system"
	markerUser         = "$$user"
	markerJSONResponse = "$$jsonresponse"
	markerSegment      = "$$segment="
	segmentConvert     = "convert"

	unknownMarkerErrorFormat      = "%s:%d: unknown marker %q"
	markerOutsideBlockErrorFormat = "%s:%d: marker %q outside $$begin/$$end"
	nestedBeginErrorFormat        = "%s:%d: $$begin inside an open block"
	unterminatedBlockErrorFormat  = "%s: block opened at line %d has no $$end"
	unknownSegmentErrorFormat     = "%s:%d: unknown segment %q"
	emptyPromptErrorFormat        = "%s: prompt %d has neither system nor user text"
	emptyDocumentErrorFormat      = "%s: template is empty"
	optionsDecodeErrorFormat      = "%s: prompt %d options"
	convertNamesErrorFormat       = "%s: prompt %d convert segment"
)

type section int

const (
	sectionNone section = iota
	sectionOptions
	sectionSystem
	sectionUser
	sectionJSONResponse
	sectionConvert
)

type blockBuilder struct {
	startLine int
	sections  map[section][]string
}

func (b *blockBuilder) text(s section) string {
	return strings.TrimSpace(strings.Join(b.sections[s], "\n"))
}

// Parse reads one prompt document. Prompts are numbered in document order and
// carry stageIndex. A document without $$begin is a single user prompt.
func Parse(source string, content string, stageIndex int) ([]Prompt, error) {
	if !containsMarkerLine(content, markerBegin) {
		user := strings.TrimSpace(content)
		if user == "" {
			return nil, failure.Newf(failure.ErrParse, emptyDocumentErrorFormat, source)
		}
		return []Prompt{{StageIndex: stageIndex, User: user, Source: source}}, nil
	}

	var (
		parsed  []Prompt
		current *blockBuilder
		active  = sectionNone
	)
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, markerPrefix) {
			if current != nil && active != sectionNone {
				current.sections[active] = append(current.sections[active], line)
			}
			continue
		}
		marker := strings.ToLower(trimmed)
		switch {
		case marker == markerBegin:
			if current != nil {
				return nil, failure.Newf(failure.ErrParse, nestedBeginErrorFormat, source, lineNumber)
			}
			current = &blockBuilder{startLine: lineNumber, sections: map[section][]string{}}
			active = sectionNone
			continue
		case current == nil:
			return nil, failure.Newf(failure.ErrParse, markerOutsideBlockErrorFormat, source, lineNumber, trimmed)
		case marker == markerEnd:
			prompt, err := current.build(source, stageIndex, len(parsed))
			if err != nil {
				return nil, err
			}
			parsed = append(parsed, prompt)
			current = nil
			active = sectionNone
		case marker == markerOptions:
			active = sectionOptions
		case marker == markerSystem:
			active = sectionSystem
		case marker == markerUser:
			active = sectionUser
		case marker == markerJSONResponse:
			active = sectionJSONResponse
		case strings.HasPrefix(marker, markerSegment):
			name := strings.TrimSpace(strings.TrimPrefix(marker, markerSegment))
			if name != segmentConvert {
				return nil, failure.Newf(failure.ErrParse, unknownSegmentErrorFormat, source, lineNumber, name)
			}
			active = sectionConvert
		case active != sectionNone:
			// Unrecognized $$ lines inside a section are text, e.g. dollar-quoted SQL.
			current.sections[active] = append(current.sections[active], line)
		default:
			return nil, failure.Newf(failure.ErrParse, unknownMarkerErrorFormat, source, lineNumber, trimmed)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, failure.Wrap(failure.ErrParse, err, "scan %s", source)
	}
	if current != nil {
		return nil, failure.Newf(failure.ErrParse, unterminatedBlockErrorFormat, source, current.startLine)
	}
	return parsed, nil
}

func (b *blockBuilder) build(source string, stageIndex int, position int) (Prompt, error) {
	prompt := Prompt{
		StageIndex:      stageIndex,
		PositionInStage: position,
		System:          b.text(sectionSystem),
		User:            b.text(sectionUser),
		JSONSchema:      b.text(sectionJSONResponse),
		Source:          source,
	}
	if prompt.System == "" && prompt.User == "" {
		return Prompt{}, failure.Newf(failure.ErrParse, emptyPromptErrorFormat, source, position)
	}
	if optionsText := b.text(sectionOptions); optionsText != "" {
		decoder := yaml.NewDecoder(strings.NewReader(optionsText))
		decoder.KnownFields(true)
		if err := decoder.Decode(&prompt.Options); err != nil && !errors.Is(err, io.EOF) {
			return Prompt{}, failure.Wrap(failure.ErrParse, err, optionsDecodeErrorFormat, source, position)
		}
	}
	for _, line := range b.sections[sectionConvert] {
		if name := strings.TrimSpace(line); name != "" {
			prompt.Convert = append(prompt.Convert, name)
		}
	}
	if err := answer.ValidateNames(prompt.Convert); err != nil {
		return Prompt{}, failure.Wrap(failure.ErrParse, err, convertNamesErrorFormat, source, position)
	}
	return prompt, nil
}

func containsMarkerLine(content string, marker string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), marker) {
			return true
		}
	}
	return false
}
