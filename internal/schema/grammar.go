package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/temirov/llm-prompter/internal/failure"
)

const primitiveRules = `value ::= object | array | string | number | boolean | null
object ::= "{" ws ( string ":" ws value ( "," ws string ":" ws value )* )? "}" ws
array ::= "[" ws ( value ( "," ws value )* )? "]" ws
string ::= "\"" ( [^"\\\x7F\x00-\x1F] | "\\" ( ["\\/bfnrt] | "u" [0-9a-fA-F] [0-9a-fA-F] [0-9a-fA-F] [0-9a-fA-F] ) )* "\"" ws
number ::= "-"? ( [0-9] | [1-9] [0-9]* ) ( "." [0-9]+ )? ( [eE] [-+]? [0-9]+ )? ws
integer ::= "-"? ( [0-9] | [1-9] [0-9]* ) ws
boolean ::= ( "true" | "false" ) ws
null ::= "null" ws
ws ::= [ \t\n]*
`

var unsupportedKeywords = []string{"$ref", "pattern", "patternProperties", "allOf", "not", "if", "dependentSchemas"}

// member is one key of a JSON object in document order.
type member struct {
	key   string
	value any
}

type orderedObject []member

func (o orderedObject) get(key string) (any, bool) {
	for _, m := range o {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

// Grammar converts a JSON Schema to a GBNF grammar whose root rule accepts the
// JSON documents described by the schema. Object properties keep the order in
// which the schema declares them; required properties come first.
func Grammar(text string) (string, error) {
	if err := Validate(text); err != nil {
		return "", err
	}
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()
	document, err := decodeOrdered(decoder)
	if err != nil {
		return "", failure.Wrap(failure.ErrSchema, err, "decode json schema")
	}
	builder := newGrammarBuilder()
	rootBody, err := builder.body(document, "root")
	if err != nil {
		return "", err
	}
	var out strings.Builder
	out.WriteString("root ::= " + rootBody + "\n")
	for _, rule := range builder.rules {
		out.WriteString(rule + "\n")
	}
	out.WriteString(primitiveRules)
	return out.String(), nil
}

// reservedRuleNames are emitted by Grammar itself and never reused.
var reservedRuleNames = []string{"root", "value", "object", "array", "string", "number", "integer", "boolean", "null", "ws"}

type grammarBuilder struct {
	rules []string
	names map[string]bool
}

func newGrammarBuilder() *grammarBuilder {
	names := make(map[string]bool, len(reservedRuleNames))
	for _, name := range reservedRuleNames {
		names[name] = true
	}
	return &grammarBuilder{names: names}
}

// rule registers body under a unique name derived from hint and returns the name.
func (b *grammarBuilder) rule(hint string, body string) string {
	base := sanitizeRuleName(hint)
	name := base
	for suffix := 1; b.names[name]; suffix++ {
		name = fmt.Sprintf("%s-%d", base, suffix)
	}
	b.names[name] = true
	b.rules = append(b.rules, name+" ::= "+body)
	return name
}

// propertyHint names the rule of a property. Keys without ASCII letters or
// digits fall back to their position.
func propertyHint(hint string, key string, index int) string {
	if !containsASCIIAlphanumeric(key) {
		return fmt.Sprintf("%s-prop%d", hint, index)
	}
	return hint + "-" + key
}

func containsASCIIAlphanumeric(text string) bool {
	for _, r := range text {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// reference returns a symbol matching node, adding rules as needed.
func (b *grammarBuilder) reference(node any, hint string) (string, error) {
	body, err := b.body(node, hint)
	if err != nil {
		return "", err
	}
	switch body {
	case "value", "object", "array", "string", "number", "integer", "boolean", "null":
		return body, nil
	}
	return b.rule(hint, body), nil
}

func (b *grammarBuilder) body(node any, hint string) (string, error) {
	switch typed := node.(type) {
	case bool:
		if !typed {
			return "", failure.Newf(failure.ErrSchema, "schema at %s accepts nothing", hint)
		}
		return "value", nil
	case orderedObject:
		return b.objectSchemaBody(typed, hint)
	default:
		return "", failure.Newf(failure.ErrSchema, "schema at %s must be an object", hint)
	}
}

func (b *grammarBuilder) objectSchemaBody(node orderedObject, hint string) (string, error) {
	for _, keyword := range unsupportedKeywords {
		if _, present := node.get(keyword); present {
			return "", failure.Newf(failure.ErrSchema, "unsupported keyword %q at %s", keyword, hint)
		}
	}
	if constant, ok := node.get("const"); ok {
		return literalValue(constant)
	}
	if enumeration, ok := node.get("enum"); ok {
		values, isList := enumeration.([]any)
		if !isList || len(values) == 0 {
			return "", failure.Newf(failure.ErrSchema, "enum at %s must be a non-empty array", hint)
		}
		alternatives := make([]string, 0, len(values))
		for _, value := range values {
			literal, err := literalValue(value)
			if err != nil {
				return "", err
			}
			alternatives = append(alternatives, literal)
		}
		return group(alternatives), nil
	}
	for _, keyword := range []string{"anyOf", "oneOf"} {
		if options, ok := node.get(keyword); ok {
			list, isList := options.([]any)
			if !isList || len(list) == 0 {
				return "", failure.Newf(failure.ErrSchema, "%s at %s must be a non-empty array", keyword, hint)
			}
			alternatives := make([]string, 0, len(list))
			for index, option := range list {
				symbol, err := b.reference(option, fmt.Sprintf("%s-%d", hint, index))
				if err != nil {
					return "", err
				}
				alternatives = append(alternatives, symbol)
			}
			return group(alternatives), nil
		}
	}

	typeValue, hasType := node.get("type")
	if !hasType {
		if _, hasProperties := node.get("properties"); hasProperties {
			return b.objectBody(node, hint)
		}
		if _, hasItems := node.get("items"); hasItems {
			return b.arrayBody(node, hint)
		}
		return "value", nil
	}
	switch typed := typeValue.(type) {
	case string:
		return b.typeBody(typed, node, hint)
	case []any:
		alternatives := make([]string, 0, len(typed))
		for _, entry := range typed {
			name, isString := entry.(string)
			if !isString {
				return "", failure.Newf(failure.ErrSchema, "type list at %s must hold strings", hint)
			}
			body, err := b.typeBody(name, node, hint+"-"+name)
			if err != nil {
				return "", err
			}
			alternatives = append(alternatives, body)
		}
		return group(alternatives), nil
	default:
		return "", failure.Newf(failure.ErrSchema, "type at %s must be a string or array", hint)
	}
}

func (b *grammarBuilder) typeBody(typeName string, node orderedObject, hint string) (string, error) {
	switch typeName {
	case "object":
		return b.objectBody(node, hint)
	case "array":
		return b.arrayBody(node, hint)
	case "string", "number", "integer", "boolean", "null":
		return typeName, nil
	default:
		return "", failure.Newf(failure.ErrSchema, "unknown type %q at %s", typeName, hint)
	}
}

func (b *grammarBuilder) objectBody(node orderedObject, hint string) (string, error) {
	rawProperties, ok := node.get("properties")
	if !ok {
		return "object", nil
	}
	properties, isObject := rawProperties.(orderedObject)
	if !isObject {
		return "", failure.Newf(failure.ErrSchema, "properties at %s must be an object", hint)
	}
	if len(properties) == 0 {
		return "object", nil
	}
	required := map[string]bool{}
	if rawRequired, present := node.get("required"); present {
		list, isList := rawRequired.([]any)
		if !isList {
			return "", failure.Newf(failure.ErrSchema, "required at %s must be an array", hint)
		}
		for _, entry := range list {
			if name, isString := entry.(string); isString {
				required[name] = true
			}
		}
	}

	var requiredPairs, optionalPairs []string
	for index, property := range properties {
		valueSymbol, err := b.reference(property.value, propertyHint(hint, property.key, index))
		if err != nil {
			return "", err
		}
		encodedKey, err := json.Marshal(property.key)
		if err != nil {
			return "", failure.Wrap(failure.ErrSchema, err, "encode property %q", property.key)
		}
		pair := quoteLiteral(string(encodedKey)) + ` ws ":" ws ` + valueSymbol
		if required[property.key] {
			requiredPairs = append(requiredPairs, pair)
		} else {
			optionalPairs = append(optionalPairs, pair)
		}
	}

	var members string
	switch {
	case len(requiredPairs) > 0:
		members = strings.Join(requiredPairs, ` "," ws `)
		for _, pair := range optionalPairs {
			members += ` ( "," ws ` + pair + ` )?`
		}
	default:
		alternatives := make([]string, 0, len(optionalPairs))
		for index, pair := range optionalPairs {
			alternative := pair
			for _, following := range optionalPairs[index+1:] {
				alternative += ` ( "," ws ` + following + ` )?`
			}
			alternatives = append(alternatives, alternative)
		}
		members = group(alternatives) + "?"
	}
	return `"{" ws ` + members + ` "}" ws`, nil
}

func (b *grammarBuilder) arrayBody(node orderedObject, hint string) (string, error) {
	items, ok := node.get("items")
	if !ok {
		return "array", nil
	}
	itemSymbol, err := b.reference(items, hint+"-item")
	if err != nil {
		return "", err
	}
	return `"[" ws ( ` + itemSymbol + ` ( "," ws ` + itemSymbol + ` )* )? "]" ws`, nil
}

func literalValue(value any) (string, error) {
	encoded, err := encodeCompact(value)
	if err != nil {
		return "", failure.Wrap(failure.ErrSchema, err, "encode literal")
	}
	return quoteLiteral(encoded) + " ws", nil
}

func group(alternatives []string) string {
	if len(alternatives) == 1 {
		return "( " + alternatives[0] + " )"
	}
	return "( " + strings.Join(alternatives, " | ") + " )"
}

func quoteLiteral(text string) string {
	var out strings.Builder
	out.WriteByte('"')
	for _, r := range text {
		switch {
		case r == '"':
			out.WriteString(`\"`)
		case r == '\\':
			out.WriteString(`\\`)
		case r == '\n':
			out.WriteString(`\n`)
		case r == '\r':
			out.WriteString(`\r`)
		case r == '\t':
			out.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(&out, `\x%02X`, r)
		default:
			out.WriteRune(r)
		}
	}
	out.WriteByte('"')
	return out.String()
}

func sanitizeRuleName(hint string) string {
	var out strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out.WriteRune(r)
		default:
			out.WriteByte('-')
		}
	}
	name := strings.Trim(out.String(), "-")
	if name == "" {
		return "rule"
	}
	return name
}

// decodeOrdered decodes the next JSON value keeping object members in
// document order.
func decodeOrdered(decoder *json.Decoder) (any, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	switch delimiter := token.(type) {
	case json.Delim:
		switch delimiter {
		case '{':
			var object orderedObject
			for decoder.More() {
				keyToken, err := decoder.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyToken.(string)
				value, err := decodeOrdered(decoder)
				if err != nil {
					return nil, err
				}
				object = append(object, member{key: key, value: value})
			}
			if _, err := decoder.Token(); err != nil {
				return nil, err
			}
			if object == nil {
				object = orderedObject{}
			}
			return object, nil
		case '[':
			list := []any{}
			for decoder.More() {
				value, err := decodeOrdered(decoder)
				if err != nil {
					return nil, err
				}
				list = append(list, value)
			}
			if _, err := decoder.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", delimiter)
	default:
		return token, nil
	}
}

func encodeCompact(value any) (string, error) {
	var out bytes.Buffer
	if err := writeCompact(&out, value); err != nil {
		return "", err
	}
	return out.String(), nil
}

func writeCompact(out *bytes.Buffer, value any) error {
	switch typed := value.(type) {
	case orderedObject:
		out.WriteByte('{')
		for index, m := range typed {
			if index > 0 {
				out.WriteByte(',')
			}
			key, err := json.Marshal(m.key)
			if err != nil {
				return err
			}
			out.Write(key)
			out.WriteByte(':')
			if err := writeCompact(out, m.value); err != nil {
				return err
			}
		}
		out.WriteByte('}')
	case []any:
		out.WriteByte('[')
		for index, item := range typed {
			if index > 0 {
				out.WriteByte(',')
			}
			if err := writeCompact(out, item); err != nil {
				return err
			}
		}
		out.WriteByte(']')
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return err
		}
		out.Write(encoded)
	}
	return nil
}
