package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// previewLimit bounds the input excerpt carried by JSONParseError
const previewLimit = 100

// JSONParseError reports input that could not be parsed even after repair
type JSONParseError struct {
	// Preview is at most previewLimit characters of the input, ending in
	// "..." when cut.
	Preview string
	Message string
	Cause   error
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("failed to parse JSON %q: %s", e.Preview, e.Message)
}

func (e *JSONParseError) Unwrap() error {
	return e.Cause
}

func newJSONParseError(input string, cause error) *JSONParseError {
	msg := "invalid JSON"
	if cause != nil {
		msg = cause.Error()
	}
	return &JSONParseError{Preview: previewOf(input), Message: msg, Cause: cause}
}

func previewOf(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLimit {
		return s
	}
	return string(runes[:previewLimit-3]) + "..."
}

// ParseJSON parses s, making a single repair attempt when the direct parse
// fails.
func ParseJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v, nil
	}

	repaired := RepairJSON(s)
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, newJSONParseError(s, err)
	}
	return v, nil
}

// ParseJSONObject parses s into an object. Blank input is an empty object,
// which is how vendors encode calls of argument-less functions.
func ParseJSONObject(s string) (map[string]any, error) {
	if strings.TrimSpace(s) == "" {
		return map[string]any{}, nil
	}

	v, err := ParseJSON(s)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &JSONParseError{Preview: previewOf(s), Message: fmt.Sprintf("expected a JSON object, got %T", v)}
	}
	return obj, nil
}

// RepairJSON applies one best-effort repair pass to truncated or sloppy
// JSON. Input that is already valid is returned unchanged.
//
// The pass closes an unterminated string and any unmatched '{' / '[',
// strips trailing commas before '}' / ']', then quotes bare object keys.
func RepairJSON(s string) string {
	if json.Valid([]byte(s)) {
		return s
	}
	out := closeOpenStructures(s)
	out = stripTrailingCommas(out)
	out = quoteBareKeys(out)
	return out
}

// closeOpenStructures appends the closers missing at the end of s
func closeOpenStructures(s string) string {
	var (
		closers  []byte
		inString bool
		escaped  bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			closers = append(closers, '}')
		case '[':
			closers = append(closers, ']')
		case '}', ']':
			// A mismatched closer is left alone; only a matching one pops.
			if n := len(closers); n > 0 && closers[n-1] == c {
				closers = closers[:n-1]
			}
		}
	}

	if !inString && len(closers) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(closers) + 6)
	if inString {
		if escaped {
			s = s[:len(s)-1]
		}
		b.WriteString(s)
		b.WriteByte('"')
	} else {
		b.WriteString(s)
	}

	// A dangling key separator gets a null value so the object can close.
	if trimmed := strings.TrimRight(b.String(), " \t\r\n"); strings.HasSuffix(trimmed, ":") {
		b.Reset()
		b.WriteString(trimmed)
		b.WriteString("null")
	}

	for i := len(closers) - 1; i >= 0; i-- {
		b.WriteByte(closers[i])
	}
	return b.String()
}

// stripTrailingCommas drops commas that directly precede '}' or ']'
func stripTrailingCommas(s string) string {
	var (
		b        strings.Builder
		inString bool
		escaped  bool
	)
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}

		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// quoteBareKeys wraps identifiers used as object keys in double quotes
func quoteBareKeys(s string) string {
	var (
		b        strings.Builder
		inString bool
		escaped  bool
	)
	b.Grow(len(s) + 8)

	for i := 0; i < len(s); {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			i++
			continue
		}

		if c == '"' {
			inString = true
			b.WriteByte(c)
			i++
			continue
		}

		if isIdentStart(c) && (i == 0 || isKeyBoundary(s[i-1])) {
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			k := j
			for k < len(s) && isJSONSpace(s[k]) {
				k++
			}
			if k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
			} else {
				b.WriteString(s[i:j])
			}
			i = j
			continue
		}

		b.WriteByte(c)
		i++
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isKeyBoundary(c byte) bool {
	return c == '{' || c == ',' || isJSONSpace(c)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
