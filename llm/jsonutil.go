package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Model output rarely arrives as clean JSON: it shows up wrapped in markdown
// fences, annotated with // comments, or with trailing commas. These helpers
// dig the payload out before unmarshalling.

// ExtractJSON returns the first balanced JSON object found in s, sanitized.
func ExtractJSON(s string) (string, error) {
	return extractBalanced(stripFences(s), '{', '}')
}

// ExtractJSONArray returns the first balanced JSON array found in s,
// sanitized.
func ExtractJSONArray(s string) (string, error) {
	return extractBalanced(stripFences(s), '[', ']')
}

// ExtractAndUnmarshal pulls the first object or array out of s (whichever
// appears first) and unmarshals it into v.
func ExtractAndUnmarshal(s string, v any) error {
	cleaned := stripFences(s)

	objIdx := strings.IndexByte(cleaned, '{')
	arrIdx := strings.IndexByte(cleaned, '[')

	var raw string
	var err error
	switch {
	case objIdx == -1 && arrIdx == -1:
		return fmt.Errorf("no JSON payload found")
	case arrIdx == -1 || (objIdx != -1 && objIdx < arrIdx):
		raw, err = extractBalanced(cleaned, '{', '}')
	default:
		raw, err = extractBalanced(cleaned, '[', ']')
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON: %w", err)
	}
	return nil
}

// stripFences unwraps a ```json ... ``` (or plain ```) block if one wraps
// the payload.
func stripFences(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}

	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		// Drop the info string ("json", "JSON", ...).
		firstLine := strings.TrimSpace(rest[:nl])
		if len(firstLine) <= 8 && !strings.ContainsAny(firstLine, "{}[]") {
			rest = rest[nl+1:]
		}
	}

	if end := strings.Index(rest, "```"); end != -1 {
		return rest[:end]
	}
	return rest
}

// extractBalanced scans for the first balanced open..close region, skipping
// string literals and escapes, then sanitizes it.
func extractBalanced(s string, open, close byte) (string, error) {
	start := strings.IndexByte(s, open)
	if start == -1 {
		return "", fmt.Errorf("no %q found in content", string(open))
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// characters inside strings never affect depth
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return sanitize(s[start : i+1]), nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced %q in content", string(open))
}

// sanitize removes // line comments outside strings and trailing commas.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' && inString {
			b.WriteByte(c)
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			b.WriteByte(c)
			continue
		}
		if !inString && c == '/' && i+1 < len(s) && s[i+1] == '/' {
			// Skip to end of line.
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(c)
	}

	return stripTrailingCommas(b.String())
}

// stripTrailingCommas drops commas that directly precede a closing brace or
// bracket (allowing whitespace between).
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' && inString {
			b.WriteByte(c)
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			b.WriteByte(c)
			continue
		}
		if !inString && c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // drop the comma
			}
		}
		b.WriteByte(c)
	}

	return b.String()
}
