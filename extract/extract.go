// Package extract pulls JSON objects out of raw LLM completion text.
//
// Model output is rarely clean JSON: objects arrive wrapped in prose,
// markdown fences, or cut off mid-stream. The functions here scan the
// text character by character, tracking brace depth and string context,
// and return the best candidate object they can justify. Every candidate
// is validated with json.Valid before it is returned, so callers can
// hand results straight to json.Unmarshal.
package extract

import (
	"encoding/json"
	"strings"
)

// Complete extracts the first complete JSON object from text.
//
// It scans forward from the first '{' and returns the shortest balanced
// object starting there. Braces and quotes inside string literals do not
// affect matching. Returns false when no balanced object exists or the
// balanced span is not valid JSON.
func Complete(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch text[i] {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					return "", false
				}
			}
		}
	}

	return "", false
}

// Partial extracts a JSON object from text that may have been cut off
// mid-generation, typically the accumulated output of an unfinished
// streaming response.
//
// When text already contains a complete object, Partial returns exactly
// what Complete would. Otherwise it rescans from the first '{' and at
// every ',' or '}' outside a string tries closing the object right
// there, dropping whatever trails the boundary and appending one '}'
// per open brace. The longest repair that validates wins. Returns false
// when no boundary produces valid JSON.
func Partial(text string) (string, bool) {
	if candidate, ok := Complete(text); ok {
		return candidate, true
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	best := ""

	for i := start; i < len(text); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch text[i] {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case ',', '}':
			if !inString && depth > 0 {
				candidate := text[start:i] + strings.Repeat("}", depth)
				if json.Valid([]byte(candidate)) {
					best = candidate
				}
			}
			if text[i] == '}' && !inString && depth > 0 {
				depth--
			}
		}
	}

	if best == "" {
		return "", false
	}
	return best, true
}
