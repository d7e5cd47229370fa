package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/aschepis/backscratcher/guidance/guide"
)

// trailingFragmentRe matches a key whose string value is still open at
// the very end of the text: `"key": "partial-value<EOF>`. Both key and
// value tolerate escaped characters, so an escaped quote inside the
// partial value does not end the match early.
var trailingFragmentRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"\s*:\s*"((?:[^"\\]|\\.)*)$`)

// PartialWithFragments extracts a JSON object from truncated text the
// way Partial does, and additionally repairs a string value that was cut
// off mid-token. guides supplies the expected response shape: a trailing
// fragment is only ever closed when its key is declared as a string
// field there. Keys that are unknown, or typed as anything other than a
// string, produce no candidate at all rather than a fabricated value,
// and the same holds for text that ends inside a bare number or literal.
func PartialWithFragments(text string, guides guide.Guide) (string, bool) {
	if candidate, ok := Partial(text); ok {
		return candidate, true
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	sub := text[start:]

	patched := sub
	if m := trailingFragmentRe.FindStringSubmatch(sub); m != nil {
		desc, ok := guides[m[1]]
		if !ok || desc.Type != guide.TypeString {
			return "", false
		}
		patched = sub + `"`
	} else if endsMidScalar(sub) {
		return "", false
	}

	patched = closeBrackets(patched)
	if !json.Valid([]byte(patched)) {
		return "", false
	}
	return patched, true
}

// endsMidScalar reports whether s stops inside an unquoted token, such
// as a number or a literal like true, whose full value cannot be known
// yet. Closing brackets after such a token would promote a prefix of the
// value to a final-looking result.
func endsMidScalar(s string) bool {
	trimmed := strings.TrimRight(s, " \t\r\n")
	if trimmed == "" {
		return false
	}
	c := trimmed[len(trimmed)-1]
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c == '.' || c == '+' || c == '-':
		return true
	}
	return false
}

// closeBrackets appends the closing brackets and braces still owed by s,
// counted outside string literals. All ']' are appended before any '}';
// deeper interleavings that this ordering cannot close fail the caller's
// validity check instead.
func closeBrackets(s string) string {
	braces := 0
	brackets := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				braces++
			}
		case '}':
			if !inString {
				braces--
			}
		case '[':
			if !inString {
				brackets++
			}
		case ']':
			if !inString {
				brackets--
			}
		}
	}

	if brackets > 0 {
		s += strings.Repeat("]", brackets)
	}
	if braces > 0 {
		s += strings.Repeat("}", braces)
	}
	return s
}
