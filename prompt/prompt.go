// Package prompt assembles prompts for completion requests, including
// the schema-bearing preamble that asks a model for structured JSON
// output.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/aschepis/backscratcher/guidance/guide"
)

// Builder assembles a prompt line by line. The zero value is ready to
// use; methods return the builder for chaining.
type Builder struct {
	lines []string
}

// Add appends one line. Blank lines are dropped so callers can pass
// optionally-empty strings without guarding.
func (b *Builder) Add(line string) *Builder {
	if strings.TrimSpace(line) != "" {
		b.lines = append(b.lines, line)
	}
	return b
}

// Addf appends one formatted line.
func (b *Builder) Addf(format string, args ...any) *Builder {
	return b.Add(fmt.Sprintf(format, args...))
}

// AddIf appends line only when cond holds.
func (b *Builder) AddIf(cond bool, line string) *Builder {
	if cond {
		b.Add(line)
	}
	return b
}

// AddAll appends each line in turn, dropping blanks.
func (b *Builder) AddAll(lines ...string) *Builder {
	for _, line := range lines {
		b.Add(line)
	}
	return b
}

// Lines returns the accumulated lines.
func (b *Builder) Lines() []string {
	return b.lines
}

// String joins the accumulated lines with newlines.
func (b *Builder) String() string {
	return strings.Join(b.lines, "\n")
}

// Structured wraps task with instructions to answer as a single JSON
// object shaped by g. The guide is embedded as a fenced JSON block,
// followed by guidance on required fields and allowed values, so the
// response can be decoded by the extraction layer.
func Structured(task string, g guide.Guide) string {
	var sb strings.Builder
	sb.WriteString(task)
	sb.WriteString("\n\n")
	sb.WriteString("Respond with a single JSON object matching this field guide:\n\n")
	sb.WriteString("```json\n")
	sb.WriteString(g.JSON())
	sb.WriteString("\n```\n\n")
	sb.WriteString("Your response must be valid JSON only, following these guidelines:\n")
	sb.WriteString("1. Do not include explanations, markdown fences, or any text around the JSON.\n")
	sb.WriteString("2. Include every required field.\n")

	if required := RequiredFields(g); len(required) > 0 {
		sb.WriteString("3. The required fields are: ")
		sb.WriteString(strings.Join(required, ", "))
		sb.WriteString(".\n")
	}

	for _, name := range sortedKeys(g) {
		if vals := g[name].ValidValues; len(vals) > 0 {
			fmt.Fprintf(&sb, "   - %s must be one of: %s\n", name, strings.Join(vals, ", "))
		}
	}

	return sb.String()
}

// RequiredFields lists the non-optional field names of a guide in
// stable order.
func RequiredFields(g guide.Guide) []string {
	names := lo.Filter(lo.Keys(g), func(name string, _ int) bool {
		return !g[name].IsOptional
	})
	sort.Strings(names)
	return names
}

func sortedKeys(g guide.Guide) []string {
	keys := lo.Keys(g)
	sort.Strings(keys)
	return keys
}
