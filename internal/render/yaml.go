package render

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLBuilder writes one block-style YAML list item, the subset client
// proxy lists use.
// Indentation is two spaces per level. A mapping or sequence opened with
// Map/Seq is only written once it receives its first entry, so empty
// blocks never reach the output.
type YAMLBuilder struct {
	sb      strings.Builder
	level   int
	pending []pendingKey
	item    bool // next key starts a "- " list item
}

type pendingKey struct {
	key   string
	level int
}

// NewListItem starts a builder whose first key opens a top-level "- " item.
func NewListItem() *YAMLBuilder {
	return &YAMLBuilder{item: true}
}

// Field writes key: value with the value quoted when YAML would misread it.
func (b *YAMLBuilder) Field(key, value string) *YAMLBuilder {
	return b.raw(key, Scalar(value))
}

// FieldIf writes the field only when value is non-empty.
func (b *YAMLBuilder) FieldIf(key, value string) *YAMLBuilder {
	if value == "" {
		return b
	}
	return b.Field(key, value)
}

func (b *YAMLBuilder) Int(key string, v int) *YAMLBuilder {
	return b.raw(key, strconv.Itoa(v))
}

func (b *YAMLBuilder) Bool(key string, v bool) *YAMLBuilder {
	return b.raw(key, strconv.FormatBool(v))
}

// Seq writes key followed by a block sequence. Nothing is written for an empty list.
func (b *YAMLBuilder) Seq(key string, values []string) *YAMLBuilder {
	if len(values) == 0 {
		return b
	}
	b.line(key + ":")
	for _, v := range values {
		b.sb.WriteString(b.indent(b.level + 1))
		b.sb.WriteString("- ")
		b.sb.WriteString(Scalar(v))
		b.sb.WriteByte('\n')
	}
	return b
}

// Map opens a nested mapping under key. It is written lazily.
func (b *YAMLBuilder) Map(key string) *YAMLBuilder {
	b.pending = append(b.pending, pendingKey{key: key, level: b.level})
	b.level++
	return b
}

// End closes the innermost mapping opened with Map.
func (b *YAMLBuilder) End() *YAMLBuilder {
	if b.level == 0 {
		return b
	}
	b.level--
	if n := len(b.pending); n > 0 && b.pending[n-1].level == b.level {
		b.pending = b.pending[:n-1]
	}
	return b
}

func (b *YAMLBuilder) String() string {
	return strings.TrimSuffix(b.sb.String(), "\n")
}

func (b *YAMLBuilder) raw(key, value string) *YAMLBuilder {
	b.line(key + ": " + value)
	return b
}

func (b *YAMLBuilder) line(s string) {
	for _, p := range b.pending {
		b.writeIndented(p.level, p.key+":")
	}
	b.pending = b.pending[:0]
	b.writeIndented(b.level, s)
}

func (b *YAMLBuilder) writeIndented(level int, s string) {
	if b.item {
		b.sb.WriteString("- ")
		b.item = false
	} else {
		b.sb.WriteString(b.indent(level))
	}
	b.sb.WriteString(s)
	b.sb.WriteByte('\n')
}

// indent accounts for the "- " prefix of list items: keys of the item sit
// at column 2, nested levels two further each.
func (b *YAMLBuilder) indent(level int) string {
	return strings.Repeat("  ", level+1)
}

// Scalar quotes s when a plain YAML scalar would be parsed differently.
func Scalar(s string) string {
	if needsQuote(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return true
	}
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "on", "off", "y", "n", "null", "~", ".inf", "-.inf", ".nan":
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	if _, err := strconv.ParseInt(s, 0, 64); err == nil {
		return true
	}
	if strings.ContainsAny(s[:1], "-?:,[]{}#&*!|>'\"%@`") {
		return true
	}
	if strings.Contains(s, ": ") || strings.Contains(s, " #") {
		return true
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	if strings.ContainsAny(s, "[]{},\"'\\") {
		return true
	}
	return !resolvesToString(s)
}

// resolvesToString reports whether s read back as a plain scalar is still a
// string. It catches the implicit types (timestamps, binary, merge keys)
// the checks above do not spell out.
func resolvesToString(s string) bool {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil || len(doc.Content) != 1 {
		return false
	}
	n := doc.Content[0]
	return n.Kind == yaml.ScalarNode && n.Style == 0 && n.ShortTag() == "!!str" && n.Value == s
}
