package render

import (
	"strconv"
	"strings"
)

// Line builds the comma separated "key=value" directives used by Surge
// and Quantumult X.
type Line struct {
	parts []string
}

// Add appends a bare positional part.
func (l *Line) Add(part string) *Line {
	l.parts = append(l.parts, part)
	return l
}

// Set appends key=value, quoting values that would split the directive.
func (l *Line) Set(key, value string) *Line {
	return l.Add(key + "=" + quoteDirective(value))
}

// SetIf appends key=value only for a non-empty value.
func (l *Line) SetIf(key, value string) *Line {
	if value == "" {
		return l
	}
	return l.Set(key, value)
}

// SetRaw appends key=value verbatim. Lists such as alpn go through here.
func (l *Line) SetRaw(key, value string) *Line {
	return l.Add(key + "=" + value)
}

func (l *Line) Bool(key string, v bool) *Line {
	return l.Add(key + "=" + strconv.FormatBool(v))
}

func (l *Line) Join() string {
	return strings.Join(l.parts, ", ")
}

func quoteDirective(v string) string {
	if strings.ContainsAny(v, ",\"") || strings.TrimSpace(v) != v {
		return strconv.Quote(v)
	}
	return v
}

var directiveName = strings.NewReplacer(",", " ", "=", "-")

// DirectiveName makes a display name safe for the name slot of a Surge or
// Quantumult X directive and for comma separated policy group lists.
func DirectiveName(name string) string {
	return strings.TrimSpace(directiveName.Replace(name))
}
