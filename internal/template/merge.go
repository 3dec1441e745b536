package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"vortexconv/internal/batch"
	"vortexconv/internal/logger"
	"vortexconv/internal/render"
)

const (
	proxyMarker      = "# PROXY_PLACEHOLDER"
	proxyNamesMarker = "# PROXY_NAMES_PLACEHOLDER"
	qxProxyMarker    = "// PROXY_PLACEHOLDER"
	surgeGroup       = "🚀 PROXY = select, DIRECT"
	qxGroup          = "🚀 PROXY = direct"
	selectorTag      = "🚀 PROXY"
)

// Merger splices converted proxies into full client configurations.
type Merger struct {
	Loader Loader
}

func NewMerger(l Loader) *Merger {
	return &Merger{Loader: l}
}

// Merge returns the complete document for report. Formats without a
// skeleton (xray, v2ray) return the aggregate unchanged.
func (m *Merger) Merge(format string, report *batch.Report) (string, error) {
	switch format {
	case "clash":
		return m.clash(report)
	case "surge":
		return m.text("surge", report, proxyMarker, surgeGroup)
	case "quantumult":
		return m.text("quantumult", report, qxProxyMarker, qxGroup)
	case "singbox":
		return m.singbox(report)
	}
	return report.Output, nil
}

func (m *Merger) clash(report *batch.Report) (string, error) {
	tpl, err := m.Loader.LoadText("clash")
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(report.Succeeded))
	for _, name := range report.Names() {
		names = append(names, "      - "+strconv.Quote(name))
	}
	out := replaceLine(tpl, proxyMarker, strings.Join(report.Fragments(), "\n"))
	out = replaceLine(out, proxyNamesMarker, strings.Join(names, "\n"))

	var probe map[string]any
	if err := yaml.Unmarshal([]byte(out), &probe); err != nil {
		return "", fmt.Errorf("merged clash config is not valid yaml: %w", err)
	}
	return out, nil
}

// text handles the line oriented formats: proxies replace marker and their
// names are appended to the first proxy group line.
func (m *Merger) text(format string, report *batch.Report, marker, group string) (string, error) {
	tpl, err := m.Loader.LoadText(format)
	if err != nil {
		return "", err
	}
	out := replaceLine(tpl, marker, strings.Join(report.Fragments(), "\n"))
	if names := report.Names(); len(names) > 0 {
		for i, name := range names {
			names[i] = render.DirectiveName(name)
		}
		out = strings.Replace(out, group, group+", "+strings.Join(names, ", "), 1)
	}
	return out, nil
}

func (m *Merger) singbox(report *batch.Report) (string, error) {
	tpl, err := m.Loader.LoadJSON("singbox")
	if errors.Is(err, ErrTemplateNotFound) {
		logger.Log.Warn("singbox template not found, using built-in default")
		tpl, err = DefaultSingbox()
	}
	if err != nil {
		return "", err
	}

	tags := report.Names()
	proxies := make([]any, 0, len(report.Succeeded))
	for _, s := range report.Succeeded {
		if !json.Valid([]byte(s.Output)) {
			return "", fmt.Errorf("singbox outbound for link %d is not valid json", s.Position)
		}
		proxies = append(proxies, json.RawMessage(s.Output))
	}

	outbounds, _ := tpl["outbounds"].([]any)
	if outbounds == nil {
		outbounds = []any{
			selector(append([]any{"direct"}, toAny(tags)...)),
			map[string]any{"type": "direct", "tag": "direct"},
			map[string]any{"type": "block", "tag": "block"},
		}
	} else if sel := findType(outbounds, "selector"); sel != nil {
		current, _ := sel["outbounds"].([]any)
		sel["outbounds"] = union(current, tags)
	} else {
		outbounds = append([]any{selector(append([]any{"direct"}, toAny(tags)...))}, outbounds...)
	}

	for _, ob := range outbounds {
		ut, ok := ob.(map[string]any)
		if !ok || ut["type"] != "urltest" {
			continue
		}
		current, _ := ut["outbounds"].([]any)
		if len(current) == 0 {
			ut["outbounds"] = toAny(tags)
			continue
		}
		valid := make(map[string]bool, len(tags))
		for _, t := range tags {
			valid[t] = true
		}
		kept := make([]any, 0, len(current))
		for _, t := range current {
			if s, ok := t.(string); ok && valid[s] {
				kept = append(kept, s)
			}
		}
		ut["outbounds"] = kept
	}

	tpl["outbounds"] = append(outbounds, proxies...)
	return render.MarshalJSON(tpl)
}

// DefaultSingbox is the skeleton used when no singbox.json is installed.
func DefaultSingbox() (map[string]any, error) {
	return decodeObject([]byte(defaultSingbox))
}

const defaultSingbox = `{
  "log": {"level": "info", "timestamp": true},
  "inbounds": [
    {
      "type": "tun",
      "tag": "tun-in",
      "interface_name": "tun0",
      "address": "172.19.0.1/30",
      "auto_route": true,
      "strict_route": true,
      "sniff": true
    }
  ],
  "outbounds": [
    {"type": "selector", "tag": "🚀 PROXY", "outbounds": ["direct"]},
    {"type": "direct", "tag": "direct"},
    {"type": "block", "tag": "block"}
  ]
}`

func selector(outbounds []any) map[string]any {
	return map[string]any{"type": "selector", "tag": selectorTag, "outbounds": outbounds}
}

func findType(outbounds []any, typ string) map[string]any {
	for _, ob := range outbounds {
		if m, ok := ob.(map[string]any); ok && m["type"] == typ {
			return m
		}
	}
	return nil
}

func union(current []any, tags []string) []any {
	seen := make(map[string]bool, len(current)+len(tags))
	out := make([]any, 0, len(current)+len(tags))
	for _, v := range current {
		s, ok := v.(string)
		if ok && seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, v)
	}
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// replaceLine swaps the first line containing marker, indentation included,
// for replacement. The template is returned unchanged when marker is absent.
func replaceLine(tpl, marker, replacement string) string {
	idx := strings.Index(tpl, marker)
	if idx < 0 {
		return tpl
	}
	start := strings.LastIndex(tpl[:idx], "\n") + 1
	end := len(tpl)
	if nl := strings.Index(tpl[idx:], "\n"); nl >= 0 {
		end = idx + nl
	}
	return tpl[:start] + replacement + tpl[end:]
}
