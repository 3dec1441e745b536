package link

import "strings"

// Plugin is a parsed SIP003 plugin string such as
// "v2ray-plugin;tls;mode=websocket;host=cdn.example.com".
type Plugin struct {
	Name string
	Opts []PluginOpt
}

// PluginOpt keeps option order. Flag is set for bare options without '='.
type PluginOpt struct {
	Key   string
	Value string
	Flag  bool
}

// ParsePlugin splits the plugin mini-DSL. An empty string yields a zero Plugin.
func ParsePlugin(s string) Plugin {
	parts := strings.Split(strings.TrimSpace(s), ";")
	p := Plugin{Name: strings.TrimSpace(parts[0])}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, found := strings.Cut(part, "=")
		p.Opts = append(p.Opts, PluginOpt{Key: k, Value: v, Flag: !found})
	}
	return p
}

// Get returns the value of key, "true" for a bare flag, and whether it exists.
func (p Plugin) Get(key string) (string, bool) {
	for _, o := range p.Opts {
		if o.Key == key {
			if o.Flag {
				return "true", true
			}
			return o.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present, as a flag or a key=value pair.
func (p Plugin) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Kind folds the plugin naming variants into "obfs", "v2ray-plugin" or the raw name.
func (p Plugin) Kind() string {
	switch strings.ToLower(p.Name) {
	case "obfs", "obfs-local", "simple-obfs":
		return "obfs"
	case "v2ray-plugin", "v2ray":
		return "v2ray-plugin"
	}
	return p.Name
}

// OptString re-assembles the options, keeping bare flags bare.
func (p Plugin) OptString() string {
	parts := make([]string, 0, len(p.Opts))
	for _, o := range p.Opts {
		if o.Flag {
			parts = append(parts, o.Key)
		} else {
			parts = append(parts, o.Key+"="+o.Value)
		}
	}
	return strings.Join(parts, ";")
}

// ObfsSettings resolves http/tls obfuscation from either the plugin DSL
// or the legacy obfs/obfs-host query params.
func (s Shadowsocks) ObfsSettings() (mode, host string, ok bool) {
	if s.Plugin != "" {
		p := ParsePlugin(s.Plugin)
		if p.Kind() != "obfs" {
			return "", "", false
		}
		mode, _ = p.Get("obfs")
		host, _ = p.Get("obfs-host")
		return firstNonEmpty(mode, "http"), host, true
	}
	if s.Obfs != "" {
		return s.Obfs, s.ObfsHost, true
	}
	return "", "", false
}
