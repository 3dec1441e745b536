package link

import (
	"encoding/base64"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DecodeBase64 decodes standard and URL-safe base64, with or without padding.
func DecodeBase64(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	s = strings.TrimRight(s, "=")
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat("=", 4-n)
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return string(b), nil
	}
	b, err = base64.URLEncoding.DecodeString(s)
	if err == nil {
		return string(b), nil
	}
	return "", err
}

// cleanLink strips surrounding whitespace and stray line breaks from scraped links.
func cleanLink(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

// trimScheme removes "<scheme>://" case-insensitively.
func trimScheme(raw, scheme string) (string, bool) {
	prefix := scheme + "://"
	if len(raw) < len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
		return raw, false
	}
	return raw[len(prefix):], true
}

// unescape percent-decodes s, leaving '+' alone. Invalid escapes yield s unchanged.
func unescape(s string) string {
	if v, err := url.PathUnescape(s); err == nil {
		return v
	}
	return s
}

// query is an ordered view of "k=v&k2=v2". Plugin strings carry raw ';',
// which url.ParseQuery rejects, so the split is done by hand.
type query map[string]string

func parseQuery(s string) query {
	q := make(query)
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k = unescape(k)
		if _, seen := q[k]; seen {
			continue
		}
		q[k] = unescape(v)
	}
	return q
}

func (q query) get(keys ...string) string {
	for _, k := range keys {
		if v := q[k]; v != "" {
			return v
		}
	}
	return ""
}

func truthy(v string) bool {
	return v == "1" || v == "true"
}

// applyTransport fills the transport and TLS fields shared by vless and trojan.
func applyTransport(d *Descriptor, q query) {
	d.Network = firstNonEmpty(q.get("type"), "tcp")
	d.Path = q.get("path")
	if d.Path == "" && d.Network == "ws" {
		d.Path = "/"
	}
	d.ServiceName = q.get("serviceName")
	d.Fingerprint = q.get("fp")
	d.ALPN = q.get("alpn")
	d.AllowInsecure = truthy(q.get("allowInsecure", "insecure", "allow_insecure"))
}

// splitHostPort accepts host:port and [v6]:port and validates the port range.
func splitHostPort(s string) (string, int, bool) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil || host == "" {
		return "", 0, false
	}
	port, ok := parsePort(portStr)
	if !ok {
		return "", 0, false
	}
	return host, port, true
}

func parsePort(s string) (int, bool) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port < 1 || port > 65535 {
		return 0, false
	}
	return port, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
