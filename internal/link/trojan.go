package link

import "strings"

// ParseTrojan parses trojan://<password>@<host>:<port>?<query>#<name>.
// Reserved characters inside the password arrive percent-encoded, so the
// credential boundary is the last '@' ahead of the query.
func ParseTrojan(raw string) (*Descriptor, error) {
	body, ok := trimScheme(cleanLink(raw), "trojan")
	if !ok {
		return nil, newError(KindInvalidTrojanFormat, ReasonMissingParts, nil)
	}

	body, fragment, _ := strings.Cut(body, "#")
	body, rawQuery, _ := strings.Cut(body, "?")

	at := strings.LastIndex(body, "@")
	if at <= 0 || at == len(body)-1 {
		return nil, newError(KindInvalidTrojanFormat, ReasonMissingParts, nil)
	}
	password := unescape(body[:at])
	serverinfo := body[at+1:]

	host, port, ok := splitTrojanServer(serverinfo)
	if !ok {
		if host == "" {
			return nil, newError(KindInvalidTrojanFormat, ReasonMissingParts, nil)
		}
		return nil, newError(KindInvalidTrojanFormat, ReasonInvalidPort, nil)
	}

	q := parseQuery(rawQuery)
	d := &Descriptor{
		Name:       firstNonEmpty(unescape(fragment), "Trojan Server"),
		Host:       host,
		Port:       port,
		HostHeader: firstNonEmpty(q.get("host"), host),
	}
	applyTransport(d, q)
	d.SNI = firstNonEmpty(q.get("sni", "peer"), d.HostHeader, host)

	d.Proto = Trojan{Password: password}
	return d, nil
}

// splitTrojanServer separates host from port, reporting the host even when
// the port is unusable so callers can tell the two failures apart.
func splitTrojanServer(s string) (string, int, bool) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return strings.Trim(s, "[]"), 0, false
	}
	host := strings.Trim(s[:i], "[]")
	if host == "" {
		return "", 0, false
	}
	port, ok := parsePort(s[i+1:])
	return host, port, ok
}
