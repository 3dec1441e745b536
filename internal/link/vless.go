package link

import "strings"

// ParseVLESS parses vless://<uuid>@<host>:<port>?<query>#<name>.
func ParseVLESS(raw string) (*Descriptor, error) {
	body, ok := trimScheme(cleanLink(raw), "vless")
	if !ok {
		return nil, newError(KindNotVlessLink, "", nil)
	}

	userinfo, rest, found := strings.Cut(body, "@")
	if !found {
		return nil, newError(KindMalformedLink, "missing '@'", nil)
	}
	uuid, _, _ := strings.Cut(userinfo, ":")
	if uuid == "" {
		return nil, newError(KindMalformedLink, "missing uuid", nil)
	}

	rest, fragment, _ := strings.Cut(rest, "#")
	hostPort, rawQuery, _ := strings.Cut(rest, "?")

	host, port, ok := splitHostPort(hostPort)
	if !ok {
		return nil, newError(KindMalformedLink, "invalid host:port", nil)
	}

	q := parseQuery(rawQuery)
	d := &Descriptor{
		Name:       firstNonEmpty(unescape(fragment), "VLESS Server"),
		Host:       host,
		Port:       port,
		HostHeader: q.get("host"),
	}
	applyTransport(d, q)
	d.SNI = firstNonEmpty(q.get("sni"), d.HostHeader, host)

	d.Proto = VLESS{
		UUID:       uuid,
		Security:   firstNonEmpty(q.get("security"), "none"),
		Flow:       q.get("flow"),
		Encryption: firstNonEmpty(q.get("encryption"), "none"),
		PublicKey:  q.get("pbk"),
		ShortID:    q.get("sid"),
		SpiderX:    q.get("spx"),
	}
	return d, nil
}
