package link

import "strings"

// ParseShadowsocks parses SIP002 links (base64 or plain userinfo) as well as
// the legacy ss://base64(method:password@host:port)#name form.
func ParseShadowsocks(raw string) (*Descriptor, error) {
	body, ok := trimScheme(cleanLink(raw), "ss")
	if !ok {
		return nil, newError(KindInvalidSsEncoding, "missing ss:// prefix", nil)
	}

	body, fragment, _ := strings.Cut(body, "#")
	body, rawQuery, _ := strings.Cut(body, "?")
	body = strings.TrimRight(body, "/")

	var userinfo, serverinfo string
	if at := strings.LastIndex(body, "@"); at >= 0 {
		userinfo, serverinfo = body[:at], body[at+1:]
		if strings.Contains(userinfo, ":") {
			userinfo = unescape(userinfo)
		} else {
			decoded, err := DecodeBase64(unescape(userinfo))
			if err != nil {
				return nil, newError(KindInvalidSsEncoding, "", err)
			}
			userinfo = decoded
		}
	} else {
		decoded, err := DecodeBase64(unescape(body))
		if err != nil {
			return nil, newError(KindInvalidSsEncoding, "", err)
		}
		at := strings.LastIndex(decoded, "@")
		if at < 0 {
			return nil, newError(KindInvalidSsEncoding, "missing server in legacy payload", nil)
		}
		userinfo, serverinfo = decoded[:at], decoded[at+1:]
	}

	method, password, found := strings.Cut(userinfo, ":")
	if !found || method == "" {
		return nil, newError(KindInvalidSsEncoding, "userinfo is not method:password", nil)
	}

	host, port, ok := splitHostPort(serverinfo)
	if !ok {
		return nil, newError(KindMalformedLink, "invalid host:port", nil)
	}

	q := parseQuery(rawQuery)
	return &Descriptor{
		Name:    firstNonEmpty(unescape(fragment), "SS Server"),
		Host:    host,
		Port:    port,
		Network: "tcp",
		Proto: Shadowsocks{
			Method:   method,
			Password: password,
			Plugin:   q.get("plugin"),
			Obfs:     q.get("obfs"),
			ObfsHost: q.get("obfs-host"),
		},
	}, nil
}
