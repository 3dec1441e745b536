package link

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// URI converts the descriptor back into its native share link.
func (d *Descriptor) URI() string {
	switch p := d.Proto.(type) {
	case VMess:
		return d.vmessURI(p)
	case Shadowsocks:
		return d.shadowsocksURI(p)
	case VLESS:
		q := d.transportQuery()
		q.Set("security", p.Security)
		q.Set("encryption", p.Encryption)
		setIf(q, "flow", p.Flow)
		setIf(q, "pbk", p.PublicKey)
		setIf(q, "sid", p.ShortID)
		setIf(q, "spx", p.SpiderX)
		return d.genericURI("vless", p.UUID, q)
	case Trojan:
		return d.genericURI("trojan", p.Password, d.transportQuery())
	}
	return ""
}

func (d *Descriptor) vmessURI(p VMess) string {
	v := vmessJSON{
		V:    "2",
		Ps:   d.Name,
		Add:  d.Host,
		Port: strconv.Itoa(d.Port),
		Id:   p.UUID,
		Aid:  strconv.Itoa(p.AlterID),
		Scy:  p.Cipher,
		Net:  d.Network,
		Type: p.HeaderType,
		Host: d.HostHeader,
		Path: d.Path,
		Sni:  d.SNI,
		Alpn: d.ALPN,
		Fp:   d.Fingerprint,
	}
	if d.Network == "grpc" {
		v.Path = d.ServiceName
	}
	if p.TLS {
		v.Tls = "tls"
	}

	b, _ := json.Marshal(v)
	return "vmess://" + base64.StdEncoding.EncodeToString(b)
}

func (d *Descriptor) shadowsocksURI(p Shadowsocks) string {
	userInfo := fmt.Sprintf("%s:%s", p.Method, p.Password)
	safeUser := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(userInfo))

	u := url.URL{
		Scheme:   "ss",
		User:     url.User(safeUser),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Fragment: d.Name,
	}
	q := url.Values{}
	setIf(q, "plugin", p.Plugin)
	setIf(q, "obfs", p.Obfs)
	setIf(q, "obfs-host", p.ObfsHost)
	u.RawQuery = q.Encode()
	return u.String()
}

func (d *Descriptor) transportQuery() url.Values {
	q := url.Values{}
	if d.Network != "" && d.Network != "tcp" {
		q.Set("type", d.Network)
	}
	setIf(q, "sni", d.SNI)
	setIf(q, "fp", d.Fingerprint)
	setIf(q, "host", d.HostHeader)
	setIf(q, "path", d.Path)
	setIf(q, "serviceName", d.ServiceName)
	setIf(q, "alpn", d.ALPN)
	if d.AllowInsecure {
		q.Set("allowInsecure", "1")
	}
	return q
}

func (d *Descriptor) genericURI(scheme, user string, q url.Values) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.User(user),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		RawQuery: q.Encode(),
		Fragment: d.Name,
	}
	return u.String()
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
