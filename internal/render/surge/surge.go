package surge

import (
	"fmt"
	"strconv"

	"vortexconv/internal/link"
	"vortexconv/internal/render"
)

const Name = "surge"

// Renderer emits Surge [Proxy] lines: "<name> = <type>, <host>, <port>, k=v...".
type Renderer struct{}

func (Renderer) ContentType() string { return "text/plain; charset=utf-8" }

func (Renderer) Aggregate(fragments []string) (string, error) {
	return render.JoinLines(fragments)
}

func (Renderer) Render(d *link.Descriptor) (string, error) {
	l := &render.Line{}
	l.Add(string(d.Type())).Add(d.Host).Add(strconv.Itoa(d.Port))

	switch p := d.Proto.(type) {
	case link.VLESS:
		l.Set("username", p.UUID)
		l.Bool("skip-cert-verify", d.AllowInsecure)
		if d.TLSEnabled() {
			tls(l, d)
			l.SetIf("flow", p.Flow)
		}
		ws(l, d)
	case link.VMess:
		l.Set("username", p.UUID)
		l.Bool("skip-cert-verify", d.AllowInsecure)
		if p.TLS {
			tls(l, d)
		}
		ws(l, d)
	case link.Trojan:
		l.Set("password", p.Password)
		l.Bool("skip-cert-verify", d.AllowInsecure)
		l.Set("sni", d.ServerName())
		if d.ALPN != "" {
			l.SetRaw("alpn", d.ALPN)
		}
		l.SetIf("server-cert-fingerprint-sha256", d.Fingerprint)
		ws(l, d)
	case link.Shadowsocks:
		l.Set("encrypt-method", p.Method)
		l.Set("password", p.Password)
		// Surge only speaks simple-obfs; other plugins have no equivalent.
		if mode, host, ok := p.ObfsSettings(); ok {
			l.Set("obfs", mode)
			l.SetIf("obfs-host", host)
		}
		l.Bool("udp-relay", true)
	default:
		return "", &render.UnsupportedError{Target: Name, Type: d.Type()}
	}

	return fmt.Sprintf("%s = %s", render.DirectiveName(d.Name), l.Join()), nil
}

func tls(l *render.Line, d *link.Descriptor) {
	l.Bool("tls", true)
	l.Set("sni", d.ServerName())
	if d.ALPN != "" {
		l.SetRaw("alpn", d.ALPN)
	}
	l.SetIf("server-cert-fingerprint-sha256", d.Fingerprint)
}

func ws(l *render.Line, d *link.Descriptor) {
	if d.Network != "ws" {
		return
	}
	path := d.Path
	if path == "" {
		path = "/"
	}
	l.Bool("ws", true)
	l.Set("ws-path", path)
	if d.HostHeader != "" {
		l.Set("ws-headers", "host:"+d.HostHeader)
	}
}

func init() {
	render.Register(Name, func() render.Renderer { return Renderer{} })
}
