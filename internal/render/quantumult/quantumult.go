package quantumult

import (
	"net"
	"strconv"

	"vortexconv/internal/link"
	"vortexconv/internal/render"
)

const Name = "quantumult"

// Renderer emits Quantumult X [server_local] lines ending in tag=<name>.
type Renderer struct{}

func (Renderer) ContentType() string { return "text/plain; charset=utf-8" }

func (Renderer) Aggregate(fragments []string) (string, error) {
	return render.JoinLines(fragments)
}

func (Renderer) Render(d *link.Descriptor) (string, error) {
	endpoint := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	l := &render.Line{}

	switch p := d.Proto.(type) {
	case link.VLESS:
		l.Add("vmess=" + endpoint)
		l.Set("method", "none")
		l.Set("password", p.UUID)
		l.Bool("skip-cert-verify", d.AllowInsecure)
		if d.TLSEnabled() {
			tls(l, d)
		}
		if d.Reality() {
			l.SetIf("reality-base64-pubkey", p.PublicKey)
			l.SetIf("reality-hex-shortid", p.ShortID)
		}
		l.SetIf("vless-flow", p.Flow)
		ws(l, d)
	case link.VMess:
		l.Add("vmess=" + endpoint)
		// QX has no "auto" cipher
		l.Set("method", "none")
		l.Set("password", p.UUID)
		l.Bool("skip-cert-verify", d.AllowInsecure)
		if p.TLS {
			tls(l, d)
		}
		ws(l, d)
	case link.Trojan:
		l.Add("trojan=" + endpoint)
		l.Set("password", p.Password)
		l.Bool("skip-cert-verify", d.AllowInsecure)
		l.Bool("over-tls", true)
		l.Set("tls-host", d.ServerName())
		if d.ALPN != "" {
			l.SetRaw("alpn", d.ALPN)
		}
		l.SetIf("tls-cert-sha256", d.Fingerprint)
		ws(l, d)
	case link.Shadowsocks:
		l.Add("shadowsocks=" + endpoint)
		l.Set("method", p.Method)
		l.Set("password", p.Password)
		obfs(l, p)
	default:
		return "", &render.UnsupportedError{Target: Name, Type: d.Type()}
	}

	l.Set("tag", render.DirectiveName(d.Name))
	return l.Join(), nil
}

func tls(l *render.Line, d *link.Descriptor) {
	l.Bool("tls", true)
	l.Set("sni", d.ServerName())
	if d.ALPN != "" {
		l.SetRaw("alpn", d.ALPN)
	}
	l.SetIf("tls-cert-sha256", d.Fingerprint)
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
		l.Set("ws-header", "host:"+d.HostHeader)
	}
}

// obfs maps simple-obfs and v2ray-plugin websocket onto obfs=http|tls|ws|wss.
func obfs(l *render.Line, p link.Shadowsocks) {
	if mode, host, ok := p.ObfsSettings(); ok {
		l.Set("obfs", mode)
		l.SetIf("obfs-host", host)
		return
	}
	pl := link.ParsePlugin(p.Plugin)
	if pl.Kind() != "v2ray-plugin" {
		return
	}
	mode := "ws"
	if pl.Has("tls") {
		mode = "wss"
	}
	host, _ := pl.Get("host")
	path, _ := pl.Get("path")
	l.Set("obfs", mode)
	l.SetIf("obfs-host", host)
	l.SetIf("obfs-uri", path)
}

func init() {
	render.Register(Name, func() render.Renderer { return Renderer{} })
}
