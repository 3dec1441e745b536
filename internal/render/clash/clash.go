package clash

import (
	"strconv"

	"vortexconv/internal/link"
	"vortexconv/internal/render"
)

const Name = "clash"

// Renderer emits Clash (mihomo) proxy list items.
type Renderer struct{}

func (Renderer) ContentType() string { return "text/yaml; charset=utf-8" }

func (Renderer) Aggregate(fragments []string) (string, error) {
	return render.JoinLines(fragments)
}

func (Renderer) Render(d *link.Descriptor) (string, error) {
	b := render.NewListItem().
		Field("name", d.Name).
		Field("type", string(d.Type())).
		Field("server", d.Host).
		Int("port", d.Port).
		Bool("udp", true)

	switch p := d.Proto.(type) {
	case link.VLESS:
		b.Bool("skip-cert-verify", d.AllowInsecure)
		b.Field("uuid", p.UUID)
		b.Bool("tls", d.TLSEnabled())
		if d.TLSEnabled() {
			b.Field("servername", d.ServerName())
			b.Seq("alpn", d.ALPNList())
			if d.Reality() {
				b.Field("client-fingerprint", fingerprintOr(d.Fingerprint))
				b.Map("reality-opts").
					FieldIf("public-key", p.PublicKey).
					FieldIf("short-id", p.ShortID).
					FieldIf("spider-x", p.SpiderX).
					End()
			} else {
				b.FieldIf("fingerprint", d.Fingerprint)
			}
			b.FieldIf("flow", p.Flow)
		}
		transport(b, d)
	case link.VMess:
		b.Bool("skip-cert-verify", d.AllowInsecure)
		b.Field("uuid", p.UUID)
		b.Int("alterId", p.AlterID)
		b.Field("cipher", p.Cipher)
		b.Bool("tls", p.TLS)
		if p.TLS {
			b.Field("servername", d.ServerName())
			b.Seq("alpn", d.ALPNList())
			b.FieldIf("fingerprint", d.Fingerprint)
		}
		transport(b, d)
	case link.Trojan:
		b.Bool("skip-cert-verify", d.AllowInsecure)
		b.Field("password", p.Password)
		b.Field("sni", d.ServerName())
		b.Seq("alpn", d.ALPNList())
		b.FieldIf("fingerprint", d.Fingerprint)
		transport(b, d)
	case link.Shadowsocks:
		b.Field("cipher", p.Method)
		b.Field("password", p.Password)
		plugin(b, p)
	default:
		return "", &render.UnsupportedError{Target: Name, Type: d.Type()}
	}

	return b.String(), nil
}

func transport(b *render.YAMLBuilder, d *link.Descriptor) {
	network := d.Network
	if network == "" {
		network = "tcp"
	}
	b.Field("network", network)

	switch network {
	case "ws":
		path := d.Path
		if path == "" {
			path = "/"
		}
		b.Field("ws-path", path)
		b.Map("ws-headers").FieldIf("host", d.HostHeader).End()
	case "grpc":
		b.Map("grpc-opts").FieldIf("grpc-service-name", d.ServiceName).End()
	}
}

func plugin(b *render.YAMLBuilder, p link.Shadowsocks) {
	if mode, host, ok := p.ObfsSettings(); ok {
		b.Field("plugin", "obfs")
		b.Map("plugin-opts").Field("mode", mode).FieldIf("host", host).End()
		return
	}
	if p.Plugin == "" {
		return
	}

	pl := link.ParsePlugin(p.Plugin)
	if pl.Kind() == "v2ray-plugin" {
		mode, _ := pl.Get("mode")
		host, _ := pl.Get("host")
		path, _ := pl.Get("path")
		b.Field("plugin", "v2ray-plugin")
		b.Map("plugin-opts").
			Field("mode", firstNonEmpty(mode, "websocket")).
			Bool("tls", pl.Has("tls")).
			FieldIf("host", host).
			FieldIf("path", path)
		if mux, ok := pl.Get("mux"); ok {
			b.Bool("mux", mux != "0" && mux != "false")
		}
		b.End()
		return
	}

	b.Field("plugin", pl.Name)
	b.Map("plugin-opts")
	for _, o := range pl.Opts {
		if o.Flag {
			b.Bool(o.Key, true)
			continue
		}
		if n, err := strconv.Atoi(o.Value); err == nil {
			b.Int(o.Key, n)
			continue
		}
		b.Field(o.Key, o.Value)
	}
	b.End()
}

func fingerprintOr(fp string) string {
	return firstNonEmpty(fp, "chrome")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	render.Register(Name, func() render.Renderer { return Renderer{} })
}
