package singbox

import (
	"vortexconv/internal/link"
	"vortexconv/internal/render"
)

const Name = "singbox"

// Renderer emits sing-box outbound objects.
type Renderer struct{}

type outbound struct {
	Tag        string      `json:"tag"`
	Type       string      `json:"type"`
	Server     string      `json:"server"`
	ServerPort int         `json:"server_port"`
	UUID       string      `json:"uuid,omitempty"`
	Flow       string      `json:"flow,omitempty"`
	AlterID    *int        `json:"alter_id,omitempty"`
	Security   string      `json:"security,omitempty"`
	Method     string      `json:"method,omitempty"`
	Password   string      `json:"password,omitempty"`
	Plugin     string      `json:"plugin,omitempty"`
	PluginOpts string      `json:"plugin_opts,omitempty"`
	Transport  interface{} `json:"transport,omitempty"`
	TLS        *tlsOptions `json:"tls,omitempty"`
}

// wsTransport always carries headers, {} when there is no host override.
type wsTransport struct {
	Type    string            `json:"type"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
}

type grpcTransport struct {
	Type        string `json:"type"`
	ServiceName string `json:"service_name"`
}

type tlsOptions struct {
	Enabled    bool            `json:"enabled"`
	ServerName string          `json:"server_name,omitempty"`
	Insecure   bool            `json:"insecure"`
	ALPN       []string        `json:"alpn,omitempty"`
	UTLS       *utlsOptions    `json:"utls,omitempty"`
	Reality    *realityOptions `json:"reality,omitempty"`
}

type utlsOptions struct {
	Enabled     bool   `json:"enabled"`
	Fingerprint string `json:"fingerprint"`
}

type realityOptions struct {
	Enabled   bool   `json:"enabled"`
	PublicKey string `json:"public_key"`
	ShortID   string `json:"short_id"`
}

func (Renderer) ContentType() string { return "application/json" }

func (Renderer) Aggregate(fragments []string) (string, error) {
	return render.JSONArray(fragments)
}

func (Renderer) Render(d *link.Descriptor) (string, error) {
	ob, err := Outbound(d)
	if err != nil {
		return "", err
	}
	return render.MarshalJSON(ob)
}

// Outbound builds the typed outbound for d.
func Outbound(d *link.Descriptor) (interface{}, error) {
	ob := &outbound{
		Tag:        d.Name,
		Type:       string(d.Type()),
		Server:     d.Host,
		ServerPort: d.Port,
	}

	switch p := d.Proto.(type) {
	case link.VLESS:
		ob.UUID = p.UUID
		ob.Flow = p.Flow
		ob.Transport = transport(d)
		if d.TLSEnabled() {
			ob.TLS = tls(d)
			if d.Reality() {
				ob.TLS.Reality = &realityOptions{Enabled: true, PublicKey: p.PublicKey, ShortID: p.ShortID}
			}
		}
	case link.VMess:
		alterID := p.AlterID
		ob.UUID = p.UUID
		ob.AlterID = &alterID
		ob.Security = p.Cipher
		ob.Transport = transport(d)
		if p.TLS {
			ob.TLS = tls(d)
		}
	case link.Trojan:
		ob.Password = p.Password
		ob.Transport = transport(d)
		ob.TLS = tls(d)
	case link.Shadowsocks:
		ob.Type = "shadowsocks"
		ob.Method = p.Method
		ob.Password = p.Password
		ob.Plugin, ob.PluginOpts = plugin(p)
	default:
		return nil, &render.UnsupportedError{Target: Name, Type: d.Type()}
	}
	return ob, nil
}

func transport(d *link.Descriptor) interface{} {
	switch d.Network {
	case "ws":
		path := d.Path
		if path == "" {
			path = "/"
		}
		headers := map[string]string{}
		if d.HostHeader != "" {
			headers["host"] = d.HostHeader
		}
		return &wsTransport{Type: "ws", Path: path, Headers: headers}
	case "grpc":
		return &grpcTransport{Type: "grpc", ServiceName: d.ServiceName}
	}
	return nil
}

func tls(d *link.Descriptor) *tlsOptions {
	fp := d.Fingerprint
	if fp == "" {
		fp = "chrome"
	}
	return &tlsOptions{
		Enabled:    true,
		ServerName: d.ServerName(),
		Insecure:   d.AllowInsecure,
		ALPN:       d.ALPNList(),
		UTLS:       &utlsOptions{Enabled: true, Fingerprint: fp},
	}
}

// plugin normalizes the SIP003 plugin name and re-assembles its options,
// keeping bare flags such as "tls" without a value.
func plugin(p link.Shadowsocks) (string, string) {
	if p.Plugin == "" {
		if p.Obfs == "" {
			return "", ""
		}
		opts := "obfs=" + p.Obfs
		if p.ObfsHost != "" {
			opts += ";obfs-host=" + p.ObfsHost
		}
		return "obfs-local", opts
	}

	pl := link.ParsePlugin(p.Plugin)
	name := pl.Name
	switch pl.Kind() {
	case "obfs":
		name = "obfs-local"
	case "v2ray-plugin":
		name = "v2ray-plugin"
	}
	return name, pl.OptString()
}

func init() {
	render.Register(Name, func() render.Renderer { return Renderer{} })
}
