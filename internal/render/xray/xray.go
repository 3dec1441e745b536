package xray

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xtls/xray-core/infra/conf"

	"vortexconv/internal/link"
	"vortexconv/internal/render"
)

const Name = "xray"

// Renderer emits Xray outbound detour objects built on xray-core's
// conf types. Aggregate wraps them in {"outbounds": [...]}.
type Renderer struct{}

func (Renderer) ContentType() string { return "application/json" }

func (Renderer) Aggregate(fragments []string) (string, error) {
	items := make([]json.RawMessage, 0, len(fragments))
	for i, f := range fragments {
		if !json.Valid([]byte(f)) {
			return "", fmt.Errorf("fragment %d is not valid json", i)
		}
		items = append(items, json.RawMessage(f))
	}
	return render.MarshalJSON(struct {
		Outbounds []json.RawMessage `json:"outbounds"`
	}{items})
}

func (Renderer) Render(d *link.Descriptor) (string, error) {
	ob, err := Outbound(d)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(ob)
	if err != nil {
		return "", err
	}

	// conf types carry no omitempty tags, so drop the zero values before
	// re-encoding.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return "", err
	}
	return render.MarshalJSON(prune(tree))
}

// Outbound converts d into an xray-core outbound detour config tagged with
// the descriptor's name.
func Outbound(d *link.Descriptor) (*conf.OutboundDetourConfig, error) {
	var protocol string
	var settings json.RawMessage

	switch p := d.Proto.(type) {
	case link.VLESS:
		protocol = "vless"
		settings = jsonRaw(map[string]interface{}{
			"vnext": []interface{}{
				map[string]interface{}{
					"address": d.Host,
					"port":    d.Port,
					"users": []interface{}{
						map[string]interface{}{
							"id":         p.UUID,
							"encryption": p.Encryption,
							"flow":       p.Flow,
						},
					},
				},
			},
		})
	case link.VMess:
		protocol = "vmess"
		settings = jsonRaw(map[string]interface{}{
			"vnext": []interface{}{
				map[string]interface{}{
					"address": d.Host,
					"port":    d.Port,
					"users": []interface{}{
						map[string]interface{}{
							"id":       p.UUID,
							"alterId":  p.AlterID,
							"security": p.Cipher,
						},
					},
				},
			},
		})
	case link.Trojan:
		protocol = "trojan"
		settings = jsonRaw(map[string]interface{}{
			"servers": []interface{}{
				map[string]interface{}{
					"address":  d.Host,
					"port":     d.Port,
					"password": p.Password,
				},
			},
		})
	case link.Shadowsocks:
		// Xray has no SIP003 plugin support; plugin options are dropped.
		protocol = "shadowsocks"
		settings = jsonRaw(map[string]interface{}{
			"servers": []interface{}{
				map[string]interface{}{
					"address":  d.Host,
					"port":     d.Port,
					"method":   p.Method,
					"password": p.Password,
				},
			},
		})
	default:
		return nil, &render.UnsupportedError{Target: Name, Type: d.Type()}
	}

	return &conf.OutboundDetourConfig{
		Tag:           d.Name,
		Protocol:      protocol,
		Settings:      &settings,
		StreamSetting: streamSettings(d),
	}, nil
}

func streamSettings(d *link.Descriptor) *conf.StreamConfig {
	network := d.Network
	if network == "" {
		network = "tcp"
	}
	sc := &conf.StreamConfig{
		Network:  (*conf.TransportProtocol)(&network),
		Security: "none",
	}

	switch {
	case d.Reality():
		p := d.Proto.(link.VLESS)
		sc.Security = "reality"
		sc.REALITYSettings = &conf.REALITYConfig{
			Fingerprint: firstNonEmpty(d.Fingerprint, "chrome"),
			ServerName:  d.ServerName(),
			PublicKey:   p.PublicKey,
			ShortId:     p.ShortID,
			SpiderX:     p.SpiderX,
		}
	case d.TLSEnabled():
		sc.Security = "tls"
		sc.TLSSettings = &conf.TLSConfig{
			ServerName:  d.ServerName(),
			Fingerprint: d.Fingerprint,
			Insecure:    d.AllowInsecure,
		}
		if alpn := d.ALPNList(); len(alpn) > 0 {
			list := conf.StringList(alpn)
			sc.TLSSettings.ALPN = &list
		}
	}

	switch network {
	case "ws":
		sc.WSSettings = &conf.WebSocketConfig{
			Host: d.HostHeader,
			Path: firstNonEmpty(d.Path, "/"),
		}
	case "grpc":
		sc.GRPCSettings = &conf.GRPCConfig{
			ServiceName: d.ServiceName,
		}
	case "tcp":
		if v, ok := d.Proto.(link.VMess); ok && v.HeaderType == "http" {
			sc.TCPSettings = &conf.TCPConfig{
				HeaderConfig: jsonRaw(map[string]interface{}{
					"type": "http",
					"request": map[string]interface{}{
						"headers": map[string]interface{}{
							"Host": []string{firstNonEmpty(d.HostHeader, d.Host)},
						},
						"path": []string{firstNonEmpty(d.Path, "/")},
					},
				}),
			}
		}
	}

	return sc
}

// prune removes nulls, zero scalars and containers left empty by pruning.
func prune(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			child = prune(child)
			if child == nil {
				delete(t, k)
				continue
			}
			t[k] = child
		}
		if len(t) == 0 {
			return nil
		}
		return t
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, child := range t {
			if child = prune(child); child != nil {
				out = append(out, child)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		if t == "" {
			return nil
		}
	case bool:
		if !t {
			return nil
		}
	case json.Number:
		if t.String() == "0" {
			return nil
		}
	}
	return v
}

func jsonRaw(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return json.RawMessage(b)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	render.Register(Name, func() render.Renderer { return Renderer{} })
}
